package pipeline

import (
	"testing"
	"time"

	"github.com/radiusdt/adboard/internal/models"
	"github.com/stretchr/testify/assert"
)

func sessionWithDates(anchor time.Time, dates ...time.Time) *SessionContext {
	s := &SessionContext{Anchor: anchor}
	for _, d := range dates {
		s.Rows = append(s.Rows, models.EnrichedRow{
			ReportRow: models.ReportRow{Date: d},
		})
	}
	return s
}

func TestWindowYesterday(t *testing.T) {
	anchor := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	s := sessionWithDates(anchor,
		time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	)

	rows := s.Window(models.WindowYesterday)
	assert.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), rows[0].Date)
}

func TestWindowTrailing(t *testing.T) {
	anchor := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	s := sessionWithDates(anchor,
		time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),  // exactly anchor-7, excluded
		time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),  // oldest included day
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), // anchor day included
		time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), // future, excluded
	)

	rows := s.Window(models.WindowLast7d)
	assert.Len(t, rows, 2)
}

func TestWindowsNest(t *testing.T) {
	anchor := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	var dates []time.Time
	for i := 0; i < 120; i += 3 {
		dates = append(dates, anchor.AddDate(0, 0, -i))
	}
	s := sessionWithDates(anchor, dates...)

	w7 := len(s.Window(models.WindowLast7d))
	w30 := len(s.Window(models.WindowLast30d))
	w90 := len(s.Window(models.WindowLast90d))

	assert.LessOrEqual(t, w7, w30)
	assert.LessOrEqual(t, w30, w90)
	assert.LessOrEqual(t, w90, len(s.Rows))
}
