package pipeline

import (
	"time"

	"github.com/radiusdt/adboard/internal/models"
)

// SessionContext is the explicit per-session state of the dashboard: one
// merged, enriched report table plus the as-of anchor its windows are cut
// against. It replaces ambient globals; every consumer receives it by
// reference. A session lives until the next refresh.
type SessionContext struct {
	ID        string
	Anchor    time.Time
	CreatedAt time.Time

	// Rows is the full merged and enriched table covering the widest
	// fetched range. Windows are views over it, never re-fetches.
	Rows []models.EnrichedRow

	// MappingAvailable is false when the mapping reference could not be
	// loaded; Rows are then unenriched and mapping-backed filters must
	// not be served.
	MappingAvailable bool
	// MappingErr holds the load failure when MappingAvailable is false.
	MappingErr error

	// Accounts that contributed rows, in fetch order.
	Accounts []int64
	// SkippedRows counts malformed report rows dropped during parsing.
	SkippedRows int
}

// Window returns the rows inside the named window relative to the
// session anchor. "Yesterday" is exactly the calendar day before the
// anchor day; trailing windows are half-open on the start:
// (anchor-N, anchor].
func (s *SessionContext) Window(w models.Window) []models.EnrichedRow {
	anchorDay := dayUTC(s.Anchor)

	var keep func(d time.Time) bool
	switch w {
	case models.WindowYesterday:
		yesterday := anchorDay.AddDate(0, 0, -1)
		keep = func(d time.Time) bool { return d.Equal(yesterday) }
	default:
		start := anchorDay.AddDate(0, 0, -w.Days())
		keep = func(d time.Time) bool { return d.After(start) && !d.After(anchorDay) }
	}

	out := make([]models.EnrichedRow, 0, len(s.Rows))
	for _, r := range s.Rows {
		if keep(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
