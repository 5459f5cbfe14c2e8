package analytics

import (
	"sort"
	"time"

	"github.com/radiusdt/adboard/internal/models"
)

// GroupBy selects the grouping key for metric derivation.
type GroupBy int

const (
	// GroupTotal collapses the whole selection into one row.
	GroupTotal GroupBy = iota
	// GroupDate groups by calendar day.
	GroupDate
	// GroupDateCategory groups by calendar day and product category.
	GroupDateCategory
)

// MetricRow is one group of summed counters with the ratios derived from
// those sums. Ratio fields are nil when their denominator sum is zero;
// they render as JSON null and never carry NaN or Inf.
type MetricRow struct {
	Date            *time.Time `json:"date,omitempty"`
	ProductCategory string     `json:"product_category,omitempty"`

	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`

	CTR  *float64 `json:"ctr"`  // clicks / impressions * 100
	CPM  *float64 `json:"cpm"`  // spend / impressions * 1000
	ROAS *float64 `json:"roas"` // revenue / spend
}

type groupKey struct {
	date     time.Time
	category string
}

// Derive sums impressions, clicks, spend and revenue within each group
// and computes CTR, CPM and ROAS from the group sums. Ratios are always
// recomputed from the summed counters, never averaged across rows, so
// they stay consistent between grouping levels.
func Derive(rows []models.EnrichedRow, groupBy GroupBy) []MetricRow {
	groups := make(map[groupKey]*MetricRow)
	order := make([]groupKey, 0)

	for _, r := range rows {
		var k groupKey
		switch groupBy {
		case GroupDate:
			k.date = r.Date
		case GroupDateCategory:
			k.date = r.Date
			k.category = r.Attrs.ProductCategory
		}

		m, ok := groups[k]
		if !ok {
			m = &MetricRow{}
			if groupBy != GroupTotal {
				d := k.date
				m.Date = &d
			}
			if groupBy == GroupDateCategory {
				m.ProductCategory = k.category
			}
			groups[k] = m
			order = append(order, k)
		}

		m.Impressions += r.Impressions
		m.Clicks += r.Clicks
		m.Spend += r.Spend
		m.Revenue += r.Revenue
	}

	if groupBy == GroupTotal && len(groups) == 0 {
		// An empty selection still yields one all-zero total row.
		groups[groupKey{}] = &MetricRow{}
		order = append(order, groupKey{})
	}

	sort.Slice(order, func(i, j int) bool {
		if !order[i].date.Equal(order[j].date) {
			return order[i].date.Before(order[j].date)
		}
		return order[i].category < order[j].category
	})

	out := make([]MetricRow, 0, len(order))
	for _, k := range order {
		m := groups[k]
		m.CTR = ratio(float64(m.Clicks), float64(m.Impressions), 100)
		m.CPM = ratio(m.Spend, float64(m.Impressions), 1000)
		m.ROAS = ratio(m.Revenue, m.Spend, 1)
		out = append(out, *m)
	}
	return out
}

// ratio returns num/den*scale, or nil when the denominator is zero.
func ratio(num, den, scale float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den * scale
	return &v
}

// SummaryMetric is one headline number with its trailing-week context.
type SummaryMetric struct {
	Yesterday float64 `json:"yesterday"`
	WeeklyAvg float64 `json:"weekly_avg"`
	// DeltaPct is (yesterday - weekly_avg) / weekly_avg * 100, nil when
	// the weekly average is zero.
	DeltaPct *float64 `json:"delta_pct"`
}

// Summary carries the dashboard headline metrics.
type Summary struct {
	Spend  SummaryMetric `json:"spend"`
	Clicks SummaryMetric `json:"clicks"`
}

// BuildSummary compares yesterday's totals against the trailing-7-day
// daily average.
func BuildSummary(yesterday, last7 []models.EnrichedRow) Summary {
	yTotal := Derive(yesterday, GroupTotal)[0]
	wTotal := Derive(last7, GroupTotal)[0]

	return Summary{
		Spend:  summaryMetric(yTotal.Spend, wTotal.Spend/7),
		Clicks: summaryMetric(float64(yTotal.Clicks), float64(wTotal.Clicks)/7),
	}
}

func summaryMetric(yesterday, weeklyAvg float64) SummaryMetric {
	return SummaryMetric{
		Yesterday: yesterday,
		WeeklyAvg: weeklyAvg,
		DeltaPct:  ratio(yesterday-weeklyAvg, weeklyAvg, 100),
	}
}
