package models

import "time"

// ReportRow is one (account, campaign, ad set, ad, date) observation from
// the ads insights export. Counters are primary; everything derived is
// computed downstream.
type ReportRow struct {
	AccountName  string    `json:"account_name"`
	CampaignName string    `json:"campaign_name"`
	AdSetName    string    `json:"adset_name"`
	AdName       string    `json:"ad_name"`
	Date         time.Time `json:"date"` // calendar day, UTC midnight
	Impressions  int64     `json:"impressions"`
	Clicks       int64     `json:"clicks"`
	Spend        float64   `json:"spend"` // raw, never rounded
	Reach        int64     `json:"reach"`
	Frequency    float64   `json:"frequency"`
	// PurchaseROAS is the website-purchase return-on-ad-spend factor
	// reported by the API, dimensionless.
	PurchaseROAS float64 `json:"purchase_roas"`
	// Actions carries the raw actions breakdown. Only its presence is
	// meaningful to this service.
	Actions string `json:"actions,omitempty"`
}

// Key returns the 4-part composite key shared with the mapping reference.
func (r ReportRow) Key() MappingKey {
	return MappingKey{
		AccountName:  r.AccountName,
		CampaignName: r.CampaignName,
		AdSetName:    r.AdSetName,
		AdName:       r.AdName,
	}
}

// EnrichedRow is a ReportRow left-joined with mapping attributes and
// carrying the derived revenue. Matched is false when the mapping has no
// entry for the row's key; attributes are then zero-valued.
type EnrichedRow struct {
	ReportRow
	Attrs   MappingAttrs `json:"attrs"`
	Matched bool         `json:"matched"`
	// Revenue = round(PurchaseROAS * Spend), derived from raw spend.
	Revenue float64 `json:"revenue"`
}

// Window names a time-bounded view over the fetched dataset.
type Window string

const (
	WindowYesterday Window = "yesterday"
	WindowLast7d    Window = "last_7d"
	WindowLast30d   Window = "last_30d"
	WindowLast90d   Window = "last_90d"
)

// Valid reports whether w is a known window name.
func (w Window) Valid() bool {
	switch w {
	case WindowYesterday, WindowLast7d, WindowLast30d, WindowLast90d:
		return true
	}
	return false
}

// Days returns the width of the trailing window in days, with yesterday
// treated as a single day.
func (w Window) Days() int {
	switch w {
	case WindowYesterday:
		return 1
	case WindowLast7d:
		return 7
	case WindowLast30d:
		return 30
	case WindowLast90d:
		return 90
	}
	return 0
}
