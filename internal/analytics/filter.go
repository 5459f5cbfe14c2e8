package analytics

import (
	"sort"
	"time"

	"github.com/radiusdt/adboard/internal/models"
)

// DimensionValue extracts the value of a categorical dimension from an
// enriched row.
func DimensionValue(r models.EnrichedRow, d models.Dimension) string {
	switch d {
	case models.DimAccount:
		return r.AccountName
	case models.DimCampaign:
		return r.CampaignName
	case models.DimAdSet:
		return r.AdSetName
	case models.DimAd:
		return r.AdName
	case models.DimCreativeType:
		return r.Attrs.CreativeType
	case models.DimCreativeTheme:
		return r.Attrs.CreativeTheme
	case models.DimProductCategory:
		return r.Attrs.ProductCategory
	case models.DimInfluencer:
		return r.Attrs.InfluencerName
	case models.DimCampaignObjective:
		return r.Attrs.CampaignObjective
	}
	return ""
}

// Apply filters rows by the selection: a conjunction across dimensions
// where each restricted dimension keeps rows whose value is a member of
// the chosen subset. An empty subset leaves the dimension unrestricted.
// Date bounds, when present, are inclusive calendar days.
func Apply(rows []models.EnrichedRow, sel models.FilterSelection) []models.EnrichedRow {
	out := make([]models.EnrichedRow, 0, len(rows))
	for _, r := range rows {
		if matches(r, sel) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r models.EnrichedRow, sel models.FilterSelection) bool {
	if sel.StartDate != nil && r.Date.Before(dayUTC(*sel.StartDate)) {
		return false
	}
	if sel.EndDate != nil && r.Date.After(dayUTC(*sel.EndDate)) {
		return false
	}
	for d, vals := range sel.Values {
		if len(vals) == 0 {
			continue
		}
		if !contains(vals, DimensionValue(r, d)) {
			return false
		}
	}
	return true
}

// Options computes the cascading candidate-value lists: the candidates
// for each dimension reflect the restrictions already applied by every
// earlier dimension in cascade order (plus any date bounds), so a chosen
// account narrows which campaigns are offered and an impossible
// combination is never offered at all.
func Options(rows []models.EnrichedRow, sel models.FilterSelection) map[models.Dimension][]string {
	out := make(map[models.Dimension][]string, len(models.Dimensions))

	for i, dim := range models.Dimensions {
		upstream := models.FilterSelection{
			Values:    make(map[models.Dimension][]string, i),
			StartDate: sel.StartDate,
			EndDate:   sel.EndDate,
		}
		for _, prev := range models.Dimensions[:i] {
			if sel.Restricts(prev) {
				upstream.Values[prev] = sel.Values[prev]
			}
		}

		seen := make(map[string]struct{})
		vals := make([]string, 0)
		for _, r := range Apply(rows, upstream) {
			v := DimensionValue(r, dim)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out[dim] = vals
	}

	return out
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
