package models

import "time"

// Dimension names a categorical column a selection can restrict.
type Dimension string

const (
	DimAccount           Dimension = "account"
	DimCampaign          Dimension = "campaign"
	DimAdSet             Dimension = "adset"
	DimAd                Dimension = "ad"
	DimCreativeType      Dimension = "creative_type"
	DimCreativeTheme     Dimension = "creative_theme"
	DimProductCategory   Dimension = "product_category"
	DimInfluencer        Dimension = "influencer"
	DimCampaignObjective Dimension = "campaign_objective"
)

// Dimensions lists all filterable dimensions in cascade order: a
// restriction on an earlier dimension narrows the candidate values
// offered for every later one.
var Dimensions = []Dimension{
	DimAccount,
	DimCampaign,
	DimAdSet,
	DimAd,
	DimCreativeType,
	DimCreativeTheme,
	DimProductCategory,
	DimInfluencer,
	DimCampaignObjective,
}

// MappingBacked reports whether the dimension's values come from the
// mapping reference rather than the report itself. Filtering on these is
// meaningless while the mapping is unavailable.
func (d Dimension) MappingBacked() bool {
	switch d {
	case DimCreativeType, DimCreativeTheme, DimProductCategory, DimInfluencer, DimCampaignObjective:
		return true
	}
	return false
}

// FilterSelection is a conjunction of per-dimension membership
// predicates. An absent or empty value set leaves that dimension
// unrestricted. The optional date bounds are inclusive calendar days.
type FilterSelection struct {
	Values    map[Dimension][]string `json:"values,omitempty"`
	StartDate *time.Time             `json:"start_date,omitempty"`
	EndDate   *time.Time             `json:"end_date,omitempty"`
}

// Restricts reports whether the selection constrains the given dimension.
func (f FilterSelection) Restricts(d Dimension) bool {
	return len(f.Values[d]) > 0
}

// UsesMappingDimensions reports whether any restricted dimension is
// mapping-backed.
func (f FilterSelection) UsesMappingDimensions() bool {
	for d, vals := range f.Values {
		if len(vals) > 0 && d.MappingBacked() {
			return true
		}
	}
	return false
}
