package models

// MappingKey identifies one ad across the report and the mapping
// reference: (account, campaign, ad set, ad). Keys are expected unique in
// the mapping source.
type MappingKey struct {
	AccountName  string `json:"account_name"`
	CampaignName string `json:"campaign_name"`
	AdSetName    string `json:"adset_name"`
	AdName       string `json:"ad_name"`
}

// MappingAttrs are the descriptive attributes maintained by the operators
// in the mapping spreadsheet.
type MappingAttrs struct {
	CreativeType      string `json:"creative_type"`
	CreativeTheme     string `json:"creative_theme"`
	ProductCategory   string `json:"product_category"`
	InfluencerName    string `json:"influencer_name"`
	CampaignObjective string `json:"campaign_objective"`
}

// MappingRow is one record of the mapping reference table.
type MappingRow struct {
	Key   MappingKey   `json:"key"`
	Attrs MappingAttrs `json:"attrs"`
}
