package mapping

import (
	"context"
	"fmt"
	"strings"

	"github.com/radiusdt/adboard/internal/models"
)

// JoinUnavailableError means the mapping reference could not be loaded:
// the source is unreachable or no credential was supplied. Downstream
// consumers skip enrichment but must block display of mapping-dependent
// filters.
type JoinUnavailableError struct {
	Reason string
}

func (e *JoinUnavailableError) Error() string {
	return "mapping: reference unavailable: " + e.Reason
}

// DuplicateKeyError means the mapping source contains two records with
// the same 4-part key. A duplicate key would fan the join out, so the
// load is rejected instead.
type DuplicateKeyError struct {
	Key models.MappingKey
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("mapping: duplicate key (%s, %s, %s, %s)",
		e.Key.AccountName, e.Key.CampaignName, e.Key.AdSetName, e.Key.AdName)
}

// Fetcher retrieves raw mapping records from the reference source. Each
// record maps a header name to a cell value.
type Fetcher interface {
	FetchRecords(ctx context.Context) ([]map[string]string, error)
}

// Table is a loaded mapping reference with a unique-key index.
type Table struct {
	Rows  []models.MappingRow
	index map[models.MappingKey]models.MappingAttrs
}

// Len returns the number of mapping records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Lookup returns the attributes for the key, if present.
func (t *Table) Lookup(key models.MappingKey) (models.MappingAttrs, bool) {
	if t == nil {
		return models.MappingAttrs{}, false
	}
	attrs, ok := t.index[key]
	return attrs, ok
}

// Sheet headers vary in capitalization across worksheets; lookups are by
// lowercased, trimmed name.
var headerAliases = map[string]string{
	"account name":       "account_name",
	"campaign name":      "campaign_name",
	"ad set name":        "adset_name",
	"adset name":         "adset_name",
	"ad name":            "ad_name",
	"creative type":      "creative_type",
	"creative theme":     "creative_theme",
	"product cat":        "product_category",
	"product category":   "product_category",
	"influencer name":    "influencer_name",
	"campaign objective": "campaign_objective",
}

// Load fetches the mapping reference and builds the indexed table.
// Duplicate keys reject the whole load. Fetch failures surface as
// JoinUnavailableError.
func Load(ctx context.Context, f Fetcher) (*Table, error) {
	if f == nil {
		return nil, &JoinUnavailableError{Reason: "no fetcher configured"}
	}

	records, err := f.FetchRecords(ctx)
	if err != nil {
		return nil, &JoinUnavailableError{Reason: err.Error()}
	}

	t := &Table{
		Rows:  make([]models.MappingRow, 0, len(records)),
		index: make(map[models.MappingKey]models.MappingAttrs, len(records)),
	}

	for _, rec := range records {
		get := func(name string) string {
			for k, v := range rec {
				if headerAliases[strings.ToLower(strings.TrimSpace(k))] == name {
					return strings.TrimSpace(v)
				}
			}
			return ""
		}

		row := models.MappingRow{
			Key: models.MappingKey{
				AccountName:  get("account_name"),
				CampaignName: get("campaign_name"),
				AdSetName:    get("adset_name"),
				AdName:       get("ad_name"),
			},
			Attrs: models.MappingAttrs{
				CreativeType:      get("creative_type"),
				CreativeTheme:     get("creative_theme"),
				ProductCategory:   get("product_category"),
				InfluencerName:    get("influencer_name"),
				CampaignObjective: get("campaign_objective"),
			},
		}

		if _, dup := t.index[row.Key]; dup {
			return nil, &DuplicateKeyError{Key: row.Key}
		}
		t.index[row.Key] = row.Attrs
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// Join left-joins the mapping attributes onto the report rows by the
// 4-part composite key. Output cardinality always equals input
// cardinality: unmatched rows are preserved with zero attributes and
// Matched=false. A nil table leaves every row unmatched.
func Join(rows []models.ReportRow, t *Table) []models.EnrichedRow {
	out := make([]models.EnrichedRow, len(rows))
	for i, r := range rows {
		attrs, ok := t.Lookup(r.Key())
		out[i] = models.EnrichedRow{
			ReportRow: r,
			Attrs:     attrs,
			Matched:   ok,
		}
	}
	return out
}
