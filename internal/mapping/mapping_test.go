package mapping

import (
	"context"
	"errors"
	"testing"

	"github.com/radiusdt/adboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	records []map[string]string
	err     error
}

func (s *stubFetcher) FetchRecords(context.Context) ([]map[string]string, error) {
	return s.records, s.err
}

func record(account, campaign, adset, ad, category string) map[string]string {
	return map[string]string{
		"Account Name":       account,
		"Campaign Name":      campaign,
		"Ad Set Name":        adset,
		"Ad Name":            ad,
		"Creative Type":      "video",
		"Creative Theme":     "summer",
		"Product Cat":        category,
		"Influencer Name":    "none",
		"Campaign Objective": "conversions",
	}
}

func TestLoadBuildsIndexedTable(t *testing.T) {
	f := &stubFetcher{records: []map[string]string{
		record("Acct A", "Camp 1", "Set 1", "Ad 1", "shoes"),
		record("Acct A", "Camp 1", "Set 1", "Ad 2", "bags"),
	}}

	tbl, err := Load(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	attrs, ok := tbl.Lookup(models.MappingKey{
		AccountName: "Acct A", CampaignName: "Camp 1", AdSetName: "Set 1", AdName: "Ad 2",
	})
	require.True(t, ok)
	assert.Equal(t, "bags", attrs.ProductCategory)
	assert.Equal(t, "video", attrs.CreativeType)
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	f := &stubFetcher{records: []map[string]string{
		record("Acct A", "Camp 1", "Set 1", "Ad 1", "shoes"),
		record("Acct A", "Camp 1", "Set 1", "Ad 1", "bags"),
	}}

	_, err := Load(context.Background(), f)
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "Ad 1", dup.Key.AdName)
}

func TestLoadNilFetcherUnavailable(t *testing.T) {
	_, err := Load(context.Background(), nil)
	var unavailable *JoinUnavailableError
	require.True(t, errors.As(err, &unavailable))
}

func TestLoadFetchFailureUnavailable(t *testing.T) {
	f := &stubFetcher{err: errors.New("sheet gone")}

	_, err := Load(context.Background(), f)
	var unavailable *JoinUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Contains(t, unavailable.Error(), "sheet gone")
}

func TestJoinPreservesCardinality(t *testing.T) {
	f := &stubFetcher{records: []map[string]string{
		record("Acct A", "Camp 1", "Set 1", "Ad 1", "shoes"),
	}}
	tbl, err := Load(context.Background(), f)
	require.NoError(t, err)

	rows := []models.ReportRow{
		{AccountName: "Acct A", CampaignName: "Camp 1", AdSetName: "Set 1", AdName: "Ad 1"},
		{AccountName: "Acct A", CampaignName: "Camp 1", AdSetName: "Set 1", AdName: "Ad 1"},
		{AccountName: "Acct B", CampaignName: "Camp 9", AdSetName: "Set 9", AdName: "Ad 9"},
	}

	enriched := Join(rows, tbl)
	require.Len(t, enriched, 3)

	assert.True(t, enriched[0].Matched)
	assert.True(t, enriched[1].Matched)
	assert.Equal(t, "shoes", enriched[0].Attrs.ProductCategory)

	assert.False(t, enriched[2].Matched)
	assert.Equal(t, models.MappingAttrs{}, enriched[2].Attrs)
}

func TestJoinNilTableAllUnmatched(t *testing.T) {
	rows := []models.ReportRow{
		{AccountName: "Acct A", CampaignName: "Camp 1", AdSetName: "Set 1", AdName: "Ad 1"},
	}

	enriched := Join(rows, nil)
	require.Len(t, enriched, 1)
	assert.False(t, enriched[0].Matched)
}
