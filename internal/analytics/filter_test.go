package analytics

import (
	"testing"
	"time"

	"github.com/radiusdt/adboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enriched(account, campaign, ad, category string, date time.Time) models.EnrichedRow {
	return models.EnrichedRow{
		ReportRow: models.ReportRow{
			AccountName:  account,
			CampaignName: campaign,
			AdSetName:    "Set 1",
			AdName:       ad,
			Date:         date,
		},
		Attrs:   models.MappingAttrs{ProductCategory: category},
		Matched: category != "",
	}
}

func testRows() []models.EnrichedRow {
	d := day(2024, 1, 15)
	return []models.EnrichedRow{
		enriched("Acct A", "Camp 1", "Ad 1", "shoes", d),
		enriched("Acct A", "Camp 2", "Ad 2", "bags", d),
		enriched("Acct B", "Camp 3", "Ad 3", "shoes", d),
		enriched("Acct B", "Camp 4", "Ad 4", "", d.AddDate(0, 0, 1)),
	}
}

func TestApplyConjunction(t *testing.T) {
	rows := testRows()

	out := Apply(rows, models.FilterSelection{Values: map[models.Dimension][]string{
		models.DimAccount:         {"Acct A"},
		models.DimProductCategory: {"shoes"},
	}})

	require.Len(t, out, 1)
	assert.Equal(t, "Camp 1", out[0].CampaignName)
}

func TestApplyEmptySubsetUnrestricted(t *testing.T) {
	rows := testRows()

	out := Apply(rows, models.FilterSelection{Values: map[models.Dimension][]string{
		models.DimAccount: {},
	}})
	assert.Len(t, out, len(rows))
}

func TestApplyMembershipUnion(t *testing.T) {
	rows := testRows()

	out := Apply(rows, models.FilterSelection{Values: map[models.Dimension][]string{
		models.DimCampaign: {"Camp 1", "Camp 3"},
	}})
	assert.Len(t, out, 2)
}

func TestApplyDateBoundsInclusive(t *testing.T) {
	rows := testRows()
	start := day(2024, 1, 16)
	end := day(2024, 1, 16)

	out := Apply(rows, models.FilterSelection{StartDate: &start, EndDate: &end})
	require.Len(t, out, 1)
	assert.Equal(t, "Acct B", out[0].AccountName)
}

func TestOptionsCascade(t *testing.T) {
	rows := testRows()

	opts := Options(rows, models.FilterSelection{Values: map[models.Dimension][]string{
		models.DimAccount: {"Acct A"},
	}})

	// The account list itself is never narrowed by the account choice.
	assert.Equal(t, []string{"Acct A", "Acct B"}, opts[models.DimAccount])
	// Everything downstream of account is.
	assert.Equal(t, []string{"Camp 1", "Camp 2"}, opts[models.DimCampaign])
	assert.Equal(t, []string{"bags", "shoes"}, opts[models.DimProductCategory])
}

func TestOptionsIgnoreDownstreamRestrictions(t *testing.T) {
	rows := testRows()

	// A category choice must not narrow the campaign candidates: category
	// comes later in the cascade.
	opts := Options(rows, models.FilterSelection{Values: map[models.Dimension][]string{
		models.DimProductCategory: {"shoes"},
	}})
	assert.Equal(t, []string{"Camp 1", "Camp 2", "Camp 3", "Camp 4"}, opts[models.DimCampaign])
}

func TestOptionsOmitEmptyValues(t *testing.T) {
	rows := testRows()

	opts := Options(rows, models.FilterSelection{})
	// The unmatched row contributes no empty-string category candidate.
	assert.Equal(t, []string{"bags", "shoes"}, opts[models.DimProductCategory])
}

func TestOptionsNeverOfferImpossibleCombination(t *testing.T) {
	rows := testRows()

	opts := Options(rows, models.FilterSelection{Values: map[models.Dimension][]string{
		models.DimAccount:  {"Acct B"},
		models.DimCampaign: {"Camp 3"},
	}})
	assert.Equal(t, []string{"Ad 3"}, opts[models.DimAd])
}
