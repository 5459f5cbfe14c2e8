package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/radiusdt/adboard/internal/config"
	"go.uber.org/zap"
)

// SheetsFetcher reads the mapping worksheet through the spreadsheet
// values API. The first row is the header; later rows become records.
type SheetsFetcher struct {
	httpClient *http.Client
	cfg        config.SheetsConfig
	logger     *zap.Logger
}

// NewSheetsFetcher constructs a SheetsFetcher, or nil when the source is
// not configured (no spreadsheet id or credential).
func NewSheetsFetcher(cfg config.SheetsConfig, logger *zap.Logger) *SheetsFetcher {
	if cfg.SpreadsheetID == "" || cfg.APIKey == "" {
		return nil
	}
	return &SheetsFetcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
		logger:     logger,
	}
}

type valuesResponse struct {
	Values [][]string `json:"values"`
}

// FetchRecords downloads the worksheet and zips each data row with the
// header row. Short rows are padded with empty cells.
func (f *SheetsFetcher) FetchRecords(ctx context.Context) ([]map[string]string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s",
		f.cfg.BaseURL,
		url.PathEscape(f.cfg.SpreadsheetID),
		url.PathEscape(f.cfg.Worksheet),
		url.QueryEscape(f.cfg.APIKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("values API returned status %d", resp.StatusCode)
	}

	var body valuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	if len(body.Values) < 2 {
		return nil, fmt.Errorf("worksheet %q has no data rows", f.cfg.Worksheet)
	}

	header := body.Values[0]
	records := make([]map[string]string, 0, len(body.Values)-1)
	for _, row := range body.Values[1:] {
		rec := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}

	f.logger.Info("mapping reference fetched",
		zap.String("worksheet", f.cfg.Worksheet),
		zap.Int("records", len(records)),
	)

	return records, nil
}
