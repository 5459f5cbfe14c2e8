package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/radiusdt/adboard/internal/config"
	"go.uber.org/zap"
)

// reportFields is the field list requested from the insights API. The
// export column names derive from these.
const reportFields = "account_name,ad_name,adset_name,website_purchase_roas," +
	"campaign_name,impressions,clicks,spend,actions,reach,frequency"

// Client talks to the ads insights API. Report generation is a two-step
// asynchronous exchange: CreateReport enqueues a report run and returns a
// job id, ExportReport downloads the finished run as CSV.
type Client struct {
	httpClient *http.Client
	cfg        config.InsightsConfig
	logger     *zap.Logger
}

// NewClient constructs an insights API client.
func NewClient(cfg config.InsightsConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        cfg,
		logger:     logger,
	}
}

type createReportResponse struct {
	ReportRunID string `json:"report_run_id"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateReport enqueues an ad-level report run for the account and
// returns the opaque job id. The call is not retried here; retries are
// the caller's responsibility and are idempotent per (account, preset).
func (c *Client) CreateReport(ctx context.Context, accountID int64) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/act_%d/insights", c.cfg.BaseURL, c.cfg.APIVersion, accountID)

	params := url.Values{}
	params.Set("level", "ad")
	params.Set("fields", reportFields)
	params.Set("date_preset", c.cfg.DatePreset)
	params.Set("time_increment", "1")
	params.Set("access_token", c.cfg.AccessToken)
	params.Set("locale", c.cfg.Locale)
	params.Set("action_breakdowns", "action_type")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("insights: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamRequestError{AccountID: accountID, Message: err.Error()}
	}
	defer resp.Body.Close()

	var body createReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &UpstreamRequestError{AccountID: accountID, Message: "undecodable response: " + err.Error()}
	}

	if body.Error != nil {
		return "", &UpstreamRequestError{AccountID: accountID, Message: body.Error.Message}
	}
	if body.ReportRunID == "" {
		return "", &UpstreamRequestError{AccountID: accountID, Message: "no job id returned"}
	}

	c.logger.Info("report run created",
		zap.Int64("account_id", accountID),
		zap.String("job_id", body.ReportRunID),
		zap.String("date_preset", c.cfg.DatePreset),
	)

	return body.ReportRunID, nil
}

// ExportReport waits for the report run to render and downloads it as
// CSV. The default strategy is a single fixed wait followed by one fetch;
// when PollAttempts > 1 the fetch is retried with capped exponential
// backoff, which tolerates slow-rendering runs.
func (c *Client) ExportReport(ctx context.Context, jobID string) ([]byte, error) {
	if err := sleepCtx(ctx, c.cfg.ReportWait); err != nil {
		return nil, err
	}

	backoff := c.cfg.PollBackoffBase
	var lastStatus int

	for attempt := 1; ; attempt++ {
		payload, status, err := c.fetchExport(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if status >= 200 && status < 300 {
			return payload, nil
		}
		lastStatus = status

		if attempt >= c.cfg.PollAttempts {
			break
		}

		c.logger.Warn("report not ready, backing off",
			zap.String("job_id", jobID),
			zap.Int("status", status),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
		if backoff > c.cfg.PollBackoffMax {
			backoff = c.cfg.PollBackoffMax
		}
	}

	return nil, &UpstreamFetchError{JobID: jobID, StatusCode: lastStatus}
}

// FetchAccountReport runs the full request-wait-export sequence for one
// account and returns the raw CSV payload.
func (c *Client) FetchAccountReport(ctx context.Context, accountID int64) ([]byte, error) {
	jobID, err := c.CreateReport(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return c.ExportReport(ctx, jobID)
}

func (c *Client) fetchExport(ctx context.Context, jobID string) ([]byte, int, error) {
	params := url.Values{}
	params.Set("report_run_id", jobID)
	params.Set("format", "csv")
	params.Set("access_token", c.cfg.AccessToken)
	params.Set("locale", c.cfg.Locale)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ExportURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("insights: build export request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &UpstreamFetchError{JobID: jobID, StatusCode: 0}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("insights: read export body: %w", err)
	}
	return payload, resp.StatusCode, nil
}

// sleepCtx blocks for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
