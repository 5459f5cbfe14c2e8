package insights

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/radiusdt/adboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(baseURL string) config.InsightsConfig {
	return config.InsightsConfig{
		BaseURL:         baseURL,
		ExportURL:       baseURL + "/export",
		APIVersion:      "v19.0",
		AccessToken:     "token",
		Locale:          "en_US",
		DatePreset:      "last_90d",
		ReportWait:      0,
		PollAttempts:    1,
		PollBackoffBase: time.Millisecond,
		PollBackoffMax:  2 * time.Millisecond,
	}
}

func TestCreateReportReturnsJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v19.0/act_123/insights", r.URL.Path)
		assert.Equal(t, "ad", r.URL.Query().Get("level"))
		assert.Equal(t, "last_90d", r.URL.Query().Get("date_preset"))
		fmt.Fprint(w, `{"report_run_id":"job-42"}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	jobID, err := c.CreateReport(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
}

func TestCreateReportErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"(#100) Invalid parameter"}}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	_, err := c.CreateReport(context.Background(), 123)

	var reqErr *UpstreamRequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, int64(123), reqErr.AccountID)
	assert.Contains(t, reqErr.Message, "Invalid parameter")
}

func TestCreateReportMissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	_, err := c.CreateReport(context.Background(), 123)

	var reqErr *UpstreamRequestError
	require.True(t, errors.As(err, &reqErr))
}

func TestExportReportNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	_, err := c.ExportReport(context.Background(), "job-42")

	var fetchErr *UpstreamFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "job-42", fetchErr.JobID)
	assert.Equal(t, http.StatusBadRequest, fetchErr.StatusCode)
}

func TestExportReportRetriesWithBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "job-42", r.URL.Query().Get("report_run_id"))
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		fmt.Fprint(w, "csv,payload")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.PollAttempts = 5

	c := NewClient(cfg, zap.NewNop())
	payload, err := c.ExportReport(context.Background(), "job-42")
	require.NoError(t, err)
	assert.Equal(t, "csv,payload", string(payload))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchAccountReportSequence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/export" {
			fmt.Fprint(w, "date,impressions\n2024-01-01,100\n")
			return
		}
		fmt.Fprint(w, `{"report_run_id":"job-1"}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zap.NewNop())
	payload, err := c.FetchAccountReport(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "2024-01-01")
}

func TestExportReportContextCancelledDuringWait(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.ReportWait = time.Minute

	c := NewClient(cfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.ExportReport(ctx, "job-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
