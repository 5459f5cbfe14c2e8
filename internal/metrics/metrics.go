package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/radiusdt/adboard/internal/insights"
	"github.com/radiusdt/adboard/internal/report"
)

// Metrics holds all Prometheus metrics for the dashboard backend.
type Metrics struct {
	// Acquisition metrics
	ReportFetches *prometheus.CounterVec
	ReportRows    *prometheus.CounterVec
	SkippedRows   *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec

	// Mapping metrics
	MappingRecords prometheus.Gauge
	MappingLoads   *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ReportFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_fetches_total",
				Help:      "Completed per-account report fetches",
			},
			[]string{"account_id"},
		),
		ReportRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_rows_total",
				Help:      "Parsed report rows by account",
			},
			[]string{"account_id"},
		),
		SkippedRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_rows_skipped_total",
				Help:      "Malformed report rows skipped during parsing",
			},
			[]string{"account_id"},
		),
		FetchFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_fetch_failures_total",
				Help:      "Per-account fetch failures by pipeline stage",
			},
			[]string{"account_id", "stage"},
		),
		MappingRecords: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mapping_records",
				Help:      "Records in the last successfully loaded mapping reference",
			},
		),
		MappingLoads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mapping_loads_total",
				Help:      "Mapping reference load attempts by outcome",
			},
			[]string{"outcome"},
		),
		CacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Memoization cache hits",
			},
		),
		CacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Memoization cache misses",
			},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"path", "status"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordFetchSuccess records a completed per-account fetch.
func (m *Metrics) RecordFetchSuccess(accountID int64, rows, skipped int) {
	acct := strconv.FormatInt(accountID, 10)
	m.ReportFetches.WithLabelValues(acct).Inc()
	m.ReportRows.WithLabelValues(acct).Add(float64(rows))
	m.SkippedRows.WithLabelValues(acct).Add(float64(skipped))
}

// RecordFetchFailure records a per-account failure, labelled by the
// pipeline stage that produced it.
func (m *Metrics) RecordFetchFailure(accountID int64, err error) {
	m.FetchFailures.WithLabelValues(strconv.FormatInt(accountID, 10), failureStage(err)).Inc()
}

// RecordMappingLoad records a successful mapping reference load.
func (m *Metrics) RecordMappingLoad(records int) {
	m.MappingLoads.WithLabelValues("ok").Inc()
	m.MappingRecords.Set(float64(records))
}

// RecordMappingFailure records a failed mapping reference load.
func (m *Metrics) RecordMappingFailure() {
	m.MappingLoads.WithLabelValues("error").Inc()
}

// RecordCacheHit counts a memoization cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss counts a memoization cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordRequest records one served HTTP request.
func (m *Metrics) RecordRequest(path string, status int, duration time.Duration) {
	m.RequestDuration.WithLabelValues(path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func failureStage(err error) string {
	var reqErr *insights.UpstreamRequestError
	var fetchErr *insights.UpstreamFetchError
	var parseErr *report.ParseError
	switch {
	case errors.As(err, &reqErr):
		return "request"
	case errors.As(err, &fetchErr):
		return "export"
	case errors.As(err, &parseErr):
		return "parse"
	}
	return "other"
}
