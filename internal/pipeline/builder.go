package pipeline

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/adboard/internal/cache"
	"github.com/radiusdt/adboard/internal/config"
	"github.com/radiusdt/adboard/internal/mapping"
	"github.com/radiusdt/adboard/internal/metrics"
	"github.com/radiusdt/adboard/internal/models"
	"github.com/radiusdt/adboard/internal/report"
	"go.uber.org/zap"
)

// ReportFetcher runs the request-wait-export sequence for one account.
// *insights.Client satisfies it.
type ReportFetcher interface {
	FetchAccountReport(ctx context.Context, accountID int64) ([]byte, error)
}

// Builder assembles a SessionContext: fetch each account's report
// (memoized), parse, merge best-effort, join the mapping reference once
// on the full table, and derive per-row revenue.
type Builder struct {
	fetcher    ReportFetcher
	parser     *report.Parser
	mappingSrc mapping.Fetcher
	memo       *cache.Memoizer
	cfg        config.InsightsConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewBuilder constructs a Builder. mappingSrc may be nil when the
// reference source is unconfigured; sessions are then built unenriched.
func NewBuilder(
	fetcher ReportFetcher,
	parser *report.Parser,
	mappingSrc mapping.Fetcher,
	memo *cache.Memoizer,
	cfg config.InsightsConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Builder {
	return &Builder{
		fetcher:    fetcher,
		parser:     parser,
		mappingSrc: mappingSrc,
		memo:       memo,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// Build runs the whole acquisition sequence and returns a fresh session.
// Per-account failures are absorbed: an account that fails to fetch or
// parse is omitted from the merge. Only a fully empty merge is an error.
func (b *Builder) Build(ctx context.Context) (*SessionContext, error) {
	s := &SessionContext{
		ID:        uuid.NewString(),
		Anchor:    time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}

	merged := make([]models.ReportRow, 0)
	for _, accountID := range b.cfg.AccountIDs {
		rows, skipped, err := b.fetchAccount(ctx, accountID)
		if err != nil {
			// Best effort across accounts: partial data beats no data.
			b.logger.Warn("account report unavailable, omitting from merge",
				zap.Int64("account_id", accountID),
				zap.Error(err),
			)
			if b.metrics != nil {
				b.metrics.RecordFetchFailure(accountID, err)
			}
			continue
		}
		merged = append(merged, rows...)
		s.Accounts = append(s.Accounts, accountID)
		s.SkippedRows += skipped
		if b.metrics != nil {
			b.metrics.RecordFetchSuccess(accountID, len(rows), skipped)
		}
	}

	if len(merged) == 0 {
		return nil, &EmptyResultError{Accounts: len(b.cfg.AccountIDs)}
	}

	// Join once on the full table; windows are taken as subsets after,
	// so all windows see identical join results.
	tbl, err := mapping.Load(ctx, b.mappingSrc)
	if err != nil {
		var unavailable *mapping.JoinUnavailableError
		var dup *mapping.DuplicateKeyError
		switch {
		case errors.As(err, &unavailable):
			b.logger.Warn("mapping reference unavailable, skipping enrichment", zap.Error(err))
		case errors.As(err, &dup):
			b.logger.Error("mapping reference rejected", zap.Error(err))
		default:
			return nil, err
		}
		s.MappingErr = err
		if b.metrics != nil {
			b.metrics.RecordMappingFailure()
		}
	} else {
		s.MappingAvailable = true
		if b.metrics != nil {
			b.metrics.RecordMappingLoad(tbl.Len())
		}
	}

	s.Rows = mapping.Join(merged, tbl)
	for i := range s.Rows {
		// Revenue is derived from raw spend; spend is only rounded for
		// display, downstream of this service.
		s.Rows[i].Revenue = math.Round(s.Rows[i].PurchaseROAS * s.Rows[i].Spend)
	}

	b.logger.Info("session built",
		zap.String("session_id", s.ID),
		zap.Int("rows", len(s.Rows)),
		zap.Int("accounts", len(s.Accounts)),
		zap.Int("skipped_rows", s.SkippedRows),
		zap.Bool("mapping_available", s.MappingAvailable),
	)

	return s, nil
}

// fetchAccount returns the parsed report rows for one account, going
// through the memoization cache so repeated sessions inside the TTL do
// not re-issue upstream requests.
func (b *Builder) fetchAccount(ctx context.Context, accountID int64) ([]models.ReportRow, int, error) {
	key := cache.Key("account_report", strconv.FormatInt(accountID, 10), b.cfg.DatePreset)

	payload, err := b.memo.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		return b.fetcher.FetchAccountReport(ctx, accountID)
	})
	if err != nil {
		return nil, 0, err
	}

	res, err := b.parser.Parse(string(payload))
	if err != nil {
		return nil, 0, err
	}
	return res.Rows, res.Skipped, nil
}
