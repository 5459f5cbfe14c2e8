package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store is the backing for memoized payloads. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Clear drops every memoized entry. This is the only eviction
	// besides TTL expiry.
	Clear(ctx context.Context) error
}

// Key derives a content-addressed cache key from a function name and its
// arguments. Arguments are joined with a NUL separator so that
// ("a","bc") and ("ab","c") hash differently.
func Key(fn string, args ...string) string {
	h := sha256.New()
	h.Write([]byte(fn))
	for _, a := range args {
		h.Write([]byte{0})
		h.Write([]byte(a))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Recorder counts cache outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Memoizer memoizes expensive fetches with a fixed TTL and a
// single-flight guard: concurrent callers of the same key share one
// in-flight fetch instead of issuing duplicate upstream requests.
type Memoizer struct {
	store    Store
	ttl      time.Duration
	group    singleflight.Group
	logger   *zap.Logger
	recorder Recorder
}

// NewMemoizer constructs a Memoizer over the given store.
func NewMemoizer(store Store, ttl time.Duration, logger *zap.Logger) *Memoizer {
	return &Memoizer{store: store, ttl: ttl, logger: logger}
}

// SetRecorder attaches an outcome recorder. Call before serving traffic.
func (m *Memoizer) SetRecorder(r Recorder) {
	m.recorder = r
}

// Do returns the memoized payload for key, invoking fetch on a miss.
// Fetch errors are returned to every waiting caller and are not cached.
func (m *Memoizer) Do(ctx context.Context, key string, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if val, ok, err := m.store.Get(ctx, key); err == nil && ok {
		if m.recorder != nil {
			m.recorder.RecordCacheHit()
		}
		return val, nil
	} else if err != nil {
		m.logger.Warn("cache read failed, fetching through", zap.Error(err))
	}
	if m.recorder != nil {
		m.recorder.RecordCacheMiss()
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have filled
		// the entry while this one was queued.
		if val, ok, err := m.store.Get(ctx, key); err == nil && ok {
			return val, nil
		}

		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := m.store.Set(ctx, key, val, m.ttl); err != nil {
			m.logger.Warn("cache write failed", zap.Error(err))
		}
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Clear drops all memoized entries.
func (m *Memoizer) Clear(ctx context.Context) error {
	return m.store.Clear(ctx)
}
