package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKeyDistinguishesArgumentBoundaries(t *testing.T) {
	assert.NotEqual(t, Key("fn", "a", "bc"), Key("fn", "ab", "c"))
	assert.NotEqual(t, Key("fn", "a"), Key("gn", "a"))
	assert.Equal(t, Key("fn", "a", "b"), Key("fn", "a", "b"))
}

func TestMemoizerCachesWithinTTL(t *testing.T) {
	m := NewMemoizer(NewMemoryStore(), time.Hour, zap.NewNop())

	var calls atomic.Int32
	fetch := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("payload"), nil
	}

	for i := 0; i < 3; i++ {
		val, err := m.Do(context.Background(), "k", fetch)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(val))
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemoizerExpiresAfterTTL(t *testing.T) {
	m := NewMemoizer(NewMemoryStore(), 10*time.Millisecond, zap.NewNop())

	var calls atomic.Int32
	fetch := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("payload"), nil
	}

	_, err := m.Do(context.Background(), "k", fetch)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = m.Do(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMemoizerSingleFlight(t *testing.T) {
	m := NewMemoizer(NewMemoryStore(), time.Hour, zap.NewNop())

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("payload"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := m.Do(context.Background(), "k", fetch)
			assert.NoError(t, err)
			assert.Equal(t, "payload", string(val))
		}()
	}

	// Give the goroutines time to pile onto the same flight.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestMemoizerDoesNotCacheErrors(t *testing.T) {
	m := NewMemoizer(NewMemoryStore(), time.Hour, zap.NewNop())

	var calls atomic.Int32
	boom := errors.New("boom")
	fetch := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, boom
	}

	_, err := m.Do(context.Background(), "k", fetch)
	require.ErrorIs(t, err, boom)
	_, err = m.Do(context.Background(), "k", fetch)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int32(2), calls.Load())
}

func TestMemoizerClear(t *testing.T) {
	m := NewMemoizer(NewMemoryStore(), time.Hour, zap.NewNop())

	var calls atomic.Int32
	fetch := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("payload"), nil
	}

	_, err := m.Do(context.Background(), "k", fetch)
	require.NoError(t, err)

	require.NoError(t, m.Clear(context.Background()))

	_, err = m.Do(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

type countingRecorder struct {
	hits, misses atomic.Int32
}

func (c *countingRecorder) RecordCacheHit()  { c.hits.Add(1) }
func (c *countingRecorder) RecordCacheMiss() { c.misses.Add(1) }

func TestMemoizerRecordsOutcomes(t *testing.T) {
	m := NewMemoizer(NewMemoryStore(), time.Hour, zap.NewNop())
	rec := &countingRecorder{}
	m.SetRecorder(rec)

	fetch := func(context.Context) ([]byte, error) { return []byte("p"), nil }

	_, err := m.Do(context.Background(), "k", fetch)
	require.NoError(t, err)
	_, err = m.Do(context.Background(), "k", fetch)
	require.NoError(t, err)

	assert.Equal(t, int32(1), rec.misses.Load())
	assert.Equal(t, int32(1), rec.hits.Load())
}
