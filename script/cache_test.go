package script

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupExecutor runs a miniredis instance and wraps a go-redis client as an
// Executor.
func setupExecutor(t *testing.T) (*miniredis.Miniredis, Executor) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, ExecutorFunc(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		return client.Do(ctx, args...).Result()
	})
}

// countingExecutor counts SCRIPT LOAD round trips.
type countingExecutor struct {
	inner Executor
	loads atomic.Int64
}

func (c *countingExecutor) Command(ctx context.Context, args ...interface{}) (interface{}, error) {
	if len(args) >= 2 && args[0] == "SCRIPT" && args[1] == "LOAD" {
		c.loads.Add(1)
	}
	return c.inner.Command(ctx, args...)
}

func TestCache_ReadThrough(t *testing.T) {
	_, exec := setupExecutor(t)
	counter := &countingExecutor{inner: exec}
	cache := NewCache()
	ctx := context.Background()

	first, err := cache.Digest(ctx, counter, "fixed_window", Static(FixedWindowScript))
	require.NoError(t, err)
	assert.Len(t, first, 40) // SHA1 hex

	// second call is served from the cache
	second, err := cache.Digest(ctx, counter, "fixed_window", Static(FixedWindowScript))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, counter.loads.Load())
}

func TestCache_ConcurrentFirstLoadsConverge(t *testing.T) {
	_, exec := setupExecutor(t)
	counter := &countingExecutor{inner: exec}
	cache := NewCache()

	const n = 32
	digests := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			digests[i], errs[i] = cache.Digest(context.Background(), counter, "fixed_window", Static(FixedWindowScript))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
	for i := 1; i < n; i++ {
		assert.Equal(t, digests[0], digests[i])
	}
	// racing first loads may register more than once but never more than
	// once per caller
	assert.LessOrEqual(t, counter.loads.Load(), int64(n))
	assert.GreaterOrEqual(t, counter.loads.Load(), int64(1))
}

func TestCache_SourceFailureLeavesNoEntry(t *testing.T) {
	_, exec := setupExecutor(t)
	cache := NewCache()
	boom := errors.New("template render failed")

	_, err := cache.Digest(context.Background(), exec, "custom", func() (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	// a later call with a working source succeeds
	d, err := cache.Digest(context.Background(), exec, "custom", Static(FixedWindowScript))
	require.NoError(t, err)
	assert.Len(t, d, 40)
}

func TestCache_RegistrationFailureErasesEntry(t *testing.T) {
	cache := NewCache()
	failing := ExecutorFunc(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		return nil, errors.New("connection refused")
	})

	_, err := cache.Digest(context.Background(), failing, "fixed_window", Static(FixedWindowScript))
	require.Error(t, err)

	// the failed id is absent, a healthy executor recovers it
	_, exec := setupExecutor(t)
	d, err := cache.Digest(context.Background(), exec, "fixed_window", Static(FixedWindowScript))
	require.NoError(t, err)
	assert.Len(t, d, 40)
}

func TestCache_ReloadAfterScriptFlush(t *testing.T) {
	mr, exec := setupExecutor(t)
	cache := NewCache()
	ctx := context.Background()

	first, err := cache.Digest(ctx, exec, "fixed_window", Static(FixedWindowScript))
	require.NoError(t, err)

	// simulate a store restart clearing its script cache
	mr.FlushAll()

	reloaded, err := cache.Reload(ctx, exec, "fixed_window", Static(FixedWindowScript))
	require.NoError(t, err)
	assert.Equal(t, first, reloaded) // same text, same SHA1

	cached, err := cache.Digest(ctx, exec, "fixed_window", Static(FixedWindowScript))
	require.NoError(t, err)
	assert.Equal(t, reloaded, cached)
}

func TestCache_BadLoadReply(t *testing.T) {
	cache := NewCache()
	odd := ExecutorFunc(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		return int64(42), nil
	})

	_, err := cache.Digest(context.Background(), odd, "fixed_window", Static(FixedWindowScript))
	assert.Error(t, err)
}
