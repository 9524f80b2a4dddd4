package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBucket returns a bucket driven by a manual clock
func newTestBucket(t *testing.T, capacity int, window time.Duration) (*TokenBucket, *time.Time) {
	t.Helper()
	tb, err := NewTokenBucket(TokenBucketConfig{Capacity: capacity, Window: window})
	require.NoError(t, err)
	t.Cleanup(func() { tb.Close() })

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tb.now = func() time.Time { return clock }
	return tb, &clock
}

func TestNewTokenBucket_InvalidConfig(t *testing.T) {
	_, err := NewTokenBucket(TokenBucketConfig{Capacity: 0, Window: time.Minute})
	assert.EqualError(t, err, "limit must be greater than 0")

	_, err = NewTokenBucket(TokenBucketConfig{Capacity: 1})
	assert.EqualError(t, err, "window must be greater than 0")
}

func TestTokenBucket_Allow_FirstRequest(t *testing.T) {
	tb, _ := newTestBucket(t, 10, time.Minute)

	info, err := tb.Allow(context.Background(), "key")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 10, info.Limit)
	assert.Equal(t, 9, info.Remaining)
}

func TestTokenBucket_Allow_ExceedLimit(t *testing.T) {
	tb, _ := newTestBucket(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := tb.Allow(ctx, "key")
		require.NoError(t, err)
		assert.True(t, info.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 3-i-1, info.Remaining)
	}

	info, err := tb.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
}

func TestTokenBucket_Refill(t *testing.T) {
	tb, clock := newTestBucket(t, 6, time.Minute)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := tb.Allow(ctx, "key")
		require.NoError(t, err)
	}
	info, err := tb.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.WithinDuration(t, clock.Add(time.Minute), info.ResetAt, time.Millisecond)

	// one token every ten seconds
	*clock = clock.Add(10 * time.Second)
	info, err = tb.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)

	*clock = clock.Add(time.Hour)
	info, err = tb.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 5, info.Remaining)
}

func TestTokenBucket_DifferentKeys(t *testing.T) {
	tb, _ := newTestBucket(t, 1, time.Minute)
	ctx := context.Background()

	info, err := tb.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = tb.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = tb.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
}

func TestTokenBucket_DropIdle(t *testing.T) {
	tb, clock := newTestBucket(t, 2, time.Minute)

	_, err := tb.Allow(context.Background(), "key")
	require.NoError(t, err)

	tb.dropIdle()
	assert.Len(t, tb.buckets, 1)

	*clock = clock.Add(2 * time.Minute)
	tb.dropIdle()
	assert.Empty(t, tb.buckets)
}

func TestTokenBucket_Concurrent(t *testing.T) {
	tb, _ := newTestBucket(t, 25, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := tb.Allow(ctx, "shared")
			if !assert.NoError(t, err) {
				return
			}
			if info.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, allowed)
}

func TestTokenBucket_CloseTwice(t *testing.T) {
	tb, err := NewTokenBucket(TokenBucketConfig{Capacity: 1, Window: time.Second, CleanupInterval: time.Millisecond})
	require.NoError(t, err)
	assert.NoError(t, tb.Close())
	assert.NoError(t, tb.Close())
}
