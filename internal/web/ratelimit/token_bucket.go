package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TokenBucket is an in-memory limiter. Each key holds up to Capacity tokens
// and regains them continuously over Window.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	window   time.Duration
	now      func() time.Time
	cleanup  *time.Ticker
	done     chan struct{}
	closed   sync.Once
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// TokenBucketConfig configures a TokenBucket
type TokenBucketConfig struct {
	Capacity int
	Window   time.Duration
	// CleanupInterval is how often idle buckets are dropped; zero disables it
	CleanupInterval time.Duration
}

// NewTokenBucket creates a new TokenBucket
func NewTokenBucket(config TokenBucketConfig) (*TokenBucket, error) {
	if config.Capacity <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: config.Capacity,
		window:   config.Window,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		tb.cleanup = time.NewTicker(config.CleanupInterval)
		go tb.cleanupLoop()
	}

	return tb, nil
}

// Allow takes a token for key if one is available
func (tb *TokenBucket) Allow(_ context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	rate := float64(tb.capacity) / tb.window.Seconds()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.capacity), lastSeen: now}
		tb.buckets[key] = b
	} else if elapsed := now.Sub(b.lastSeen); elapsed > 0 {
		b.tokens = min(float64(tb.capacity), b.tokens+elapsed.Seconds()*rate)
		b.lastSeen = now
	}

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}

	// time until the bucket is full again
	missing := float64(tb.capacity) - b.tokens
	resetAt := now.Add(time.Duration(missing / rate * float64(time.Second)))

	return &Info{
		Limit:     tb.capacity,
		Remaining: int(b.tokens),
		ResetAt:   resetAt,
		Allowed:   allowed,
	}, nil
}

func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.cleanup.C:
			tb.dropIdle()
		case <-tb.done:
			return
		}
	}
}

// dropIdle removes buckets that have refilled completely
func (tb *TokenBucket) dropIdle() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	for key, b := range tb.buckets {
		if now.Sub(b.lastSeen) > tb.window {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine
func (tb *TokenBucket) Close() error {
	tb.closed.Do(func() {
		close(tb.done)
		if tb.cleanup != nil {
			tb.cleanup.Stop()
		}
	})
	return nil
}
