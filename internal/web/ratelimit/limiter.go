// Package ratelimit limits requests per client key, in Redis when one is
// configured and in process memory otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (*Info, error)
	Close() error
}

// Info describes the limit state after a request was counted
type Info struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when the window frees up again
	ResetAt time.Time
	// Allowed reports whether the request may proceed
	Allowed bool
}

// Config selects and configures a limiter
type Config struct {
	// RedisAddr enables the shared Redis limiter when set
	RedisAddr string
	Limit     int
	Window    time.Duration
}

// New builds the limiter described by config. A Redis limiter is verified
// with a PING before it is returned.
func New(ctx context.Context, config Config) (Limiter, error) {
	if config.RedisAddr == "" {
		return NewTokenBucket(TokenBucketConfig{
			Capacity:        config.Limit,
			Window:          config.Window,
			CleanupInterval: 5 * config.Window,
		})
	}

	client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.RedisAddr, err)
	}

	limiter, err := NewRedisLimiter(RedisConfig{
		Client:     client,
		Limit:      config.Limit,
		Window:     config.Window,
		Prefix:     DefaultPrefix,
		OwnsClient: true,
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	return limiter, nil
}
