package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys in Redis
const DefaultPrefix = "graphiti:ratelimit:"

// slidingWindow trims entries older than the window, then records the
// request if the window has room. Scores are unix milliseconds. It returns
// {allowed, count, oldest score}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)
	local allowed = 0
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		current = current + 1
		allowed = 1
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local oldest_score = ARGV[1]
	if oldest[2] then
		oldest_score = oldest[2]
	end
	return {allowed, current, oldest_score}
`)

// RedisLimiter is a sliding window limiter shared by every server instance
// pointed at the same Redis
type RedisLimiter struct {
	client     redis.UniversalClient
	limit      int
	window     time.Duration
	prefix     string
	ownsClient bool
}

// RedisConfig configures a RedisLimiter
type RedisConfig struct {
	Client redis.UniversalClient
	Limit  int
	Window time.Duration
	Prefix string
	// OwnsClient closes the client when the limiter is closed
	OwnsClient bool
}

// NewRedisLimiter creates a new RedisLimiter
func NewRedisLimiter(config RedisConfig) (*RedisLimiter, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	return &RedisLimiter{
		client:     config.Client,
		limit:      config.Limit,
		window:     config.Window,
		prefix:     config.Prefix,
		ownsClient: config.OwnsClient,
	}, nil
}

// Allow counts a request for key
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	now := time.Now()

	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(),
		now.Add(-r.window).UnixMilli(),
		r.limit,
		r.window.Milliseconds(),
		uuid.NewString(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 3 {
		return nil, errors.New("unexpected redis script result")
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return nil, errors.New("invalid allowed value from redis")
	}
	count, ok := result[1].(int64)
	if !ok {
		return nil, errors.New("invalid count value from redis")
	}

	resetAt := now.Add(r.window)
	if oldest, ok := result[2].(string); ok {
		if millis, err := strconv.ParseFloat(oldest, 64); err == nil {
			resetAt = time.UnixMilli(int64(millis)).Add(r.window)
		}
	}

	return &Info{
		Limit:     r.limit,
		Remaining: max(r.limit-int(count), 0),
		ResetAt:   resetAt,
		Allowed:   allowed == 1,
	}, nil
}

// Reset removes all rate limit data for key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close releases the Redis client if the limiter owns it
func (r *RedisLimiter) Close() error {
	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}
