package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter rate limits across server instances using Redis. It
// approximates the in-memory token bucket with a fixed one-second
// window: up to burst requests per key per window, so the sustained
// rate converges on the configured per-second rate.
type RateLimiter struct {
	client *Client
	burst  int
}

// NewRateLimiter creates a Redis-backed rate limiter
func NewRateLimiter(client *Client, burst int) *RateLimiter {
	return &RateLimiter{
		client: client,
		burst:  burst,
	}
}

// Allow reports whether the request for key is admitted
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	fullKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, time.Now().Unix())

	pipe := r.client.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, 2*time.Second)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	return incrCmd.Val() <= int64(r.burst), nil
}

// Reset clears all rate limit state for a key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	pattern := fmt.Sprintf("%s%s:*", rateLimitPrefix, key)

	var cursor uint64
	for {
		keys, next, err := r.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan rate limit keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete rate limit keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
