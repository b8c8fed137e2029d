package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed-window counters across instances through Redis.
// Each key is INCRed and given a PEXPIRE of one window on first use.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	period time.Duration
}

func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, period time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, period: period}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("incr %s: %w", k, err)
	}
	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("pttl %s: %w", k, err)
	}
	// First hit in a window, or a counter left without expiry.
	if count == 1 || ttl < 0 {
		if err := l.client.PExpire(ctx, k, l.period).Err(); err != nil {
			return Decision{}, fmt.Errorf("pexpire %s: %w", k, err)
		}
		ttl = l.period
	}

	if count > int64(l.limit) {
		return Decision{Allowed: false, Limit: l.limit, RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - int(count)}, nil
}

var _ Limiter = (*RedisLimiter)(nil)
