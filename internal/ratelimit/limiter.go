// Package ratelimit bounds public endpoint traffic with a Redis-backed
// fixed window counter, so limits hold across replicas.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is the slice of Redis the limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
}

// Limiter applies a per-key fixed window limit.
type Limiter struct {
	counter Counter
	prefix  string
	limit   int64
	window  time.Duration
	now     func() time.Time
}

// New builds a limiter allowing limit hits per window for each key.
func New(counter Counter, prefix string, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		counter: counter,
		prefix:  prefix,
		limit:   int64(limit),
		window:  window,
		now:     time.Now,
	}
}

// Allow reports whether the key may proceed in the current window. Redis
// errors fail open: a cache outage must not take the public endpoints down.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, l.now().Unix()/int64(l.window.Seconds()))

	count, err := l.counter.Incr(ctx, windowKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		_ = l.counter.Expire(ctx, windowKey, l.window).Err()
	}
	return count <= l.limit, nil
}
