// Package ratelimit throttles abuse-prone endpoints (login, password reset)
// per client key. The Redis limiter shares fixed-window counters between
// server instances; the local limiter keeps token buckets in process.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neexa/neexa-backend/internal/common"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned when the limiter backend cannot be reached.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Limiter admits or refuses one request for key. A refusal matches
// common.ErrRateLimited.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// RedisLimiter allows limit requests per key in each fixed window.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	k := l.prefix + key

	// INCR and EXPIRE NX go out in one MULTI so a counter never outlives
	// its window; NX keeps the window anchored at the first hit.
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if incr.Val() > l.limit {
		return common.ErrRateLimited
	}
	return nil
}

// maxLocalKeys bounds the bucket map; full buckets are dropped past it.
const maxLocalKeys = 10000

// LocalLimiter gives each key a token bucket refilling limit tokens per
// window with a burst of limit.
type LocalLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	every   rate.Limit
	burst   int
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit < 1 {
		limit = 1
	}
	return &LocalLimiter{
		buckets: make(map[string]*rate.Limiter),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
	}
}

func (l *LocalLimiter) Allow(ctx context.Context, key string) error {
	if !l.bucket(key).Allow() {
		return common.ErrRateLimited
	}
	return nil
}

func (l *LocalLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}

	if len(l.buckets) >= maxLocalKeys {
		for k, b := range l.buckets {
			if b.Tokens() >= float64(l.burst) {
				delete(l.buckets, k)
			}
		}
	}

	b := rate.NewLimiter(l.every, l.burst)
	l.buckets[key] = b
	return b
}
