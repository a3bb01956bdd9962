// Package limiter implements fixed-window attempt counters keyed by an
// arbitrary string such as a client IP.
package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "ratelimit:"
	redisTimeout   = 300 * time.Millisecond
)

// Limiter counts an attempt for key and reports whether it is within the
// limit. When it is not, retryAfter is the time until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RedisLimiter shares counters across server instances.
type RedisLimiter struct {
	Redis  *redis.Client
	Limit  int
	Window time.Duration
	Prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{Redis: client, Limit: limit, Window: window, Prefix: prefix}
}

// allowScript counts an attempt and makes sure the counter expires, in one
// atomic step. A counter left without a TTL gets one on the next attempt.
var allowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := cacheKeyPrefix + l.Prefix + ":" + key

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := allowScript.Run(ctx, l.Redis, []string{k}, l.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to count attempt: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("failed to count attempt: unexpected reply %v", res)
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if count <= int64(l.Limit) {
		return true, 0, nil
	}
	return false, ttl, nil
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in process. Used when Redis is not configured.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.nextSweep) {
		for k, b := range l.buckets {
			if !now.Before(b.resetAt) {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}

	b.count++
	if b.count <= l.limit {
		return true, 0, nil
	}
	return false, b.resetAt.Sub(now), nil
}
