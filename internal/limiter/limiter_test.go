package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, "auth", 5, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		allowed, _, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d", i)
	}

	allowed, retryAfter, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, 15*time.Minute)

	// Other clients keep their own counters.
	allowed, _, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(16 * time.Minute)
	allowed, _, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	l := NewRedisLimiter(client, "auth", 5, time.Minute)
	_, _, err := l.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(5, 15*time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, retryAfter, _ := l.Allow(ctx, "ip")
	assert.False(t, allowed)
	assert.Equal(t, 15*time.Minute, retryAfter)

	now = now.Add(15 * time.Minute)
	allowed, _, _ = l.Allow(ctx, "ip")
	assert.True(t, allowed)
	assert.Len(t, l.buckets, 1)
}

func TestRedisLimiter_CounterAlwaysExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, "auth", 5, 15*time.Minute)
	ctx := context.Background()
	key := "ratelimit:auth:10.0.0.1"

	for i := 0; i < 7; i++ {
		_, _, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		ttl := mr.TTL(key)
		assert.Greater(t, ttl, time.Duration(0), "attempt %d", i+1)
		assert.LessOrEqual(t, ttl, 15*time.Minute)
	}

	// A counter stranded without a TTL is repaired instead of locking the
	// client out for good.
	stranded := "ratelimit:auth:10.0.0.2"
	require.NoError(t, mr.Set(stranded, "9"))
	assert.Equal(t, time.Duration(0), mr.TTL(stranded))

	allowed, retryAfter, err := l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 15*time.Minute, retryAfter)
	assert.Equal(t, 15*time.Minute, mr.TTL(stranded))

	mr.FastForward(16 * time.Minute)
	allowed, _, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)
}
