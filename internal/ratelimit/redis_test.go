package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, limit int) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, "roi", limit, time.Minute), mr
}

func TestRedisLimiterRefusesOverLimitAndRecovers(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedisLimiter(t, 2)

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 1-i, d.Remaining)
	}
	assert.True(t, mr.Exists("roi:10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL("roi:10.0.0.1"))

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Positive(t, d.RetryAfter)

	mr.FastForward(time.Minute)
	d, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiterRepairsCounterWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedisLimiter(t, 5)
	require.NoError(t, mr.Set("roi:stuck", "3"))

	d, err := l.Allow(ctx, "stuck")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, time.Minute, mr.TTL("roi:stuck"))
}

func TestRedisLimiterReportsBackendErrors(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 5)
	mr.Close()

	_, err := l.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}
