package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(limit, maxKeys int) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return newMemoryLimiter(limit, time.Minute, maxKeys, clock.Now), clock
}

func TestMemoryLimiterRefusesOverLimitAndRecovers(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(3, 0)

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	clock.Advance(20 * time.Second)
	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	// Other keys are independent.
	d, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	clock.Advance(40 * time.Second)
	d, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestMemoryLimiterIsBounded(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(5, 2)

	for _, key := range []string{"a", "b"} {
		d, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	// Full of live windows: a new key is refused, existing keys still count.
	d, err := l.Allow(ctx, "c")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)
	assert.Equal(t, 2, l.Len())

	d, err = l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Once windows expire they are evicted to make room.
	clock.Advance(time.Minute)
	d, err = l.Allow(ctx, "c")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiterSweepDropsExpiredWindows(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(5, 0)

	_, _ = l.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	_, _ = l.Allow(ctx, "b")
	assert.Equal(t, 2, l.sweep())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.sweep())
	clock.Advance(30 * time.Second)
	assert.Equal(t, 0, l.sweep())
}

func TestMemoryLimiterStopIsIdempotent(t *testing.T) {
	l := NewMemoryLimiter(10, time.Second, 0)
	l.Stop()
	l.Stop()
}
