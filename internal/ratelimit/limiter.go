// Package ratelimit counts requests per key in fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

const DefaultMaxKeys = 10000

type window struct {
	count int
	reset time.Time
}

// MemoryLimiter is an in-process fixed-window counter. It holds at most
// maxKeys windows; expired ones are swept on a ticker and evicted on demand.
type MemoryLimiter struct {
	limit   int
	period  time.Duration
	maxKeys int
	clock   func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

func NewMemoryLimiter(limit int, period time.Duration, maxKeys int) *MemoryLimiter {
	l := newMemoryLimiter(limit, period, maxKeys, time.Now)
	go l.cleanupLoop()
	return l
}

func newMemoryLimiter(limit int, period time.Duration, maxKeys int, clock func() time.Time) *MemoryLimiter {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &MemoryLimiter{
		limit:       limit,
		period:      period,
		maxKeys:     maxKeys,
		clock:       clock,
		windows:     make(map[string]*window),
		stopCleanup: make(chan struct{}),
	}
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCleanup:
			return
		}
	}
}

// sweep drops expired windows and returns how many remain.
func (l *MemoryLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.clock())
}

func (l *MemoryLimiter) sweepLocked(now time.Time) int {
	for key, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, key)
		}
	}
	return len(l.windows)
}

func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	w, ok := l.windows[key]
	if ok && !now.Before(w.reset) {
		w.count = 0
		w.reset = now.Add(l.period)
	}
	if !ok {
		if len(l.windows) >= l.maxKeys && l.sweepLocked(now) >= l.maxKeys {
			return Decision{Allowed: false, Limit: l.limit, RetryAfter: l.earliestResetLocked(now)}, nil
		}
		w = &window{reset: now.Add(l.period)}
		l.windows[key] = w
	}

	w.count++
	if w.count > l.limit {
		return Decision{Allowed: false, Limit: l.limit, RetryAfter: w.reset.Sub(now)}, nil
	}
	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - w.count}, nil
}

func (l *MemoryLimiter) earliestResetLocked(now time.Time) time.Duration {
	wait := l.period
	for _, w := range l.windows {
		if d := w.reset.Sub(now); d < wait {
			wait = d
		}
	}
	return wait
}

// Len reports how many windows are tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

var _ Limiter = (*MemoryLimiter)(nil)
