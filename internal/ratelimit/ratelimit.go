package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits or rejects one request attempt for an identity. Limit
// and Window report the configured quota so handlers can echo it to
// callers being throttled.
type Limiter interface {
	Allow(ctx context.Context, identity string) (bool, error)
	Limit() int
	Window() time.Duration
}

// MemoryLimiter keeps a sliding log of request timestamps per identity.
// Entries older than the window are purged on every attempt, and
// rejected attempts are never recorded, so a flooding identity holds at
// most Limit timestamps at steady state. State lives in process memory
// only; every quota resets on restart.
type MemoryLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

type Option func(*MemoryLimiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *MemoryLimiter) { l.now = now }
}

func NewMemoryLimiter(limit int, window time.Duration, opts ...Option) *MemoryLimiter {
	l := &MemoryLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow runs purge-check-append as a single critical section so two
// concurrent requests for the same identity cannot both slip past the
// quota.
func (l *MemoryLimiter) Allow(ctx context.Context, identity string) (bool, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.requests[identity]
	kept := log[:0]
	for _, t := range log {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.requests[identity] = kept
		return false, nil
	}

	l.requests[identity] = append(kept, now)
	return true, nil
}

func (l *MemoryLimiter) Limit() int            { return l.limit }
func (l *MemoryLimiter) Window() time.Duration { return l.window }
