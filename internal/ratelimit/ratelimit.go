// internal/ratelimit/ratelimit.go
//
// Best-effort per-client fixed-window submission limiter.
//
// Context
//   The submission endpoints are unauthenticated, so a cheap brake against
//   scripted floods is worth having even though Turnstile is the real
//   gate.  The limiter is explicitly approximate: counts live in process
//   memory, vanish on restart, and are not shared across instances.  A
//   background sweep drops expired windows so the map stays bounded.
//
// Workflow
//   •  Allow(key) starts or advances the caller's window and reports
//      whether the request may proceed, with a retry-after hint when not.
//   •  Run(ctx) sweeps on a ticker until the context is cancelled.
//
//------------------------------------------------------------------------------

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter counts hits per key within a fixed window.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   int
	window  time.Duration
}

// New builds a Limiter allowing limit hits per window per key.
func New(limit int, window time.Duration) *Limiter {
	if limit < 1 {
		panic("ratelimit: limit must be ≥1")
	}
	return &Limiter{
		entries: make(map[string]*entry),
		limit:   limit,
		window:  window,
	}
}

// Allow records one hit for key.  When the limit is exceeded it returns
// false plus the time until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}
	if e.count >= l.limit {
		return false, e.resetAt.Sub(now)
	}
	e.count++
	return true, 0
}

// Len reports the number of tracked keys; used by tests and the sweeper.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep removes expired windows and returns how many were dropped.
func (l *Limiter) sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
			dropped++
		}
	}
	return dropped
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.sweep(now)
		}
	}
}
