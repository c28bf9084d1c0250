// Package ratelimit provides a small in-process per-client daily limiter
// used to cap wish creation per IP. State is explicit and self-contained:
// a mutex-guarded map of counters with per-key reset instants, pruned lazily
// as keys expire. It deliberately lives outside the core lifecycle logic.
package ratelimit

import (
	"sync"
	"time"
)

// Clock matches the app clock port so tests can drive the window.
type Clock interface {
	Now() time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter counts events per key within a fixed window.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	clock  Clock
	seen   map[string]*entry
}

// New returns a Limiter allowing max events per key per window.
func New(max int, window time.Duration, clock Clock) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		clock:  clock,
		seen:   make(map[string]*entry),
	}
}

// Allow reports whether the key may perform another event right now and, if
// allowed, counts it. When denied it also returns the time the window
// resets, so callers can surface a retry hint.
func (l *Limiter) Allow(key string) (ok bool, resetAt time.Time) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)
	e := l.seen[key]
	if e == nil || !now.Before(e.resetAt) {
		e = &entry{resetAt: now.Add(l.window)}
		l.seen[key] = e
	}
	if e.count >= l.max {
		return false, e.resetAt
	}
	e.count++
	return true, e.resetAt
}

// Remaining reports how many events the key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.seen[key]
	if e == nil || !now.Before(e.resetAt) {
		return l.max
	}
	n := l.max - e.count
	if n < 0 {
		n = 0
	}
	return n
}

// pruneLocked drops expired entries so the map tracks only live windows.
func (l *Limiter) pruneLocked(now time.Time) {
	for k, e := range l.seen {
		if !now.Before(e.resetAt) {
			delete(l.seen, k)
		}
	}
}
