// Package ratelimit implements fixed-window attempt counters keyed by client
// identifier. State lives in process memory only: a restart clears every
// window.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

type record struct {
	count       int
	lastAttempt time.Time
	expiresAt   time.Time
}

// Result is the outcome of a single Check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterMinutes rounds RetryAfter up to whole minutes for display.
func (r Result) RetryAfterMinutes() int {
	if r.Allowed {
		return 0
	}
	m := int(math.Ceil(r.RetryAfter.Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}

// Limiter counts attempts per key inside a window. It is safe for
// concurrent use; Check is atomic per key.
type Limiter struct {
	name    string
	max     int
	window  time.Duration
	now     Clock
	mu      sync.Mutex
	records map[string]*record
}

// New builds a limiter allowing maxAttempts per window. A nil clock means
// time.Now.
func New(name string, maxAttempts int, window time.Duration, clock Clock) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Limiter{
		name:    name,
		max:     maxAttempts,
		window:  window,
		now:     clock,
		records: make(map[string]*record),
	}
}

func (l *Limiter) Name() string { return l.name }

// expired is the single window predicate shared by Check and Sweep.
func expired(now, expiresAt time.Time) bool {
	return now.After(expiresAt)
}

// Check consumes one attempt for key with the limiter's configured budget.
func (l *Limiter) Check(key string) Result {
	return l.CheckWith(key, l.max, l.window)
}

// CheckWith consumes one attempt for key with an explicit budget.
func (l *Limiter) CheckWith(key string, maxAttempts int, window time.Duration) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || expired(now, rec.expiresAt) {
		l.records[key] = &record{count: 1, lastAttempt: now, expiresAt: now.Add(window)}
		return Result{Allowed: true, Remaining: maxAttempts - 1}
	}

	if rec.count >= maxAttempts {
		return Result{Allowed: false, RetryAfter: rec.expiresAt.Sub(now)}
	}

	rec.count++
	rec.lastAttempt = now
	return Result{Allowed: true, Remaining: maxAttempts - rec.count}
}

// Sweep drops every record whose window has passed and returns how many
// were removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, rec := range l.records {
		if expired(now, rec.expiresAt) {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
