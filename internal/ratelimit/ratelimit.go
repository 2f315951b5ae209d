package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Rule allows Limit events per Window, refilled smoothly.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result contains rate limit status for one event.
type Result struct {
	Limit     int
	Remaining int
	RetryIn   time.Duration
}

type entry struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// Limiter implements token-bucket rate limiting per key (a chat channel).
type Limiter struct {
	mu      sync.Mutex
	rule    Rule
	every   rate.Limit
	entries map[string]*entry
	clock   Clock
}

// NewLimiter creates a Limiter applying rule to every key.
func NewLimiter(rule Rule) *Limiter {
	return NewLimiterWithClock(rule, realClock{})
}

func NewLimiterWithClock(rule Rule, clock Clock) *Limiter {
	if rule.Limit < 1 {
		rule.Limit = 1
	}
	if rule.Window <= 0 {
		rule.Window = time.Minute
	}
	return &Limiter{
		rule:    rule,
		every:   rate.Every(rule.Window / time.Duration(rule.Limit)),
		entries: make(map[string]*entry),
		clock:   clock,
	}
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) (Result, bool) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{bucket: rate.NewLimiter(l.every, l.rule.Limit)}
		l.entries[key] = e
	}
	e.lastSeen = now

	if e.bucket.AllowN(now, 1) {
		return Result{Limit: l.rule.Limit, Remaining: int(e.bucket.TokensAt(now))}, true
	}

	r := e.bucket.ReserveN(now, 1)
	retryIn := r.DelayFrom(now)
	r.CancelAt(now)
	return Result{Limit: l.rule.Limit, RetryIn: retryIn}, false
}

// Cleanup removes buckets idle long enough to have refilled. Call
// periodically to prevent unbounded growth.
func (l *Limiter) Cleanup() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if now.Sub(e.lastSeen) >= l.rule.Window {
			delete(l.entries, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
