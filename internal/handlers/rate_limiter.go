package handlers

import (
	"strings"
	"sync"
	"time"
)

// rateLimiter admits or rejects an attempt for key. When rejected it reports how long until
// the window resets.
type rateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// fixedWindowLimiter counts attempts per key in windows that start at the first attempt.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*attemptWindow
}

type attemptWindow struct {
	attempts int
	resetAt  time.Time
}

// newFixedWindowLimiter returns nil, meaning unlimited, for a non-positive limit or window.
func newFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{limit: limit, window: window, now: clock, windows: map[string]*attemptWindow{}}
}

func (l *fixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	if key = strings.TrimSpace(key); key == "" {
		key = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		l.forgetExpired(now)
		l.windows[key] = &attemptWindow{attempts: 1, resetAt: now.Add(l.window)}
		return true, 0
	}
	if w.attempts >= l.limit {
		return false, w.resetAt.Sub(now)
	}
	w.attempts++
	return true, 0
}

func (l *fixedWindowLimiter) forgetExpired(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}
