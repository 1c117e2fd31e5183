package rpc

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window counter keyed by (client id, path).
// Each limiter owns its table; router instances never share state.
// The read-check-increment sequence is serialized by the mutex.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow

	max    int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// Allow records one call for key. When the window ceiling is reached it
// returns false along with the seconds remaining until the window resets.
func (l *RateLimiter) Allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &rateWindow{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}

	if w.count >= l.max {
		resetIn := int(math.Ceil(w.resetAt.Sub(now).Seconds()))
		return false, resetIn
	}

	w.count++
	return true, 0
}

// Middleware rejects calls over the ceiling with a typed too-many-requests
// error carrying the seconds until reset.
func (l *RateLimiter) Middleware() Middleware {
	return func(ctx context.Context, call *CallContext, path string, kind Kind, next func() (any, error)) (any, error) {
		key := call.ClientID() + ":" + path
		ok, resetIn := l.Allow(key)
		if !ok {
			msg := fmt.Sprintf("rate limit exceeded for %s. Try again in %d seconds.", path, resetIn)
			return nil, TooManyRequests(msg, resetIn)
		}
		return next()
	}
}
