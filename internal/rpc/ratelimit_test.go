package rpc

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterCeiling(t *testing.T) {
	l := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("client:path"); !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	ok, resetIn := l.Allow("client:path")
	if ok {
		t.Fatal("call over the ceiling must be rejected")
	}
	if resetIn <= 0 || resetIn > 60 {
		t.Fatalf("resetIn out of range: %d", resetIn)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)

	if ok, _ := l.Allow("a:path"); !ok {
		t.Fatal("first call for key a should be allowed")
	}
	if ok, _ := l.Allow("b:path"); !ok {
		t.Fatal("first call for key b should be allowed")
	}
	if ok, _ := l.Allow("a:path"); ok {
		t.Fatal("second call for key a must be rejected")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	now := time.Now()
	l := NewRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("first call should be allowed")
	}
	if ok, _ := l.Allow("k"); ok {
		t.Fatal("second call in window must be rejected")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("call after window elapsed must reset the counter and succeed")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(2, time.Minute)
	mw := l.Middleware()
	call := NewCallContext("10.0.0.1", nil, nil)

	next := func() (any, error) { return "ok", nil }

	for i := 0; i < 2; i++ {
		if _, err := mw(context.Background(), call, "health.ping", KindQuery, next); err != nil {
			t.Fatalf("call %d failed: %v", i+1, err)
		}
	}

	_, err := mw(context.Background(), call, "health.ping", KindQuery, next)
	rpcErr, ok := AsError(err)
	if !ok || rpcErr.Code != CodeTooManyRequests {
		t.Fatalf("expected TOO_MANY_REQUESTS, got %v", err)
	}
	if rpcErr.RetryAfter <= 0 {
		t.Fatal("expected retry-after seconds on rate-limit error")
	}

	// Same IP, different path: separate window.
	if _, err := mw(context.Background(), call, "health.check", KindQuery, next); err != nil {
		t.Fatalf("different path must have its own window: %v", err)
	}

	// Authenticated caller: keyed by user id, not IP.
	authed := NewCallContext("10.0.0.1", &User{ID: "u-1"}, nil)
	if _, err := mw(context.Background(), authed, "health.ping", KindQuery, next); err != nil {
		t.Fatalf("authenticated caller must have its own window: %v", err)
	}
}
