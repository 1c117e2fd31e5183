package procedures

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davitrie/userbase/internal/rpc"
	"github.com/davitrie/userbase/pkg/validation"
)

func healthRouter(t *testing.T, pingMax int) *rpc.Router {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	base := []rpc.Middleware{rpc.ErrorNormalization(logger), rpc.Logging(logger)}
	limiter := rpc.NewRateLimiter(pingMax, time.Minute)

	r := rpc.NewRouter()
	RegisterHealth(r, HealthDeps{
		Env:         "test",
		StartedAt:   time.Now().Add(-5 * time.Second),
		Validate:    validation.New(),
		Base:        base,
		RateLimited: append(append([]rpc.Middleware{}, base...), limiter.Middleware()),
	})
	return r
}

func dispatch(t *testing.T, r *rpc.Router, path string, input string) (map[string]any, error) {
	t.Helper()
	var raw json.RawMessage
	if input != "" {
		raw = json.RawMessage(input)
	}
	res, err := r.Dispatch(context.Background(), rpc.NewCallContext("127.0.0.1", nil, nil), path, rpc.KindQuery, raw)
	if err != nil {
		return nil, err
	}
	out, ok := res.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", res)
	}
	return out, nil
}

func TestHealthCheck(t *testing.T) {
	r := healthRouter(t, 30)
	out, err := dispatch(t, r, "health.check", "")
	if err != nil {
		t.Fatalf("health.check failed: %v", err)
	}
	if out["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", out["status"])
	}
	if out["environment"] != "test" {
		t.Fatalf("expected environment test, got %v", out["environment"])
	}
	if out["uptime"].(int) < 5 {
		t.Fatalf("expected uptime >= 5s, got %v", out["uptime"])
	}
}

func TestHealthEcho(t *testing.T) {
	r := healthRouter(t, 30)
	out, err := dispatch(t, r, "health.echo", `{"message":"hello"}`)
	if err != nil {
		t.Fatalf("health.echo failed: %v", err)
	}
	if out["echo"] != "hello" {
		t.Fatalf("expected echo hello, got %v", out["echo"])
	}
}

func TestHealthEchoMessageTooLong(t *testing.T) {
	r := healthRouter(t, 30)
	long := strings.Repeat("x", 1001)
	_, err := dispatch(t, r, "health.echo", `{"message":"`+long+`"}`)
	rpcErr, ok := rpc.AsError(err)
	if !ok || rpcErr.Code != rpc.CodeBadRequest {
		t.Fatalf("1001-char message must be BAD_REQUEST, got %v", err)
	}
	if rpcErr.Details["message"] == "" {
		t.Fatalf("expected message detail, got %v", rpcErr.Details)
	}
}

func TestHealthPingDelay(t *testing.T) {
	r := healthRouter(t, 30)

	start := time.Now()
	out, err := dispatch(t, r, "health.ping", `{"delay":100}`)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("health.ping failed: %v", err)
	}
	if out["pong"] != true {
		t.Fatalf("expected pong true, got %v", out["pong"])
	}
	if out["delay"] != 100 {
		t.Fatalf("expected delay echoed back, got %v", out["delay"])
	}
	if elapsed < 90*time.Millisecond {
		t.Fatalf("expected response after ~100ms, took %v", elapsed)
	}
}

func TestHealthPingDelayOutOfRange(t *testing.T) {
	r := healthRouter(t, 30)
	_, err := dispatch(t, r, "health.ping", `{"delay":5001}`)
	rpcErr, ok := rpc.AsError(err)
	if !ok || rpcErr.Code != rpc.CodeBadRequest {
		t.Fatalf("delay over the maximum must be BAD_REQUEST, got %v", err)
	}
}

func TestHealthPingRateLimited(t *testing.T) {
	r := healthRouter(t, 3)

	for i := 0; i < 3; i++ {
		if _, err := dispatch(t, r, "health.ping", ""); err != nil {
			t.Fatalf("call %d failed: %v", i+1, err)
		}
	}
	_, err := dispatch(t, r, "health.ping", "")
	rpcErr, ok := rpc.AsError(err)
	if !ok || rpcErr.Code != rpc.CodeTooManyRequests {
		t.Fatalf("expected TOO_MANY_REQUESTS, got %v", err)
	}

	// Other health procedures keep working while ping is limited.
	if _, err := dispatch(t, r, "health.check", ""); err != nil {
		t.Fatalf("health.check must not share ping's window: %v", err)
	}
}

func TestHealthPingCancelledContext(t *testing.T) {
	r := healthRouter(t, 30)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Dispatch(ctx, rpc.NewCallContext("127.0.0.1", nil, nil), "health.ping", rpc.KindQuery, json.RawMessage(`{"delay":2000}`))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
