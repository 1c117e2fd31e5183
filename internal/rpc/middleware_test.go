package rpc

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestErrorNormalizationPassesTypedErrors(t *testing.T) {
	mw := ErrorNormalization(testLogger())
	want := NotFound("user with id 42 not found")

	_, err := mw(context.Background(), nil, "user.get", KindQuery, func() (any, error) {
		return nil, want
	})
	rpcErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected typed error, got %v", err)
	}
	if rpcErr != want {
		t.Fatal("typed errors must pass through unchanged")
	}
}

func TestErrorNormalizationWrapsUnknownErrors(t *testing.T) {
	mw := ErrorNormalization(testLogger())
	cause := errors.New("pgx: connection refused")

	_, err := mw(context.Background(), nil, "user.list", KindQuery, func() (any, error) {
		return nil, cause
	})
	rpcErr, ok := AsError(err)
	if !ok || rpcErr.Code != CodeInternal {
		t.Fatalf("expected INTERNAL_SERVER_ERROR, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("internal error must preserve the original cause")
	}
	if rpcErr.Message != "an unexpected error occurred" {
		t.Fatalf("internal message must stay generic, got %q", rpcErr.Message)
	}
}

func TestErrorNormalizationRecoversPanics(t *testing.T) {
	mw := ErrorNormalization(testLogger())

	_, err := mw(context.Background(), nil, "user.get", KindQuery, func() (any, error) {
		panic("boom")
	})
	rpcErr, ok := AsError(err)
	if !ok || rpcErr.Code != CodeInternal {
		t.Fatalf("expected INTERNAL_SERVER_ERROR from panic, got %v", err)
	}
}

func TestLoggingReturnsResultAndErrorUnchanged(t *testing.T) {
	mw := Logging(testLogger())

	res, err := mw(context.Background(), nil, "health.check", KindQuery, func() (any, error) {
		return "result", nil
	})
	if err != nil || res != "result" {
		t.Fatalf("expected passthrough, got (%v, %v)", res, err)
	}

	want := Conflict("user is already deleted")
	_, err = mw(context.Background(), nil, "user.softDelete", KindMutation, func() (any, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("logging must re-return errors unchanged, got %v", err)
	}
}

func TestComposeOrderIsOnion(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(ctx context.Context, call *CallContext, path string, kind Kind, next func() (any, error)) (any, error) {
			order = append(order, name+" in")
			res, err := next()
			order = append(order, name+" out")
			return res, err
		}
	}

	h := compose("p", KindQuery, []Middleware{tag("outer"), tag("inner")}, func(ctx context.Context, call *CallContext, input any) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})
	if _, err := h(context.Background(), nil, nil); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	want := []string{"outer in", "inner in", "handler", "inner out", "outer out"}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}
