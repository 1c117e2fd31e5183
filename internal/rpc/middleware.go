package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Handler executes a procedure against the built call context and its
// validated input.
type Handler func(ctx context.Context, call *CallContext, input any) (any, error)

// Middleware wraps procedure execution in the classic onion model: logic may
// run before next, inspect the result or error after next returns, or
// short-circuit by returning an error without calling next.
type Middleware func(ctx context.Context, call *CallContext, path string, kind Kind, next func() (any, error)) (any, error)

// compose fixes the chain at registration time; mws[0] is outermost.
func compose(path string, kind Kind, mws []Middleware, h Handler) Handler {
	wrapped := h
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		inner := wrapped
		wrapped = func(ctx context.Context, call *CallContext, input any) (any, error) {
			return mw(ctx, call, path, kind, func() (any, error) {
				return inner(ctx, call, input)
			})
		}
	}
	return wrapped
}

// Logging records call start, then completion or failure with elapsed
// milliseconds. Errors are re-returned unchanged.
func Logging(logger *logrus.Logger) Middleware {
	return func(ctx context.Context, call *CallContext, path string, kind Kind, next func() (any, error)) (any, error) {
		start := time.Now()
		logger.WithFields(logrus.Fields{"kind": kind, "path": path}).Debug("rpc call started")

		res, err := next()
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			logger.WithFields(logrus.Fields{"kind": kind, "path": path, "elapsed_ms": elapsed, "error": err.Error()}).Warn("rpc call failed")
			return nil, err
		}
		logger.WithFields(logrus.Fields{"kind": kind, "path": path, "elapsed_ms": elapsed}).Info("rpc call completed")
		return res, nil
	}
}

// ErrorNormalization runs outermost. Recognized typed errors pass through
// untouched; anything else (including panics) becomes an internal error with
// the original failure attached as cause. This is the single place unknown
// failures are coerced.
func ErrorNormalization(logger *logrus.Logger) Middleware {
	return func(ctx context.Context, call *CallContext, path string, kind Kind, next func() (any, error)) (res any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{"path": path, "panic": fmt.Sprintf("%v", r)}).Error("rpc handler panicked")
				res, err = nil, Internal(fmt.Errorf("panic: %v", r))
			}
		}()

		res, err = next()
		if err == nil {
			return res, nil
		}
		if _, ok := AsError(err); ok {
			return nil, err
		}
		logger.WithFields(logrus.Fields{"path": path, "error": err.Error()}).Error("rpc call returned untyped error")
		return nil, Internal(err)
	}
}
