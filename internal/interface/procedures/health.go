package procedures

import (
	"context"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/davitrie/userbase/internal/rpc"
)

// HealthDeps wires the public health procedures: plain ones run the base
// chain, ping additionally runs the per-procedure rate limiter.
type HealthDeps struct {
	Env         string
	StartedAt   time.Time
	Validate    *validator.Validate
	Base        []rpc.Middleware
	RateLimited []rpc.Middleware
}

type echoInput struct {
	Message string `json:"message" validate:"required,min=1,max=1000"`
}

type pingInput struct {
	Delay *int `json:"delay" validate:"omitempty,gte=0,lte=5000"`
}

// RegisterHealth registers health.check, health.echo and health.ping.
// All three are public.
func RegisterHealth(r *rpc.Router, d HealthDeps) {
	r.Register(rpc.Procedure{
		Path:        "health.check",
		Kind:        rpc.KindQuery,
		Middlewares: d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, _ any) (any, error) {
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)

			return map[string]any{
				"status":      "ok",
				"timestamp":   time.Now().UTC().Format(time.RFC3339),
				"uptime":      int(time.Since(d.StartedAt).Seconds()),
				"environment": d.Env,
				"memory": map[string]any{
					"used":  mem.HeapAlloc / 1024 / 1024,
					"total": mem.HeapSys / 1024 / 1024,
				},
				"version": runtime.Version(),
			}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:        "health.echo",
		Kind:        rpc.KindQuery,
		Input:       rpc.SchemaFor[echoInput](d.Validate),
		Middlewares: d.Base,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(echoInput)
			return map[string]any{
				"echo":      in.Message,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:        "health.ping",
		Kind:        rpc.KindQuery,
		Input:       rpc.SchemaFor[pingInput](d.Validate),
		Middlewares: d.RateLimited,
		Handler: func(ctx context.Context, call *rpc.CallContext, input any) (any, error) {
			in := input.(pingInput)
			delay := 0
			if in.Delay != nil {
				delay = *in.Delay
			}
			if delay > 0 {
				select {
				case <-time.After(time.Duration(delay) * time.Millisecond):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return map[string]any{
				"pong":      true,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"delay":     delay,
				"message":   "pong from the rpc server",
			}, nil
		},
	})
}
