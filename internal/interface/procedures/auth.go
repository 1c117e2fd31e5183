package procedures

import (
	"context"
	"time"

	"github.com/davitrie/userbase/internal/rpc"
)

// RegisterAuth registers the authenticated connectivity procedures. Both
// require a verified user in the call context; the router rejects
// unauthenticated calls before these handlers run.
func RegisterAuth(r *rpc.Router, base []rpc.Middleware) {
	r.Register(rpc.Procedure{
		Path:         "auth.me",
		Kind:         rpc.KindQuery,
		RequiresAuth: true,
		Middlewares:  base,
		Handler: func(ctx context.Context, call *rpc.CallContext, _ any) (any, error) {
			return map[string]any{
				"id":        call.User.ID,
				"email":     call.User.Email,
				"message":   "successfully authenticated",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}, nil
		},
	})

	r.Register(rpc.Procedure{
		Path:         "auth.ping",
		Kind:         rpc.KindQuery,
		RequiresAuth: true,
		Middlewares:  base,
		Handler: func(ctx context.Context, call *rpc.CallContext, _ any) (any, error) {
			return map[string]any{
				"pong":      true,
				"message":   "authenticated pong",
				"userId":    call.User.ID,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}, nil
		},
	})
}
