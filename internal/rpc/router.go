package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind distinguishes reads from writes at the dispatch boundary.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Schema parses raw input into a typed value or a bad-request error listing
// every violated field. Parsing is total: malformed input yields a failure
// value, never a panic.
type Schema func(raw json.RawMessage) (any, *Error)

// Procedure is one registry entry: a dotted path mapped to a handler with
// its middleware chain and context requirement.
type Procedure struct {
	Path         string
	Kind         Kind
	Input        Schema // nil means no input expected
	RequiresAuth bool
	Middlewares  []Middleware
	Handler      Handler
}

// Router maps dotted paths to procedures and dispatches inbound calls.
type Router struct {
	procedures map[string]*Procedure
	handlers   map[string]Handler // chain composed at registration
}

func NewRouter() *Router {
	return &Router{
		procedures: make(map[string]*Procedure),
		handlers:   make(map[string]Handler),
	}
}

// Register adds a procedure. Duplicate paths and missing handlers are
// configuration errors raised at startup, not at call time.
func (r *Router) Register(p Procedure) {
	if p.Path == "" {
		panic("rpc: procedure path must not be empty")
	}
	if p.Handler == nil {
		panic(fmt.Sprintf("rpc: procedure %q has no handler", p.Path))
	}
	if p.Kind != KindQuery && p.Kind != KindMutation {
		panic(fmt.Sprintf("rpc: procedure %q has invalid kind %q", p.Path, p.Kind))
	}
	if _, exists := r.procedures[p.Path]; exists {
		panic(fmt.Sprintf("rpc: duplicate procedure path %q", p.Path))
	}
	proc := p
	r.procedures[p.Path] = &proc
	r.handlers[p.Path] = compose(p.Path, p.Kind, p.Middlewares, p.Handler)
}

// Lookup returns the registered procedure for a path.
func (r *Router) Lookup(path string) (*Procedure, bool) {
	p, ok := r.procedures[path]
	return p, ok
}

// Paths returns all registered paths, sorted.
func (r *Router) Paths() []string {
	out := make([]string, 0, len(r.procedures))
	for p := range r.procedures {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Dispatch resolves the path, enforces the auth gate, validates input and
// runs the composed middleware chain around the handler. Auth is checked
// before validation so a validation failure on an unauthorized call is
// never observable.
func (r *Router) Dispatch(ctx context.Context, call *CallContext, path string, kind Kind, raw json.RawMessage) (any, error) {
	proc, ok := r.procedures[path]
	if !ok || proc.Kind != kind {
		return nil, NotFound(fmt.Sprintf("no %s procedure on path %q", kind, path))
	}

	if proc.RequiresAuth && (call == nil || call.User == nil) {
		return nil, Unauthorized("authentication required")
	}

	var input any
	if proc.Input != nil {
		parsed, verr := proc.Input(raw)
		if verr != nil {
			return nil, verr
		}
		input = parsed
	}

	return r.handlers[path](ctx, call, input)
}
