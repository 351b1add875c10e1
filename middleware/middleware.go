package middleware

import (
	"context"
	"fmt"

	"github.com/johnhenry/aimatey/ir"
)

// Middleware is a named record of optional hook functions. Any nil hook is
// skipped. The chain that holds a middleware owns it; its lifecycle ends on
// explicit removal, at which point Cleanup is invoked.
type Middleware struct {
	// Name identifies the middleware for removal and error attribution.
	Name string

	// OnRequest may transform the request before it reaches the backend.
	OnRequest func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatRequest, error)

	// OnResponse may transform the response before it reaches the caller.
	OnResponse func(ctx context.Context, resp *ir.ChatResponse) (*ir.ChatResponse, error)

	// OnStreamChunk may transform each chunk in flight.
	OnStreamChunk func(ctx context.Context, c ir.StreamChunk) (ir.StreamChunk, error)

	// OnError inspects a call failure. Returning nil suppresses propagation
	// (the caller treats the error as handled and may retry); returning a
	// non-nil error re-raises that, possibly transformed, error.
	OnError func(ctx context.Context, err error) error

	// Cleanup releases resources when the middleware is removed from its
	// chain. A failing cleanup never blocks removal of other middlewares.
	Cleanup func() error
}

// HookError reports that a specific middleware hook failed. It wraps the
// underlying cause for errors.Is/As matching.
type HookError struct {
	Middleware string
	Phase      string // request, response, chunk
	Cause      error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("middleware %q %s hook: %v", e.Middleware, e.Phase, e.Cause)
}

// Unwrap returns the underlying hook failure.
func (e *HookError) Unwrap() error { return e.Cause }
