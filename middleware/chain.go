package middleware

import (
	"context"
	"fmt"
	"sync"

	"github.com/johnhenry/aimatey/ir"
	"github.com/johnhenry/aimatey/logging"
)

// Chain holds an ordered list of middlewares and applies their hooks around
// calls. Registration and removal are synchronized so a chain may be shared
// by a bridge and a router; hook application takes a snapshot and runs
// lock-free.
type Chain struct {
	mu          sync.Mutex
	middlewares []Middleware
	logger      logging.Logger
}

// ChainOptions configure a Chain.
type ChainOptions struct {
	Logger logging.Logger
}

// NewChain creates an empty chain.
func NewChain(optFns ...func(o *ChainOptions)) *Chain {
	opts := ChainOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Chain{logger: opts.Logger}
}

// Use appends middlewares in registration order.
func (ch *Chain) Use(mws ...Middleware) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.middlewares = append(ch.middlewares, mws...)
}

// Len returns the number of registered middlewares.
func (ch *Chain) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.middlewares)
}

// Remove removes the first middleware with the given name and invokes its
// Cleanup. It reports whether a middleware was removed. A panicking or
// failing cleanup is logged and does not propagate.
func (ch *Chain) Remove(name string) bool {
	ch.mu.Lock()
	var removed *Middleware
	for i := range ch.middlewares {
		if ch.middlewares[i].Name == name {
			m := ch.middlewares[i]
			removed = &m
			ch.middlewares = append(ch.middlewares[:i], ch.middlewares[i+1:]...)
			break
		}
	}
	ch.mu.Unlock()
	if removed == nil {
		return false
	}
	ch.cleanup(*removed)
	return true
}

// RemoveAll removes every middleware, invoking each Cleanup in registration
// order. Cleanup failures are isolated per middleware.
func (ch *Chain) RemoveAll() {
	ch.mu.Lock()
	removed := ch.middlewares
	ch.middlewares = nil
	ch.mu.Unlock()
	for _, m := range removed {
		ch.cleanup(m)
	}
}

func (ch *Chain) cleanup(m Middleware) {
	if m.Cleanup == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ch.logger.Error("middleware cleanup panicked", "middleware", m.Name, "panic", fmt.Sprint(r))
		}
	}()
	if err := m.Cleanup(); err != nil {
		ch.logger.Warn("middleware cleanup failed", "middleware", m.Name, "error", err)
	}
}

func (ch *Chain) snapshot() []Middleware {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]Middleware, len(ch.middlewares))
	copy(out, ch.middlewares)
	return out
}

// ApplyRequest runs every OnRequest hook in registration order, threading the
// request through. A hook failure aborts the chain with a *HookError.
func (ch *Chain) ApplyRequest(ctx context.Context, req *ir.ChatRequest) (*ir.ChatRequest, error) {
	for _, m := range ch.snapshot() {
		if m.OnRequest == nil {
			continue
		}
		next, err := m.OnRequest(ctx, req)
		if err != nil {
			return nil, &HookError{Middleware: m.Name, Phase: "request", Cause: err}
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

// ApplyResponse runs every OnResponse hook in registration order — the same
// order as the request phase, not reversed.
func (ch *Chain) ApplyResponse(ctx context.Context, resp *ir.ChatResponse) (*ir.ChatResponse, error) {
	for _, m := range ch.snapshot() {
		if m.OnResponse == nil {
			continue
		}
		next, err := m.OnResponse(ctx, resp)
		if err != nil {
			return nil, &HookError{Middleware: m.Name, Phase: "response", Cause: err}
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}

// ApplyChunk runs every OnStreamChunk hook in registration order on one chunk.
func (ch *Chain) ApplyChunk(ctx context.Context, c ir.StreamChunk) (ir.StreamChunk, error) {
	for _, m := range ch.snapshot() {
		if m.OnStreamChunk == nil {
			continue
		}
		next, err := m.OnStreamChunk(ctx, c)
		if err != nil {
			return c, &HookError{Middleware: m.Name, Phase: "chunk", Cause: err}
		}
		c = next
	}
	return c, nil
}

// ApplyChunkStream applies the chunk hooks to every chunk of a stream. A hook
// failure terminates the output with an error chunk.
func (ch *Chain) ApplyChunkStream(ctx context.Context, in <-chan ir.StreamChunk) <-chan ir.StreamChunk {
	out := make(chan ir.StreamChunk)
	go func() {
		defer close(out)
		for {
			var c ir.StreamChunk
			var ok bool
			select {
			case c, ok = <-in:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
			next, err := ch.ApplyChunk(ctx, c)
			if err != nil {
				next = ir.ErrorChunkFrom("middleware_error", err)
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
			if next.Terminal() {
				return
			}
		}
	}()
	return out
}

// ApplyError runs every OnError hook in registration order, threading the
// possibly transformed error through. The first hook returning nil suppresses
// the error and ApplyError returns nil, signaling "handled" to the caller.
func (ch *Chain) ApplyError(ctx context.Context, err error) error {
	for _, m := range ch.snapshot() {
		if m.OnError == nil {
			continue
		}
		err = m.OnError(ctx, err)
		if err == nil {
			ch.logger.Debug("error suppressed by middleware", "middleware", m.Name)
			return nil
		}
	}
	return err
}
