package bridge

import (
	"context"
	"time"

	"github.com/johnhenry/aimatey/backend"
	"github.com/johnhenry/aimatey/format"
	"github.com/johnhenry/aimatey/ir"
	"github.com/johnhenry/aimatey/logging"
	"github.com/johnhenry/aimatey/middleware"
)

// Options configure a Bridge.
type Options struct {
	// Chain is the middleware chain applied around every call. A fresh empty
	// chain is created when nil.
	Chain *middleware.Chain

	// MaxErrorRetries bounds how often a call is re-executed after the error
	// chain suppressed a failure (suppression signals "handled, retry").
	MaxErrorRetries int

	Logger logging.Logger
}

// Bridge is the single-backend façade combining format conversion, middleware
// and execution.
type Bridge struct {
	frontend format.Adapter
	backend  backend.Adapter
	chain    *middleware.Chain
	retries  int
	logger   logging.Logger
}

// New creates a bridge between one wire format and one backend.
func New(frontend format.Adapter, be backend.Adapter, optFns ...func(o *Options)) *Bridge {
	opts := Options{MaxErrorRetries: 1, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Chain == nil {
		opts.Chain = middleware.NewChain()
	}
	return &Bridge{
		frontend: frontend,
		backend:  be,
		chain:    opts.Chain,
		retries:  opts.MaxErrorRetries,
		logger:   opts.Logger,
	}
}

// Chain exposes the middleware chain for registration and removal.
func (b *Bridge) Chain() *middleware.Chain { return b.chain }

// prepare converts and validates the inbound request, then applies the
// request chain. Conversion and validation failures run the error chain
// before propagating; suppression cannot conjure a request, so the original
// error propagates in that case.
func (b *Bridge) prepare(ctx context.Context, externalReq any) (*ir.ChatRequest, error) {
	req, err := b.frontend.ToIR(externalReq)
	if err != nil {
		return nil, b.raise(ctx, err)
	}
	if err := req.Validate(); err != nil {
		return nil, b.raise(ctx, err)
	}
	req.Params.Clamp()
	return b.chain.ApplyRequest(ctx, req)
}

func (b *Bridge) raise(ctx context.Context, err error) error {
	if transformed := b.chain.ApplyError(ctx, err); transformed != nil {
		return transformed
	}
	return err
}

// Chat performs a synchronous call: convert to IR, request chain, execute,
// response chain, convert back. When the error chain suppresses an execution
// failure the call is retried, up to MaxErrorRetries times.
func (b *Bridge) Chat(ctx context.Context, externalReq any) (any, error) {
	req, err := b.prepare(ctx, externalReq)
	if err != nil {
		return nil, err
	}

	var resp *ir.ChatResponse
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err = b.backend.Execute(ctx, *req)
		if err == nil {
			b.logger.Debug("backend call succeeded", "backend", b.backend.Name(), "duration", time.Since(start))
			break
		}
		transformed := b.chain.ApplyError(ctx, err)
		if transformed != nil {
			return nil, transformed
		}
		if attempt >= b.retries {
			return nil, err
		}
		b.logger.Info("error suppressed, retrying backend call", "backend", b.backend.Name(), "attempt", attempt+1)
	}

	resp, err = b.chain.ApplyResponse(ctx, resp)
	if err != nil {
		return nil, b.raise(ctx, err)
	}
	return b.frontend.FromIR(resp)
}

// ChatStream performs a streaming call. The backend's chunk stream passes
// through the per-chunk hooks before the outbound converter's stream
// generator; ordering is preserved end-to-end.
func (b *Bridge) ChatStream(ctx context.Context, externalReq any) (<-chan any, error) {
	req, err := b.prepare(ctx, externalReq)
	if err != nil {
		return nil, err
	}
	req.Stream = true

	var chunks <-chan ir.StreamChunk
	for attempt := 0; ; attempt++ {
		chunks, err = b.backend.ExecuteStream(ctx, *req)
		if err == nil {
			break
		}
		transformed := b.chain.ApplyError(ctx, err)
		if transformed != nil {
			return nil, transformed
		}
		if attempt >= b.retries {
			return nil, err
		}
		b.logger.Info("error suppressed, retrying backend stream", "backend", b.backend.Name(), "attempt", attempt+1)
	}

	return b.frontend.FromIRStream(ctx, b.chain.ApplyChunkStream(ctx, chunks)), nil
}
