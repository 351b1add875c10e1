package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/johnhenry/aimatey/backend"
	"github.com/johnhenry/aimatey/format"
	"github.com/johnhenry/aimatey/ir"
	"github.com/johnhenry/aimatey/logging"
)

// Options configure a Router.
type Options struct {
	Strategy        Strategy
	FallbackOnError bool

	// Weights drive the weighted strategy, keyed by backend name. Unlisted
	// backends default to weight 1.
	Weights map[string]float64

	// Costs drive the least-cost strategy, keyed by backend name. The unit
	// is caller-defined; only relative order matters.
	Costs map[string]float64

	// Custom is required when Strategy is StrategyCustom.
	Custom CustomSelector

	Health HealthOptions
	Logger logging.Logger
}

// Router dispatches calls across multiple backends with strategy-based
// selection, health tracking and optional fallback.
type Router struct {
	mu          sync.Mutex
	backends    []backend.Adapter
	health      map[string]*healthState
	strategy    Strategy
	fallback    bool
	weights     map[string]float64
	costs       map[string]float64
	custom      CustomSelector
	counter     uint64
	healthOpts  HealthOptions
	logger      logging.Logger
	subscribers []func(Event)
}

// New creates a router over the given backends in priority order.
func New(backends []backend.Adapter, optFns ...func(o *Options)) *Router {
	opts := Options{
		Strategy: StrategyRoundRobin,
		Health:   DefaultHealthOptions(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Health.Alpha <= 0 || opts.Health.Alpha > 1 {
		opts.Health.Alpha = DefaultHealthOptions().Alpha
	}
	if opts.Health.FailureThreshold < 1 {
		opts.Health.FailureThreshold = DefaultHealthOptions().FailureThreshold
	}

	r := &Router{
		backends:   make([]backend.Adapter, 0, len(backends)),
		health:     map[string]*healthState{},
		strategy:   opts.Strategy,
		fallback:   opts.FallbackOnError,
		weights:    opts.Weights,
		costs:      opts.Costs,
		custom:     opts.Custom,
		healthOpts: opts.Health,
		logger:     opts.Logger,
	}
	for _, be := range backends {
		r.Register(be)
	}
	return r
}

// Register appends a backend and creates its health record.
func (r *Router) Register(be backend.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends = append(r.backends, be)
	r.health[be.Name()] = newHealthState()
}

// GetBackendHealth returns a copy of every backend's health record.
func (r *Router) GetBackendHealth() map[string]Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Health, len(r.health))
	for name, h := range r.health {
		out[name] = h.snapshot()
	}
	return out
}

func (r *Router) recordSuccess(name string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.health[name]; ok {
		h.recordSuccess(r.healthOpts, latency)
	}
}

func (r *Router) recordFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.health[name]; ok {
		h.recordFailure(r.healthOpts)
	}
}

// retryable reports whether the fallback chain should try another backend.
// Conversion and validation failures mark malformed input; backend errors
// carry their own retryability hint.
func retryable(err error) bool {
	var ve *ir.ValidationError
	var ce *format.ConversionError
	if errors.As(err, &ve) || errors.As(err, &ce) {
		return false
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return be.Retryable
	}
	return true
}

// pick selects the next backend excluding already tried indices.
func (r *Router) pick(req ir.ChatRequest, tried map[int]bool) (int, backend.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.backends) == 0 {
		return 0, nil, &RoutingError{Reason: "no backends registered"}
	}
	candidates := make([]int, 0, len(r.backends))
	for i := range r.backends {
		if !tried[i] {
			candidates = append(candidates, i)
		}
	}
	idx, err := r.selectBackend(req, candidates)
	if err != nil {
		return 0, nil, err
	}
	return idx, r.backends[idx], nil
}

// dispatch runs the selection/fallback loop around one call function.
func (r *Router) dispatch(ctx context.Context, req ir.ChatRequest, call func(be backend.Adapter) error) error {
	if err := req.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	maxAttempts := len(r.backends)
	r.mu.Unlock()
	if !r.fallback {
		maxAttempts = 1
	}

	tried := map[int]bool{}
	var attempts []AttemptFailure
	prev := ""

	for attempt := 0; attempt < maxAttempts; attempt++ {
		idx, be, err := r.pick(req, tried)
		if err != nil {
			break // no remaining candidates
		}
		tried[idx] = true
		name := be.Name()

		if attempt > 0 {
			r.logger.Warn("switching backend", "from", prev, "to", name, "attempt", attempt)
			r.emit(Event{Type: EventBackendSwitched, Backend: name, Previous: prev, Attempt: attempt})
		}
		r.emit(Event{Type: EventBackendSelected, Backend: name, Attempt: attempt})

		callErr := call(be)
		if callErr == nil {
			return nil
		}

		r.recordFailure(name)
		r.emit(Event{Type: EventBackendFailed, Backend: name, Attempt: attempt, Err: callErr})
		r.logger.Error("backend call failed", "backend", name, "attempt", attempt, "error", callErr)
		attempts = append(attempts, AttemptFailure{Backend: name, Err: callErr})
		prev = name

		if !retryable(callErr) {
			return callErr
		}
	}

	switch len(attempts) {
	case 0:
		return &RoutingError{Reason: "no backends registered"}
	case 1:
		if !r.fallback {
			return attempts[0].Err
		}
	}
	return &AllBackendsFailedError{Attempts: attempts}
}

// Chat dispatches a synchronous call, updating health after every attempt and
// falling back across backends when enabled.
func (r *Router) Chat(ctx context.Context, req ir.ChatRequest) (*ir.ChatResponse, error) {
	req.Params.Clamp()
	var resp *ir.ChatResponse
	err := r.dispatch(ctx, req, func(be backend.Adapter) error {
		start := time.Now()
		out, callErr := be.Execute(ctx, req)
		if callErr != nil {
			return callErr
		}
		r.recordSuccess(be.Name(), time.Since(start))
		resp = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ChatStream dispatches a streaming call. Fallback applies to stream setup
// only; once chunks flow, failures arrive in-band and are folded into the
// backend's health when the terminal chunk passes through.
func (r *Router) ChatStream(ctx context.Context, req ir.ChatRequest) (<-chan ir.StreamChunk, error) {
	req.Stream = true
	req.Params.Clamp()
	var out <-chan ir.StreamChunk
	err := r.dispatch(ctx, req, func(be backend.Adapter) error {
		start := time.Now()
		chunks, callErr := be.ExecuteStream(ctx, req)
		if callErr != nil {
			return callErr
		}
		out = r.monitorStream(ctx, be.Name(), start, chunks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// monitorStream forwards chunks unchanged while folding the stream outcome
// into the backend's health record at the terminal chunk.
func (r *Router) monitorStream(ctx context.Context, name string, start time.Time, in <-chan ir.StreamChunk) <-chan ir.StreamChunk {
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
			switch c.Type {
			case ir.ChunkDone:
				r.recordSuccess(name, time.Since(start))
			case ir.ChunkError:
				r.recordFailure(name)
				r.emit(Event{Type: EventBackendFailed, Backend: name, Err: errors.New(c.ErrorMessage)})
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
