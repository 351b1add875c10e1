package router

import (
	"context"
	"time"

	"github.com/johnhenry/aimatey/backend"
)

// ProbeOptions tune the health probe loop.
type ProbeOptions struct {
	// Interval between probe rounds.
	Interval time.Duration

	// Timeout bounds each individual backend probe.
	Timeout time.Duration
}

// StartHealthProbes launches the probe loop on its own goroutine and returns
// a stop function. Probes run on an independent timer: backend checks execute
// outside the router lock so they neither block nor are blocked by in-flight
// dispatch. Backends not implementing backend.HealthChecker are skipped.
// Cancelling ctx or calling stop ends the loop.
func (r *Router) StartHealthProbes(ctx context.Context, optFns ...func(o *ProbeOptions)) (stop func()) {
	opts := ProbeOptions{Interval: 30 * time.Second, Timeout: 5 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}

	probeCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.probeAll(probeCtx, opts.Timeout)
			case <-probeCtx.Done():
				return
			}
		}
	}()
	return cancel
}

func (r *Router) probeAll(ctx context.Context, timeout time.Duration) {
	r.mu.Lock()
	backends := make([]backend.Adapter, len(r.backends))
	copy(backends, r.backends)
	r.mu.Unlock()

	for _, be := range backends {
		hc, ok := be.(backend.HealthChecker)
		if !ok {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		healthy := hc.HealthCheck(probeCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}

		r.mu.Lock()
		if h, found := r.health[be.Name()]; found {
			h.recordProbe(r.healthOpts, healthy)
		}
		r.mu.Unlock()
		r.logger.Debug("health probe", "backend", be.Name(), "healthy", healthy)
	}
}
