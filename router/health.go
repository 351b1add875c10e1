package router

import (
	"time"
)

// Health is the externally visible snapshot of one backend's health record.
type Health struct {
	Healthy             bool          `json:"healthy"`
	Latency             time.Duration `json:"latency"`
	ErrorRate           float64       `json:"error_rate"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastCheck           time.Time     `json:"last_check"`
}

// HealthOptions tune the health estimator.
type HealthOptions struct {
	// Alpha is the EWMA smoothing factor for latency and error rate.
	Alpha float64

	// FailureThreshold is the consecutive-failure count at which a backend
	// is marked unhealthy.
	FailureThreshold int
}

// DefaultHealthOptions returns the baseline estimator tuning.
func DefaultHealthOptions() HealthOptions {
	return HealthOptions{Alpha: 0.3, FailureThreshold: 3}
}

// healthState is the mutable per-backend record. It is created on backend
// registration and mutated only under the router's lock by call outcomes and
// probe results; it is never shared across router instances.
type healthState struct {
	healthy             bool
	latency             time.Duration
	errorRate           float64
	consecutiveFailures int
	lastCheck           time.Time
	observed            bool // first latency sample seeds the EWMA
}

func newHealthState() *healthState {
	return &healthState{healthy: true}
}

func (h *healthState) snapshot() Health {
	return Health{
		Healthy:             h.healthy,
		Latency:             h.latency,
		ErrorRate:           h.errorRate,
		ConsecutiveFailures: h.consecutiveFailures,
		LastCheck:           h.lastCheck,
	}
}

func (h *healthState) ewma(alpha float64, sample, prev float64) float64 {
	return alpha*sample + (1-alpha)*prev
}

func (h *healthState) recordSuccess(opts HealthOptions, latency time.Duration) {
	if !h.observed {
		h.latency = latency
		h.observed = true
	} else {
		h.latency = time.Duration(h.ewma(opts.Alpha, float64(latency), float64(h.latency)))
	}
	h.errorRate = h.ewma(opts.Alpha, 0, h.errorRate)
	h.consecutiveFailures = 0
	h.healthy = true
	h.lastCheck = time.Now().UTC()
}

func (h *healthState) recordFailure(opts HealthOptions) {
	h.errorRate = h.ewma(opts.Alpha, 1, h.errorRate)
	h.consecutiveFailures++
	if h.consecutiveFailures >= opts.FailureThreshold {
		h.healthy = false
	}
	h.lastCheck = time.Now().UTC()
}

func (h *healthState) recordProbe(opts HealthOptions, ok bool) {
	if ok {
		h.healthy = true
		h.consecutiveFailures = 0
	} else {
		h.consecutiveFailures++
		if h.consecutiveFailures >= opts.FailureThreshold {
			h.healthy = false
		}
	}
	h.lastCheck = time.Now().UTC()
}
