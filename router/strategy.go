package router

import (
	"math/rand"

	"github.com/johnhenry/aimatey/ir"
)

// Strategy names a backend selection policy.
type Strategy string

const (
	// StrategyRoundRobin cycles through backends: counter mod len(backends).
	StrategyRoundRobin Strategy = "round_robin"
	// StrategyRandom picks uniformly among candidates.
	StrategyRandom Strategy = "random"
	// StrategyPriority picks the first backend not marked unhealthy, falling
	// back to the first candidate when none is healthy.
	StrategyPriority Strategy = "priority"
	// StrategyWeighted samples candidates by configured weight.
	StrategyWeighted Strategy = "weighted"
	// StrategyLeastLatency picks the healthy candidate with the lowest EWMA
	// latency.
	StrategyLeastLatency Strategy = "least_latency"
	// StrategyLeastCost picks the healthy candidate with the lowest
	// configured cost.
	StrategyLeastCost Strategy = "least_cost"
	// StrategyCustom delegates to a caller-supplied selector.
	StrategyCustom Strategy = "custom"
)

// CustomSelector is a caller-supplied strategy. It receives the request, the
// candidate backend names (in registration order, already excluding tried
// backends) and the current health snapshots, and returns an index into the
// candidate slice. Out-of-range returns fall back to the first candidate.
type CustomSelector func(req ir.ChatRequest, candidates []string, health map[string]Health) int

// selectBackend picks the next candidate index (into r.backends) for this
// attempt. candidates holds registration-order indices not yet tried. Called
// under r.mu.
func (r *Router) selectBackend(req ir.ChatRequest, candidates []int) (int, error) {
	if len(candidates) == 0 {
		return 0, &RoutingError{Reason: "no remaining backends"}
	}
	switch r.strategy {
	case StrategyRoundRobin:
		pick := int(r.counter % uint64(len(r.backends)))
		r.counter++
		// Advance to the next untried backend, keeping cycle order.
		for offset := 0; offset < len(r.backends); offset++ {
			idx := (pick + offset) % len(r.backends)
			for _, c := range candidates {
				if c == idx {
					return idx, nil
				}
			}
		}
		return candidates[0], nil
	case StrategyRandom:
		return candidates[rand.Intn(len(candidates))], nil
	case StrategyPriority:
		for _, idx := range candidates {
			if r.health[r.backends[idx].Name()].healthy {
				return idx, nil
			}
		}
		return candidates[0], nil
	case StrategyWeighted:
		return r.selectWeighted(candidates)
	case StrategyLeastLatency:
		return r.selectArgmin(candidates, func(idx int) float64 {
			return float64(r.health[r.backends[idx].Name()].latency)
		}), nil
	case StrategyLeastCost:
		return r.selectArgmin(candidates, func(idx int) float64 {
			return r.costs[r.backends[idx].Name()]
		}), nil
	case StrategyCustom:
		if r.custom == nil {
			return 0, &RoutingError{Reason: "custom strategy without selector"}
		}
		return r.selectCustom(req, candidates), nil
	default:
		return 0, &RoutingError{Reason: "unknown strategy " + string(r.strategy)}
	}
}

// selectWeighted performs cumulative-weight sampling over a per-call random
// draw. Backends without a configured weight default to 1.
func (r *Router) selectWeighted(candidates []int) (int, error) {
	var total float64
	for _, idx := range candidates {
		total += r.weightOf(idx)
	}
	if total <= 0 {
		return 0, &RoutingError{Reason: "weighted strategy with non-positive total weight"}
	}
	draw := rand.Float64() * total
	var cum float64
	for _, idx := range candidates {
		cum += r.weightOf(idx)
		if draw < cum {
			return idx, nil
		}
	}
	return candidates[len(candidates)-1], nil
}

func (r *Router) weightOf(idx int) float64 {
	if w, ok := r.weights[r.backends[idx].Name()]; ok {
		return w
	}
	return 1
}

// selectArgmin returns the healthy candidate minimizing metric, falling back
// to the overall argmin when no candidate is healthy.
func (r *Router) selectArgmin(candidates []int, metric func(idx int) float64) int {
	best, bestAny := -1, candidates[0]
	var bestVal, bestAnyVal float64
	for i, idx := range candidates {
		v := metric(idx)
		if i == 0 || v < bestAnyVal {
			bestAny, bestAnyVal = idx, v
		}
		if !r.health[r.backends[idx].Name()].healthy {
			continue
		}
		if best == -1 || v < bestVal {
			best, bestVal = idx, v
		}
	}
	if best != -1 {
		return best
	}
	return bestAny
}

func (r *Router) selectCustom(req ir.ChatRequest, candidates []int) int {
	names := make([]string, len(candidates))
	health := make(map[string]Health, len(candidates))
	for i, idx := range candidates {
		name := r.backends[idx].Name()
		names[i] = name
		health[name] = r.health[name].snapshot()
	}
	pick := r.custom(req, names, health)
	if pick < 0 || pick >= len(candidates) {
		pick = 0
	}
	return candidates[pick]
}
