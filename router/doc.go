// Package router implements the multi-backend dispatcher: strategy-based
// backend selection, per-backend health tracking with EWMA smoothing,
// fallback chains on retryable failures, aggregated failure reporting and
// event subscriptions for selection, failure and failover.
//
// A Router owns its health records exclusively; they are mutated only by the
// router's call and probe paths and exposed to callers as copies. Router
// state is guarded by an internal mutex so one instance may be shared across
// concurrent callers. Health probes run on their own timer goroutine and
// never block, nor are blocked by, in-flight dispatch.
package router
