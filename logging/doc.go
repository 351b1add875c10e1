// Package logging provides a minimal logging interface and adapters for aimatey.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the bridge, router and stream pipeline use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - PipelineLogger with contextual helpers for requests and backends
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	rt := router.New(backends, router.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
