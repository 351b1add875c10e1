// Package aimatey normalizes heterogeneous conversational-AI wire formats
// into one canonical intermediate representation (package ir), then
// dispatches calls to one or more backends through a middleware pipeline with
// retry/fallback semantics. Most applications interact with this package by:
//  1. Creating format and backend adapters (or supplying their own)
//  2. Wiring a Bridge (single backend) or Router (multi backend, strategies)
//  3. Registering middlewares and, for routers, event subscriptions
//
// The façade delegates to the bridge and router packages while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply API credentials via
// package config and a structured logger.
package aimatey

import (
	"github.com/johnhenry/aimatey/backend"
	"github.com/johnhenry/aimatey/bridge"
	"github.com/johnhenry/aimatey/format"
	"github.com/johnhenry/aimatey/logging"
	"github.com/johnhenry/aimatey/middleware"
	"github.com/johnhenry/aimatey/router"
)

// Options configure the convenience constructors.
type Options struct {
	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger

	// Middlewares are registered on the constructed chain in order.
	Middlewares []middleware.Middleware
}

// NewBridge wires a single-backend façade with a fresh middleware chain. The
// frontend adapter may be nil, in which case callers speak IR directly.
func NewBridge(frontend format.Adapter, be backend.Adapter, optFns ...func(o *Options)) *bridge.Bridge {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if frontend == nil {
		frontend = format.NewIdentity()
	}
	chain := middleware.NewChain(func(o *middleware.ChainOptions) { o.Logger = opts.Logger })
	chain.Use(opts.Middlewares...)
	return bridge.New(frontend, be, func(o *bridge.Options) {
		o.Chain = chain
		o.Logger = opts.Logger
	})
}

// NewRouter wires a multi-backend dispatcher with fallback enabled.
func NewRouter(backends []backend.Adapter, strategy router.Strategy, optFns ...func(o *Options)) *router.Router {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return router.New(backends, func(o *router.Options) {
		o.Strategy = strategy
		o.FallbackOnError = true
		o.Logger = opts.Logger
	})
}
