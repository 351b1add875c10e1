package backend

import (
	"context"
	"time"

	"github.com/johnhenry/aimatey/ir"
)

// Adapter is the minimal interface a backend must implement to be dispatched
// to by a bridge or router.
//
// ExecuteStream returns the receiving end of a chunk stream following the
// package ir contract: the channel is closed after exactly one terminal
// chunk, and in-flight failures arrive as error chunks. The returned Go error
// covers setup failures only (bad request, connection refused before any
// chunk flowed).
type Adapter interface {
	// Name returns the backend identifier used in health maps and events.
	Name() string

	// Execute performs a synchronous chat call.
	Execute(ctx context.Context, req ir.ChatRequest) (*ir.ChatResponse, error)

	// ExecuteStream performs a streaming chat call.
	ExecuteStream(ctx context.Context, req ir.ChatRequest) (<-chan ir.StreamChunk, error)
}

// HealthChecker is optionally implemented by backends that can answer a
// cheap liveness probe. Routers fall back to call outcomes when absent.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// ModelLister is optionally implemented by backends that can enumerate their
// available models.
type ModelLister interface {
	ListModels(ctx context.Context, opts ModelListOptions) (*ModelList, error)
}

// ModelListOptions filter a model listing.
type ModelListOptions struct {
	// Prefix keeps only model ids starting with the given string.
	Prefix string
}

// ModelInfo describes one available model.
type ModelInfo struct {
	ID      string    `json:"id"`
	OwnedBy string    `json:"owned_by,omitempty"`
	Created time.Time `json:"created,omitempty"`
}

// ModelList is the result of a ListModels call.
type ModelList struct {
	Backend   string      `json:"backend"`
	Models    []ModelInfo `json:"models"`
	FetchedAt time.Time   `json:"fetched_at"`
}
