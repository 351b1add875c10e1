package format

import (
	"context"
	"fmt"

	"github.com/johnhenry/aimatey/ir"
)

// Adapter converts between one external wire format and the IR. Implementors
// accept and return the external shape as `any`; callers assert the concrete
// type they registered the adapter for.
type Adapter interface {
	// Name identifies the wire format (e.g. "openai", "ir").
	Name() string

	// ToIR maps an external request into the canonical request.
	ToIR(external any) (*ir.ChatRequest, error)

	// FromIR maps a canonical response back into the external format.
	FromIR(resp *ir.ChatResponse) (any, error)

	// FromIRStream maps a chunk stream into the external streaming shape.
	// The returned channel follows the same termination contract as IR
	// streams: closed after the last item.
	FromIRStream(ctx context.Context, in <-chan ir.StreamChunk) <-chan any
}

// ConversionError reports a format mapping failure. It marks malformed
// input, so routers never retry it across backends.
type ConversionError struct {
	Format    string
	Direction string // to_ir or from_ir
	Reason    string
	Cause     error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion %s (%s): %s", e.Direction, e.Format, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConversionError) Unwrap() error { return e.Cause }
