package format

import (
	"context"

	"github.com/johnhenry/aimatey/ir"
)

// Identity passes IR values through unchanged, for callers that already
// speak the canonical representation.
type Identity struct{}

// NewIdentity creates the pass-through adapter.
func NewIdentity() *Identity { return &Identity{} }

// Name implements Adapter.
func (Identity) Name() string { return "ir" }

// ToIR implements Adapter. It accepts ir.ChatRequest or *ir.ChatRequest.
func (Identity) ToIR(external any) (*ir.ChatRequest, error) {
	switch req := external.(type) {
	case *ir.ChatRequest:
		return req, nil
	case ir.ChatRequest:
		return &req, nil
	default:
		return nil, &ConversionError{
			Format:    "ir",
			Direction: "to_ir",
			Reason:    "expected ir.ChatRequest",
		}
	}
}

// FromIR implements Adapter.
func (Identity) FromIR(resp *ir.ChatResponse) (any, error) { return resp, nil }

// FromIRStream implements Adapter. Chunks are forwarded as-is.
func (Identity) FromIRStream(ctx context.Context, in <-chan ir.StreamChunk) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		for {
			select {
			case c, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
