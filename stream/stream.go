package stream

import (
	"context"

	"github.com/johnhenry/aimatey/ir"
)

// DefaultBufferSize is the bounded buffer capacity used when an option leaves
// it unset.
const DefaultBufferSize = 10

// send delivers one chunk honoring cancellation. It reports false when the
// context was cancelled before the chunk could be accepted.
func send(ctx context.Context, out chan<- ir.StreamChunk, c ir.StreamChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// FromSlice starts a goroutine emitting the given chunks in order. Intended
// for adapters that already hold a complete response and for tests.
func FromSlice(ctx context.Context, chunks []ir.StreamChunk) <-chan ir.StreamChunk {
	out := make(chan ir.StreamChunk, len(chunks))
	go func() {
		defer close(out)
		for _, c := range chunks {
			if !send(ctx, out, c) {
				return
			}
		}
	}()
	return out
}

// Collect drains a stream into a slice. It returns when the stream closes or
// the context is cancelled.
func Collect(ctx context.Context, in <-chan ir.StreamChunk) []ir.StreamChunk {
	var out []ir.StreamChunk
	for {
		select {
		case c, ok := <-in:
			if !ok {
				return out
			}
			out = append(out, c)
		case <-ctx.Done():
			return out
		}
	}
}
