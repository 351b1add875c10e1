package stream

import (
	"context"

	"github.com/johnhenry/aimatey/ir"
)

// Producer emits chunks by calling yield until it returns false (consumer
// gone) or the producer runs out of chunks. A returned error is surfaced to
// the consumer as a terminal error chunk at the next drain.
type Producer func(ctx context.Context, yield func(ir.StreamChunk) bool) error

// BufferOptions tune Buffered.
type BufferOptions struct {
	// Capacity bounds the buffer; the producer blocks once it is full.
	Capacity int
}

// Buffered runs the producer in its own goroutine feeding a bounded channel
// (default capacity 10). The blocking send is the backpressure: when the
// consumer lags, the producer parks on the channel until a slot frees up. A
// producer error is captured and delivered in-band as the terminal chunk, so
// the consumer observes it at the next drain rather than losing it.
func Buffered(ctx context.Context, produce Producer, optFns ...func(o *BufferOptions)) <-chan ir.StreamChunk {
	opts := BufferOptions{Capacity: DefaultBufferSize}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}

	out := make(chan ir.StreamChunk, opts.Capacity)
	go func() {
		defer close(out)
		err := produce(ctx, func(c ir.StreamChunk) bool {
			return send(ctx, out, c)
		})
		if err != nil {
			send(ctx, out, ir.ErrorChunkFrom("producer_error", err))
		}
	}()
	return out
}

// Pipe re-buffers an existing stream through a bounded channel, decoupling
// the upstream pace from the consumer while preserving order.
func Pipe(ctx context.Context, in <-chan ir.StreamChunk, optFns ...func(o *BufferOptions)) <-chan ir.StreamChunk {
	return Buffered(ctx, func(ctx context.Context, yield func(ir.StreamChunk) bool) error {
		for {
			select {
			case c, ok := <-in:
				if !ok {
					return nil
				}
				if !yield(c) {
					return nil
				}
			case <-ctx.Done():
				return nil
			}
		}
	}, optFns...)
}
