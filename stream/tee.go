package stream

import (
	"context"

	"github.com/johnhenry/aimatey/ir"
)

// TeeOptions tune Tee.
type TeeOptions struct {
	// Capacity bounds each consumer's queue. A consumer that stops draining
	// eventually stalls the shared drainer once its queue fills.
	Capacity int
}

// Tee replicates one source stream into n independently pacing consumer
// streams. A single background goroutine drains the source exactly once and
// appends each chunk to every consumer's bounded queue, so all consumers
// observe the full, identically ordered chunk sequence regardless of their
// relative drain speed. When the source carries a terminal error chunk it is
// delivered to every consumer after that consumer's queued chunks, like any
// other chunk.
func Tee(ctx context.Context, in <-chan ir.StreamChunk, n int, optFns ...func(o *TeeOptions)) []<-chan ir.StreamChunk {
	opts := TeeOptions{Capacity: DefaultBufferSize}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}
	if n < 1 {
		n = 1
	}

	queues := make([]chan ir.StreamChunk, n)
	outs := make([]<-chan ir.StreamChunk, n)
	for i := range queues {
		queues[i] = make(chan ir.StreamChunk, opts.Capacity)
		outs[i] = queues[i]
	}

	go func() {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for {
			var c ir.StreamChunk
			var ok bool
			select {
			case c, ok = <-in:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
			for _, q := range queues {
				if !send(ctx, q, c) {
					return
				}
			}
		}
	}()
	return outs
}
