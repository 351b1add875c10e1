package stream

import (
	"context"
	"time"

	"github.com/johnhenry/aimatey/ir"
)

// Throttle merges consecutive content chunks arriving faster than interval
// into a single chunk whose delta is the concatenation, in arrival order. The
// merged chunk keeps the first chunk's sequence number and the last chunk's
// accumulated field. Start, done and error chunks always flush immediately
// and are never merged; a pending merge is flushed first so order holds.
func Throttle(ctx context.Context, in <-chan ir.StreamChunk, interval time.Duration) <-chan ir.StreamChunk {
	out := make(chan ir.StreamChunk)
	go func() {
		defer close(out)

		var pending *ir.StreamChunk
		timer := time.NewTimer(interval)
		timer.Stop()
		defer timer.Stop()

		flush := func() bool {
			if pending == nil {
				return true
			}
			c := *pending
			pending = nil
			return send(ctx, out, c)
		}

		for {
			select {
			case c, ok := <-in:
				if !ok {
					flush()
					return
				}
				if c.Type != ir.ChunkContent {
					if !flush() || !send(ctx, out, c) {
						return
					}
					if c.Terminal() {
						return
					}
					continue
				}
				if pending == nil {
					cc := c
					pending = &cc
					timer.Reset(interval)
					continue
				}
				pending.Delta += c.Delta
				pending.Accumulated = c.Accumulated
			case <-timer.C:
				if !flush() {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
