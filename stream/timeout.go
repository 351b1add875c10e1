package stream

import (
	"context"
	"time"

	"github.com/johnhenry/aimatey/ir"
)

// WithTimeout races every next-chunk wait against a per-chunk deadline. On
// timeout the caller-supplied fallback chunk is synthesized instead of the
// stream silently stalling or terminating. If the fallback is a terminal
// chunk the stream ends there and the source is abandoned; otherwise waiting
// resumes with a fresh deadline.
func WithTimeout(ctx context.Context, in <-chan ir.StreamChunk, perChunk time.Duration, fallback func() ir.StreamChunk) <-chan ir.StreamChunk {
	out := make(chan ir.StreamChunk)
	go func() {
		defer close(out)
		timer := time.NewTimer(perChunk)
		defer timer.Stop()
		for {
			select {
			case c, ok := <-in:
				if !ok {
					return
				}
				if !send(ctx, out, c) {
					return
				}
				if c.Terminal() {
					return
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(perChunk)
			case <-timer.C:
				fb := fallback()
				if !send(ctx, out, fb) {
					return
				}
				if fb.Terminal() {
					return
				}
				timer.Reset(perChunk)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
