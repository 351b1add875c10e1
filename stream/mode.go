package stream

import (
	"context"
	"strings"

	"github.com/johnhenry/aimatey/ir"
)

// ModeOptions tune ConvertMode.
type ModeOptions struct {
	// Force rewrites chunks even when they already satisfy the target mode.
	Force bool
}

// ConvertMode rewrites a stream to the target mode. For StreamModeDelta the
// accumulated field is stripped; for StreamModeAccumulated the running total
// is computed and attached to every content chunk. Chunks already satisfying
// the target pass through untouched unless forced. Output depends only on
// prior chunks of the same stream, never on wall-clock time.
func ConvertMode(ctx context.Context, in <-chan ir.StreamChunk, target ir.StreamMode, optFns ...func(o *ModeOptions)) <-chan ir.StreamChunk {
	var opts ModeOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	out := make(chan ir.StreamChunk)
	go func() {
		defer close(out)
		var total strings.Builder
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
			if c.Type == ir.ChunkContent {
				total.WriteString(c.Delta)
				switch target {
				case ir.StreamModeDelta:
					if c.Accumulated != "" || opts.Force {
						c.Accumulated = ""
					}
				case ir.StreamModeAccumulated:
					if c.Accumulated == "" || opts.Force {
						c.Accumulated = total.String()
					}
				}
			}
			if !send(ctx, out, c) {
				return
			}
		}
	}()
	return out
}
