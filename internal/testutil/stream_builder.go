package testutil

import (
	"context"
	"time"

	"github.com/johnhenry/aimatey/ir"
)

// ChunkStreamBuilder provides a fluent helper for constructing chunk streams
// in tests. Example:
//
//	ch := NewChunkStreamBuilder().Start().Deltas("he", "llo").Done().Build()
//
// Chain only the parts you need; sequence numbers are assigned in order.
type ChunkStreamBuilder struct {
	chunks []ir.StreamChunk
	seq    uint64
	pace   time.Duration
}

// NewChunkStreamBuilder creates an empty builder.
func NewChunkStreamBuilder() *ChunkStreamBuilder { return &ChunkStreamBuilder{} }

// Start appends a start chunk carrying fresh metadata.
func (b *ChunkStreamBuilder) Start() *ChunkStreamBuilder {
	b.chunks = append(b.chunks, ir.NewStartChunk(ir.NewMetadata()))
	return b
}

// Delta appends one content chunk with the next sequence number.
func (b *ChunkStreamBuilder) Delta(delta string) *ChunkStreamBuilder {
	b.chunks = append(b.chunks, ir.NewContentChunk(b.seq, delta))
	b.seq++
	return b
}

// Deltas appends one content chunk per argument.
func (b *ChunkStreamBuilder) Deltas(deltas ...string) *ChunkStreamBuilder {
	for _, d := range deltas {
		b.Delta(d)
	}
	return b
}

// Seq appends a content chunk with an explicit sequence number, for tests
// exercising gap/duplicate detection.
func (b *ChunkStreamBuilder) Seq(seq uint64, delta string) *ChunkStreamBuilder {
	b.chunks = append(b.chunks, ir.NewContentChunk(seq, delta))
	return b
}

// Done appends a successful terminal chunk.
func (b *ChunkStreamBuilder) Done() *ChunkStreamBuilder {
	b.chunks = append(b.chunks, ir.NewDoneChunk(ir.FinishStop, nil, nil))
	return b
}

// Error appends a failing terminal chunk.
func (b *ChunkStreamBuilder) Error(code, msg string) *ChunkStreamBuilder {
	b.chunks = append(b.chunks, ir.NewErrorChunk(code, msg))
	return b
}

// Pace makes Build sleep the given duration between sends, simulating a slow
// producer.
func (b *ChunkStreamBuilder) Pace(d time.Duration) *ChunkStreamBuilder {
	b.pace = d
	return b
}

// Chunks returns the accumulated chunk slice without starting a stream.
func (b *ChunkStreamBuilder) Chunks() []ir.StreamChunk { return b.chunks }

// Build starts a goroutine emitting the accumulated chunks and returns the
// receiving end. The channel is closed after the last chunk.
func (b *ChunkStreamBuilder) Build() <-chan ir.StreamChunk {
	out := make(chan ir.StreamChunk)
	chunks := b.chunks
	pace := b.pace
	go func() {
		defer close(out)
		for _, c := range chunks {
			if pace > 0 {
				time.Sleep(pace)
			}
			out <- c
		}
	}()
	return out
}

// Drain collects every chunk from a stream, failing the wait after timeout.
// It returns the collected chunks and whether the stream closed in time.
func Drain(ctx context.Context, in <-chan ir.StreamChunk, timeout time.Duration) ([]ir.StreamChunk, bool) {
	var got []ir.StreamChunk
	deadline := time.After(timeout)
	for {
		select {
		case c, ok := <-in:
			if !ok {
				return got, true
			}
			got = append(got, c)
		case <-deadline:
			return got, false
		case <-ctx.Done():
			return got, false
		}
	}
}

// UserRequest builds a minimal valid chat request with a single user message.
func UserRequest(text string) ir.ChatRequest {
	return ir.ChatRequest{
		Messages: []ir.Message{ir.NewTextMessage(ir.RoleUser, text)},
		Metadata: ir.NewMetadata(),
	}
}
