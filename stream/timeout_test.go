package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnhenry/aimatey/internal/testutil"
	"github.com/johnhenry/aimatey/ir"
	"github.com/johnhenry/aimatey/stream"
)

func TestWithTimeout_PassesThroughWhenFastEnough(t *testing.T) {
	ctx := context.Background()
	in := testutil.NewChunkStreamBuilder().Deltas("a", "b").Done().Build()

	out := stream.WithTimeout(ctx, in, time.Second, func() ir.StreamChunk {
		return ir.NewErrorChunk("timeout", "stalled")
	})
	got, closed := testutil.Drain(ctx, out, 2*time.Second)
	require.True(t, closed)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.NotEqual(t, ir.ChunkError, c.Type)
	}
}

func TestWithTimeout_SynthesizesFallbackOnStall(t *testing.T) {
	ctx := context.Background()
	in := make(chan ir.StreamChunk) // never sends

	out := stream.WithTimeout(ctx, in, 20*time.Millisecond, func() ir.StreamChunk {
		return ir.NewErrorChunk("timeout", "no chunk within deadline")
	})

	got, closed := testutil.Drain(ctx, out, time.Second)
	require.True(t, closed, "terminal fallback must end the stream")
	require.Len(t, got, 1)
	assert.Equal(t, ir.ChunkError, got[0].Type)
	assert.Equal(t, "timeout", got[0].ErrorCode)
}

func TestWithTimeout_NonTerminalFallbackKeepsStreamAlive(t *testing.T) {
	ctx := context.Background()
	in := make(chan ir.StreamChunk)
	go func() {
		defer close(in)
		time.Sleep(70 * time.Millisecond)
		in <- ir.NewContentChunk(0, "late")
		in <- ir.NewDoneChunk(ir.FinishStop, nil, nil)
	}()

	heartbeat := func() ir.StreamChunk {
		return ir.NewContentChunk(0, "")
	}
	got, closed := testutil.Drain(ctx, stream.WithTimeout(ctx, in, 25*time.Millisecond, heartbeat), time.Second)
	require.True(t, closed)

	var lateSeen, doneSeen bool
	for _, c := range got {
		if c.Delta == "late" {
			lateSeen = true
		}
		if c.Type == ir.ChunkDone {
			doneSeen = true
		}
	}
	assert.True(t, lateSeen, "real chunk should still arrive after heartbeats")
	assert.True(t, doneSeen)
	assert.GreaterOrEqual(t, len(got), 3, "at least one heartbeat expected")
}

func TestWithTimeout_DeadlineResetsPerChunk(t *testing.T) {
	ctx := context.Background()
	in := testutil.NewChunkStreamBuilder().Pace(30 * time.Millisecond).Deltas("a", "b", "c").Done().Build()

	// Each gap is under the 100ms deadline even though the total exceeds it.
	out := stream.WithTimeout(ctx, in, 100*time.Millisecond, func() ir.StreamChunk {
		return ir.NewErrorChunk("timeout", "stalled")
	})
	got, closed := testutil.Drain(ctx, out, time.Second)
	require.True(t, closed)
	require.Len(t, got, 4)
	for _, c := range got {
		assert.NotEqual(t, "timeout", c.ErrorCode)
	}
}
