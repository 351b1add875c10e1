package openai_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnhenry/aimatey/format"
	openaifmt "github.com/johnhenry/aimatey/format/openai"
	"github.com/johnhenry/aimatey/internal/testutil"
	"github.com/johnhenry/aimatey/ir"
)

func TestAdapter_ToIR(t *testing.T) {
	temp := 0.7
	maxTokens := int64(128)
	req := openaifmt.Request{
		Model: "gpt-4o-mini",
		Messages: []openaifmt.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		Stop:        []string{"\n\n"},
		Stream:      true,
	}

	out, err := openaifmt.NewAdapter().ToIR(req)
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, ir.RoleSystem, out.Messages[0].Role)
	assert.Equal(t, "be brief", out.Messages[0].Text())
	assert.Equal(t, ir.RoleUser, out.Messages[1].Role)
	assert.Equal(t, 0.7, *out.Params.Temperature)
	assert.Equal(t, int64(128), *out.Params.MaxTokens)
	assert.Equal(t, []string{"\n\n"}, out.Params.StopSequences)
	assert.True(t, out.Stream)
	assert.Equal(t, "openai", out.Metadata.Provenance["format"])
	assert.Equal(t, "gpt-4o-mini", out.Metadata.Provenance["model"])
	assert.NotEmpty(t, out.Metadata.RequestID)
}

func TestAdapter_ToIR_Rejections(t *testing.T) {
	a := openaifmt.NewAdapter()

	_, err := a.ToIR("nope")
	var ce *format.ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "to_ir", ce.Direction)

	_, err = a.ToIR(openaifmt.Request{})
	require.ErrorAs(t, err, &ce)

	_, err = a.ToIR(openaifmt.Request{Messages: []openaifmt.Message{{Role: "robot", Content: "x"}}})
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Reason, "unknown role")
}

func TestAdapter_FromIR(t *testing.T) {
	meta := ir.NewMetadata()
	resp := &ir.ChatResponse{
		Message:      ir.NewTextMessage(ir.RoleAssistant, "hello"),
		FinishReason: ir.FinishStop,
		Usage:        ir.Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5},
		Metadata:     meta,
	}

	out, err := openaifmt.NewAdapter().FromIR(resp)
	require.NoError(t, err)
	wire, ok := out.(*openaifmt.Response)
	require.True(t, ok)

	assert.Equal(t, "chatcmpl-"+meta.RequestID, wire.ID)
	assert.Equal(t, "chat.completion", wire.Object)
	require.Len(t, wire.Choices, 1)
	assert.Equal(t, "assistant", wire.Choices[0].Message.Role)
	assert.Equal(t, "hello", wire.Choices[0].Message.Content)
	assert.Equal(t, "stop", wire.Choices[0].FinishReason)
	assert.Equal(t, 5, wire.Usage.TotalTokens)
}

func TestAdapter_FromIR_NilResponse(t *testing.T) {
	_, err := openaifmt.NewAdapter().FromIR(nil)
	var ce *format.ConversionError
	assert.ErrorAs(t, err, &ce)
}

func drainWire(t *testing.T, out <-chan any) []*openaifmt.StreamChunk {
	t.Helper()
	var got []*openaifmt.StreamChunk
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-out:
			if !ok {
				return got
			}
			got = append(got, v.(*openaifmt.StreamChunk))
		case <-deadline:
			t.Fatal("stream did not close")
		}
	}
}

func TestAdapter_FromIRStream(t *testing.T) {
	ctx := context.Background()
	usage := &ir.Usage{TotalTokens: 4}
	chunks := testutil.NewChunkStreamBuilder().Start().Deltas("he", "y").Chunks()
	chunks = append(chunks, ir.NewDoneChunk(ir.FinishStop, usage, nil))

	in := make(chan ir.StreamChunk, len(chunks))
	for _, c := range chunks {
		in <- c
	}
	close(in)

	got := drainWire(t, openaifmt.NewAdapter().FromIRStream(ctx, in))
	require.Len(t, got, 4)

	// Opening chunk carries the role only.
	assert.Equal(t, "assistant", got[0].Choices[0].Delta.Role)
	assert.Empty(t, got[0].Choices[0].Delta.Content)
	assert.Equal(t, "chat.completion.chunk", got[0].Object)
	assert.True(t, strings.HasPrefix(got[0].ID, "chatcmpl-"))

	// Content deltas.
	assert.Equal(t, "he", got[1].Choices[0].Delta.Content)
	assert.Equal(t, "y", got[2].Choices[0].Delta.Content)
	assert.Equal(t, got[0].ID, got[1].ID, "all chunks share one id")

	// Final chunk carries finish reason and usage.
	require.NotNil(t, got[3].Choices[0].FinishReason)
	assert.Equal(t, "stop", *got[3].Choices[0].FinishReason)
	require.NotNil(t, got[3].Usage)
	assert.Equal(t, 4, got[3].Usage.TotalTokens)
}

func TestAdapter_FromIRStream_ErrorChunk(t *testing.T) {
	ctx := context.Background()
	in := testutil.NewChunkStreamBuilder().Start().Deltas("partial").Error("backend_error", "boom").Build()

	got := drainWire(t, openaifmt.NewAdapter().FromIRStream(ctx, in))
	require.Len(t, got, 3)
	last := got[2]
	require.NotNil(t, last.Error)
	assert.Equal(t, "backend_error", last.Error.Code)
	assert.Equal(t, "boom", last.Error.Message)
}
