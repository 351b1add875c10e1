package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnhenry/aimatey/internal/testutil"
	"github.com/johnhenry/aimatey/ir"
	"github.com/johnhenry/aimatey/middleware"
)

func tagger(name string) middleware.Middleware {
	return middleware.Middleware{
		Name: name,
		OnRequest: func(_ context.Context, req *ir.ChatRequest) (*ir.ChatRequest, error) {
			req.Metadata.Provenance["req"] += name
			return req, nil
		},
		OnResponse: func(_ context.Context, resp *ir.ChatResponse) (*ir.ChatResponse, error) {
			resp.Metadata.Provenance["resp"] += name
			return resp, nil
		},
	}
}

func TestChain_RequestAndResponseRunInRegistrationOrder(t *testing.T) {
	ch := middleware.NewChain()
	ch.Use(tagger("a"), tagger("b"), tagger("c"))

	req := testutil.UserRequest("hi")
	out, err := ch.ApplyRequest(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Metadata.Provenance["req"])

	resp := &ir.ChatResponse{Metadata: ir.NewMetadata()}
	resp, err = ch.ApplyResponse(context.Background(), resp)
	require.NoError(t, err)
	// Response hooks run in the same order as request hooks, not reversed.
	assert.Equal(t, "abc", resp.Metadata.Provenance["resp"])
}

func TestChain_RequestHookFailureWrapsHookError(t *testing.T) {
	cause := errors.New("rejected")
	ch := middleware.NewChain()
	ch.Use(middleware.Middleware{
		Name: "gate",
		OnRequest: func(_ context.Context, _ *ir.ChatRequest) (*ir.ChatRequest, error) {
			return nil, cause
		},
	})

	req := testutil.UserRequest("hi")
	_, err := ch.ApplyRequest(context.Background(), &req)
	require.Error(t, err)
	var he *middleware.HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "gate", he.Middleware)
	assert.Equal(t, "request", he.Phase)
	assert.ErrorIs(t, err, cause)
}

func TestChain_ApplyError_FirstNilSuppresses(t *testing.T) {
	var sawThird bool
	ch := middleware.NewChain()
	ch.Use(
		middleware.Middleware{Name: "rewrap", OnError: func(_ context.Context, err error) error {
			return errors.New("rewrapped: " + err.Error())
		}},
		middleware.Middleware{Name: "swallow", OnError: func(_ context.Context, _ error) error {
			return nil
		}},
		middleware.Middleware{Name: "after", OnError: func(_ context.Context, err error) error {
			sawThird = true
			return err
		}},
	)

	err := ch.ApplyError(context.Background(), errors.New("boom"))
	assert.NoError(t, err, "first nil return suppresses the error")
	assert.False(t, sawThird, "hooks after the suppressor must not run")
}

func TestChain_ApplyError_TransformsThread(t *testing.T) {
	ch := middleware.NewChain()
	ch.Use(middleware.Middleware{Name: "wrap", OnError: func(_ context.Context, err error) error {
		return errors.New("wrapped: " + err.Error())
	}})

	err := ch.ApplyError(context.Background(), errors.New("boom"))
	require.Error(t, err)
	assert.Equal(t, "wrapped: boom", err.Error())
}

func TestChain_RemoveInvokesCleanup(t *testing.T) {
	var cleaned bool
	ch := middleware.NewChain()
	ch.Use(middleware.Middleware{
		Name:    "resourceful",
		Cleanup: func() error { cleaned = true; return nil },
	})

	assert.True(t, ch.Remove("resourceful"))
	assert.True(t, cleaned)
	assert.Equal(t, 0, ch.Len())
	assert.False(t, ch.Remove("resourceful"), "second removal finds nothing")
}

func TestChain_RemoveAll_CleanupFailuresIsolated(t *testing.T) {
	order := []string{}
	ch := middleware.NewChain()
	ch.Use(
		middleware.Middleware{Name: "panics", Cleanup: func() error {
			order = append(order, "panics")
			panic("cleanup exploded")
		}},
		middleware.Middleware{Name: "fails", Cleanup: func() error {
			order = append(order, "fails")
			return errors.New("close failed")
		}},
		middleware.Middleware{Name: "fine", Cleanup: func() error {
			order = append(order, "fine")
			return nil
		}},
	)

	assert.NotPanics(t, func() { ch.RemoveAll() })
	assert.Equal(t, []string{"panics", "fails", "fine"}, order)
	assert.Equal(t, 0, ch.Len())
}

func TestChain_ApplyChunkStream_TransformsChunks(t *testing.T) {
	ctx := context.Background()
	ch := middleware.NewChain()
	ch.Use(middleware.Middleware{
		Name: "shout",
		OnStreamChunk: func(_ context.Context, c ir.StreamChunk) (ir.StreamChunk, error) {
			if c.Type == ir.ChunkContent {
				c.Delta += "!"
			}
			return c, nil
		},
	})

	in := testutil.NewChunkStreamBuilder().Deltas("a", "b").Done().Build()
	got, closed := testutil.Drain(ctx, ch.ApplyChunkStream(ctx, in), time.Second)
	require.True(t, closed)
	require.Len(t, got, 3)
	assert.Equal(t, "a!", got[0].Delta)
	assert.Equal(t, "b!", got[1].Delta)
}

func TestChain_ApplyChunkStream_HookFailureTerminatesStream(t *testing.T) {
	ctx := context.Background()
	ch := middleware.NewChain()
	ch.Use(middleware.Middleware{
		Name: "flaky",
		OnStreamChunk: func(_ context.Context, c ir.StreamChunk) (ir.StreamChunk, error) {
			if c.Delta == "b" {
				return c, errors.New("cannot process")
			}
			return c, nil
		},
	})

	in := testutil.NewChunkStreamBuilder().Deltas("a", "b", "c").Done().Build()
	got, closed := testutil.Drain(ctx, ch.ApplyChunkStream(ctx, in), time.Second)
	require.True(t, closed)
	require.Len(t, got, 2)
	assert.Equal(t, ir.ChunkError, got[1].Type)
	assert.Equal(t, "middleware_error", got[1].ErrorCode)
}

func TestChain_NilHooksSkipped(t *testing.T) {
	ch := middleware.NewChain()
	ch.Use(middleware.Middleware{Name: "empty"})

	req := testutil.UserRequest("hi")
	out, err := ch.ApplyRequest(context.Background(), &req)
	require.NoError(t, err)
	assert.Same(t, &req, out)

	c, err := ch.ApplyChunk(context.Background(), ir.NewContentChunk(0, "x"))
	require.NoError(t, err)
	assert.Equal(t, "x", c.Delta)
}
