package router_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnhenry/aimatey/backend"
	"github.com/johnhenry/aimatey/internal/testutil"
	"github.com/johnhenry/aimatey/ir"
	"github.com/johnhenry/aimatey/router"
)

func newMocks(names ...string) ([]*backend.Mock, []backend.Adapter) {
	mocks := make([]*backend.Mock, len(names))
	adapters := make([]backend.Adapter, len(names))
	for i, n := range names {
		mocks[i] = backend.NewMock(n)
		adapters[i] = mocks[i]
	}
	return mocks, adapters
}

func TestRouter_Chat_SingleBackend(t *testing.T) {
	mocks, adapters := newMocks("only")
	mocks[0].AddResponse("hi", "hello")
	r := router.New(adapters)

	resp, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Message.Text())
}

func TestRouter_Chat_ValidatesRequest(t *testing.T) {
	mocks, adapters := newMocks("only")
	r := router.New(adapters)

	_, err := r.Chat(context.Background(), ir.ChatRequest{})
	require.Error(t, err)
	var ve *ir.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, mocks[0].Calls())
}

func TestRouter_Chat_NoBackends(t *testing.T) {
	r := router.New(nil)
	_, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	var re *router.RoutingError
	require.ErrorAs(t, err, &re)
}

func TestRouter_Chat_FallbackHidesTransientFailure(t *testing.T) {
	mocks, adapters := newMocks("primary", "secondary")
	mocks[0].FailNext(1, nil)
	mocks[1].AddResponse("hi", "from secondary")

	r := router.New(adapters, func(o *router.Options) {
		o.Strategy = router.StrategyPriority
		o.FallbackOnError = true
	})

	resp, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "from secondary", resp.Message.Text())
	assert.Equal(t, 1, mocks[0].Calls())
	assert.Equal(t, 1, mocks[1].Calls())
}

func TestRouter_Chat_PriorityRoutesAroundUnhealthyBackend(t *testing.T) {
	mocks, adapters := newMocks("primary", "secondary")
	mocks[0].FailNext(2, nil)
	mocks[1].AddResponse("hi", "ok")

	r := router.New(adapters, func(o *router.Options) {
		o.Strategy = router.StrategyPriority
		o.FallbackOnError = true
		o.Health.FailureThreshold = 2
	})

	// Two calls fail over silently while primary accrues failures.
	for i := 0; i < 2; i++ {
		resp, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
		require.NoError(t, err, "call %d", i)
		assert.Equal(t, "ok", resp.Message.Text())
	}
	assert.Equal(t, 2, mocks[0].Calls())

	// Primary crossed the threshold: the third call skips it entirely.
	_, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, mocks[0].Calls(), "unhealthy primary is not selected")
	assert.Equal(t, 3, mocks[1].Calls())

	health := r.GetBackendHealth()
	assert.False(t, health["primary"].Healthy)
	assert.True(t, health["secondary"].Healthy)
}

func TestRouter_Chat_AllBackendsFailedAggregatesAttempts(t *testing.T) {
	mocks, adapters := newMocks("a", "b")
	mocks[0].FailNext(1, nil)
	mocks[1].FailNext(1, nil)

	r := router.New(adapters, func(o *router.Options) {
		o.FallbackOnError = true
	})

	_, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	require.Error(t, err)
	var all *router.AllBackendsFailedError
	require.ErrorAs(t, err, &all)
	require.Len(t, all.Attempts, 2)

	// Unwrap exposes the individual backend errors.
	var be *backend.Error
	assert.ErrorAs(t, err, &be)
}

func TestRouter_Chat_NoFallbackReturnsRawError(t *testing.T) {
	mocks, adapters := newMocks("a", "b")
	mocks[0].FailNext(1, nil)

	r := router.New(adapters, func(o *router.Options) {
		o.Strategy = router.StrategyPriority
		o.FallbackOnError = false
	})

	_, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	require.Error(t, err)
	var all *router.AllBackendsFailedError
	assert.False(t, errors.As(err, &all), "single attempt failures stay unwrapped")
	var be *backend.Error
	assert.ErrorAs(t, err, &be)
	assert.Equal(t, 0, mocks[1].Calls())
}

func TestRouter_Chat_NonRetryableErrorShortCircuitsFallback(t *testing.T) {
	mocks, adapters := newMocks("a", "b")
	auth := &backend.Error{Backend: "a", Message: "invalid api key", Status: 401, Retryable: false}
	mocks[0].FailNext(1, auth)

	r := router.New(adapters, func(o *router.Options) {
		o.Strategy = router.StrategyPriority
		o.FallbackOnError = true
	})

	_, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, auth)
	assert.Equal(t, 0, mocks[1].Calls(), "non-retryable errors must not fall back")
}

func TestRouter_Events_EmittedOnFailover(t *testing.T) {
	mocks, adapters := newMocks("a", "b")
	mocks[0].FailNext(1, nil)

	r := router.New(adapters, func(o *router.Options) {
		o.Strategy = router.StrategyPriority
		o.FallbackOnError = true
	})
	var events []router.Event
	r.Subscribe(func(ev router.Event) { events = append(events, ev) })

	_, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	require.NoError(t, err)

	types := make([]router.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	assert.Equal(t, []router.EventType{
		router.EventBackendSelected,
		router.EventBackendFailed,
		router.EventBackendSwitched,
		router.EventBackendSelected,
	}, types)
	assert.Equal(t, "a", events[1].Backend)
	assert.Equal(t, "a", events[2].Previous)
	assert.Equal(t, "b", events[2].Backend)
	assert.Error(t, events[1].Err)
	for _, ev := range events {
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestRouter_GetBackendHealth_ReturnsCopies(t *testing.T) {
	_, adapters := newMocks("a")
	r := router.New(adapters)

	h1 := r.GetBackendHealth()
	h1["a"] = router.Health{Healthy: false}
	h2 := r.GetBackendHealth()
	assert.True(t, h2["a"].Healthy, "snapshots must not alias internal state")
}

func TestRouter_Chat_LatencyEWMAUpdatesOnSuccess(t *testing.T) {
	mocks, adapters := newMocks("a")
	mocks[0].SetLatency(5 * time.Millisecond)
	r := router.New(adapters)

	_, err := r.Chat(context.Background(), testutil.UserRequest("hi"))
	require.NoError(t, err)

	h := r.GetBackendHealth()["a"]
	assert.True(t, h.Healthy)
	assert.GreaterOrEqual(t, h.Latency, 5*time.Millisecond)
	assert.Zero(t, h.ConsecutiveFailures)
	assert.False(t, h.LastCheck.IsZero())
}

func TestRouter_ChatStream_FallbackOnSetupFailure(t *testing.T) {
	ctx := context.Background()
	mocks, adapters := newMocks("a", "b")
	mocks[0].FailNext(1, nil)
	mocks[1].AddResponse("hi", "ok")

	r := router.New(adapters, func(o *router.Options) {
		o.Strategy = router.StrategyPriority
		o.FallbackOnError = true
	})

	out, err := r.ChatStream(ctx, testutil.UserRequest("hi"))
	require.NoError(t, err)

	got, closed := testutil.Drain(ctx, out, 2*time.Second)
	require.True(t, closed)
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, ir.ChunkDone, last.Type)
}

// erroringStreamBackend sets up streams successfully but always ends them
// with an in-band error chunk.
type erroringStreamBackend struct{ name string }

func (e *erroringStreamBackend) Name() string { return e.name }

func (e *erroringStreamBackend) Execute(_ context.Context, _ ir.ChatRequest) (*ir.ChatResponse, error) {
	return nil, backend.NewError(e.name, 500, errors.New("not implemented"))
}

func (e *erroringStreamBackend) ExecuteStream(_ context.Context, _ ir.ChatRequest) (<-chan ir.StreamChunk, error) {
	out := make(chan ir.StreamChunk, 2)
	out <- ir.NewContentChunk(0, "partial")
	out <- ir.NewErrorChunk("backend_error", "upstream hung up")
	close(out)
	return out, nil
}

func TestRouter_ChatStream_TerminalErrorChunkCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	r := router.New([]backend.Adapter{&erroringStreamBackend{name: "a"}}, func(o *router.Options) {
		o.Health.FailureThreshold = 1
	})

	var failedEvents int
	r.Subscribe(func(ev router.Event) {
		if ev.Type == router.EventBackendFailed {
			failedEvents++
		}
	})

	out, err := r.ChatStream(ctx, testutil.UserRequest("hi"))
	require.NoError(t, err, "setup succeeded; the failure is in-band")

	got, closed := testutil.Drain(ctx, out, 2*time.Second)
	require.True(t, closed)
	require.Len(t, got, 2)
	assert.Equal(t, ir.ChunkError, got[1].Type)

	assert.False(t, r.GetBackendHealth()["a"].Healthy)
	assert.Equal(t, 1, failedEvents)
}
