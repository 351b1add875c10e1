package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/johnhenry/aimatey/ir"
)

// Mock is a lightweight in-memory Adapter useful for tests & examples. It
// echoes canned completions, optionally streaming them rune by rune, and can
// be scripted to fail a number of upcoming calls.
type Mock struct {
	name      string
	mu        sync.Mutex
	responses map[string]string
	failNext  int
	failWith  error
	latency   time.Duration
	calls     int
	healthy   bool
	models    []ModelInfo
}

// NewMock constructs a healthy mock backend.
func NewMock(name string) *Mock {
	return &Mock{
		name:      name,
		responses: make(map[string]string),
		healthy:   true,
		models:    []ModelInfo{{ID: name + "-small"}, {ID: name + "-large"}},
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *Mock) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailNext scripts the next n calls to fail with err. A nil err fails with a
// generic retryable backend error.
func (m *Mock) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
	m.failWith = err
}

// SetLatency injects an artificial delay before every call completes.
func (m *Mock) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// SetHealthy flips the health probe answer.
func (m *Mock) SetHealthy(h bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = h
}

// Calls returns how many Execute/ExecuteStream calls were attempted.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name implements Adapter.
func (m *Mock) Name() string { return m.name }

func (m *Mock) begin() (string, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failNext > 0 {
		m.failNext--
		if m.failWith != nil {
			return "", 0, m.failWith
		}
		return "", 0, NewError(m.name, 503, fmt.Errorf("scripted failure"))
	}
	return m.name, m.latency, nil
}

func (m *Mock) completion(prompt string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.responses[prompt]; ok {
		return r
	}
	return fmt.Sprintf("Mock response to: %s", prompt)
}

// Execute implements Adapter.
func (m *Mock) Execute(ctx context.Context, req ir.ChatRequest) (*ir.ChatResponse, error) {
	if _, latency, err := m.begin(); err != nil {
		return nil, err
	} else if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, NewError(m.name, 0, ctx.Err())
		}
	}
	prompt := req.Messages[len(req.Messages)-1].Text()
	full := m.completion(prompt)
	return &ir.ChatResponse{
		Message:      ir.NewTextMessage(ir.RoleAssistant, full),
		FinishReason: ir.FinishStop,
		Usage: ir.Usage{
			PromptTokens:     len(prompt),
			CompletionTokens: len(full),
			TotalTokens:      len(prompt) + len(full),
		},
		Metadata: req.Metadata,
	}, nil
}

// ExecuteStream implements Adapter; emits a start chunk, one content chunk
// per rune, then a done chunk carrying the final message and usage.
func (m *Mock) ExecuteStream(ctx context.Context, req ir.ChatRequest) (<-chan ir.StreamChunk, error) {
	if _, latency, err := m.begin(); err != nil {
		return nil, err
	} else if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, NewError(m.name, 0, ctx.Err())
		}
	}
	prompt := req.Messages[len(req.Messages)-1].Text()
	full := m.completion(prompt)

	out := make(chan ir.StreamChunk, 16)
	go func() {
		defer close(out)
		select {
		case out <- ir.NewStartChunk(req.Metadata):
		case <-ctx.Done():
			return
		}
		var seq uint64
		for _, r := range full {
			select {
			case out <- ir.NewContentChunk(seq, string(r)):
				seq++
			case <-ctx.Done():
				return
			}
		}
		final := ir.NewTextMessage(ir.RoleAssistant, full)
		usage := &ir.Usage{
			PromptTokens:     len(prompt),
			CompletionTokens: len(full),
			TotalTokens:      len(prompt) + len(full),
		}
		select {
		case out <- ir.NewDoneChunk(ir.FinishStop, usage, &final):
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// HealthCheck implements HealthChecker.
func (m *Mock) HealthCheck(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// ListModels implements ModelLister.
func (m *Mock) ListModels(ctx context.Context, opts ModelListOptions) (*ModelList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := &ModelList{Backend: m.name, FetchedAt: time.Now().UTC()}
	for _, mi := range m.models {
		if opts.Prefix == "" || len(mi.ID) >= len(opts.Prefix) && mi.ID[:len(opts.Prefix)] == opts.Prefix {
			list.Models = append(list.Models, mi)
		}
	}
	return list, nil
}
