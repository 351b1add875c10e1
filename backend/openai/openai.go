// Package openai provides a backend.Adapter over the OpenAI Chat Completions
// API (including streaming). It adapts the canonical IR request/response/chunk
// structures into the SDK's message format and back.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"

	"github.com/johnhenry/aimatey/backend"
	"github.com/johnhenry/aimatey/ir"
	"github.com/johnhenry/aimatey/stream"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// allowing reconstruction of complete tool use parts when the finish reason
// is emitted. Internal helper (unexported).
type aggCall struct{ id, name, args string }

// Options configure the OpenAI backend adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Name  string
	Model string
}

// Adapter wraps the OpenAI Chat Completions API behind backend.Adapter.
type Adapter struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI adapter using the official client.
func New(optFns ...func(o *Options)) *Adapter {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI adapter from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Name:  "openai",
		Model: openai.ChatModelGPT4oMini,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{client: client, opts: opts}
}

// Name implements backend.Adapter.
func (a *Adapter) Name() string { return a.opts.Name }

// buildMessages converts IR messages into OpenAI chat messages. Assistant
// tool use parts become tool calls; tool-role messages are passed as user
// text since the IR carries no call correlation for them.
func buildMessages(req ir.ChatRequest) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		text := m.Text()
		switch m.Role {
		case ir.RoleSystem:
			messages = append(messages, openai.SystemMessage(text))
		case ir.RoleUser:
			messages = append(messages, openai.UserMessage(text))
		case ir.RoleAssistant:
			toolCalls := extractToolCalls(m)
			if len(toolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(text))
				continue
			}
			messages = append(
				messages,
				openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				}},
			)
		default:
			if text != "" {
				messages = append(messages, openai.UserMessage(text))
			}
		}
	}
	return messages
}

// extractToolCalls maps assistant tool use parts to OpenAI tool call params.
func extractToolCalls(m ir.Message) []openai.ChatCompletionMessageToolCallParam {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, p := range m.Parts {
		if tu, ok := p.(ir.ToolUsePart); ok {
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   tu.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tu.Name,
					Arguments: tu.Arguments,
				},
			})
		}
	}
	return toolCalls
}

// buildParams assembles the OpenAI request parameters from clamped IR params.
func (a *Adapter) buildParams(req ir.ChatRequest) openai.ChatCompletionNewParams {
	req.Params.Clamp()
	params := openai.ChatCompletionNewParams{
		Messages: buildMessages(req),
		Model:    a.opts.Model,
	}
	if v := req.Params.Temperature; v != nil {
		params.Temperature = openai.Float(*v)
	}
	if v := req.Params.TopP; v != nil {
		params.TopP = openai.Float(*v)
	}
	if v := req.Params.PresencePenalty; v != nil {
		params.PresencePenalty = openai.Float(*v)
	}
	if v := req.Params.FrequencyPenalty; v != nil {
		params.FrequencyPenalty = openai.Float(*v)
	}
	if v := req.Params.Seed; v != nil {
		params.Seed = openai.Int(*v)
	}
	if v := req.Params.MaxTokens; v != nil {
		params.MaxCompletionTokens = openai.Int(*v)
	}
	return params
}

// wrapErr maps an SDK failure onto *backend.Error with its HTTP status so the
// router can judge retryability.
func (a *Adapter) wrapErr(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return backend.NewError(a.opts.Name, apierr.StatusCode, err)
	}
	return backend.NewError(a.opts.Name, 0, err)
}

// Execute implements backend.Adapter.
func (a *Adapter) Execute(ctx context.Context, req ir.ChatRequest) (*ir.ChatResponse, error) {
	resp, err := a.client.Chat.Completions.New(ctx, a.buildParams(req))
	if err != nil {
		return nil, a.wrapErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &backend.Error{Backend: a.opts.Name, Message: "no choices returned", Retryable: true}
	}
	ch0 := resp.Choices[0]
	parts := make([]ir.Part, 0, len(ch0.Message.ToolCalls)+1)
	if ch0.Message.Content != "" {
		parts = append(parts, ir.TextPart{Text: ch0.Message.Content})
	}
	for _, tc := range ch0.Message.ToolCalls {
		parts = append(parts, ir.ToolUsePart{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return &ir.ChatResponse{
		Message:      ir.Message{Role: ir.RoleAssistant, Parts: parts},
		FinishReason: mapFinishReason(ch0.FinishReason),
		Usage: ir.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Metadata: req.Metadata,
	}, nil
}

// ExecuteStream implements backend.Adapter. Chunk order follows the SDK
// event order; sequence numbers are assigned as content deltas arrive.
func (a *Adapter) ExecuteStream(ctx context.Context, req ir.ChatRequest) (<-chan ir.StreamChunk, error) {
	sse := a.client.Chat.Completions.NewStreaming(ctx, a.buildParams(req))

	out := make(chan ir.StreamChunk, 32)
	go func() {
		defer close(out)
		out <- ir.NewStartChunk(req.Metadata)

		var seq uint64
		var text strings.Builder
		toolAgg := map[int64]*aggCall{}
		finish := ir.FinishStop
		var usage *ir.Usage

		for sse.Next() {
			ck := sse.Current()
			if ck.Usage.TotalTokens > 0 {
				usage = &ir.Usage{
					PromptTokens:     int(ck.Usage.PromptTokens),
					CompletionTokens: int(ck.Usage.CompletionTokens),
					TotalTokens:      int(ck.Usage.TotalTokens),
				}
			}
			for _, ch := range ck.Choices {
				if ch.Delta.Content != "" {
					text.WriteString(ch.Delta.Content)
					select {
					case out <- ir.NewContentChunk(seq, ch.Delta.Content):
						seq++
					case <-ctx.Done():
						return
					}
				}
				for _, tc := range ch.Delta.ToolCalls {
					ac, ok := toolAgg[tc.Index]
					if !ok {
						ac = &aggCall{}
						toolAgg[tc.Index] = ac
					}
					if tc.ID != "" {
						ac.id = tc.ID
					}
					if tc.Function.Name != "" {
						ac.name = tc.Function.Name
					}
					ac.args += tc.Function.Arguments
				}
				if ch.FinishReason != "" {
					finish = mapFinishReason(ch.FinishReason)
				}
			}
		}
		if err := sse.Err(); err != nil {
			select {
			case out <- ir.ErrorChunkFrom("openai_stream_error", a.wrapErr(err)):
			case <-ctx.Done():
			}
			return
		}

		final := assembleFinal(text.String(), toolAgg)
		select {
		case out <- ir.NewDoneChunk(finish, usage, &final):
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// assembleFinal builds the final assistant message from accumulated text and
// tool call fragments. Truncated argument JSON is repaired before reserialize
// so downstream consumers always see parseable arguments.
func assembleFinal(text string, toolAgg map[int64]*aggCall) ir.Message {
	parts := make([]ir.Part, 0, len(toolAgg)+1)
	if text != "" {
		parts = append(parts, ir.TextPart{Text: text})
	}
	for _, ac := range toolAgg {
		args := ac.args
		if _, err := stream.RepairToolArguments(args); err != nil {
			args = "{}"
		}
		parts = append(parts, ir.ToolUsePart{ID: ac.id, Name: ac.name, Arguments: args})
	}
	return ir.Message{Role: ir.RoleAssistant, Parts: parts}
}

func mapFinishReason(reason string) ir.FinishReason {
	switch reason {
	case "stop":
		return ir.FinishStop
	case "length":
		return ir.FinishLength
	case "tool_calls", "function_call":
		return ir.FinishToolCalls
	case "content_filter":
		return ir.FinishContentFilter
	default:
		return ir.FinishReason(reason)
	}
}

// HealthCheck implements backend.HealthChecker via a models listing round trip.
func (a *Adapter) HealthCheck(ctx context.Context) bool {
	_, err := a.client.Models.List(ctx)
	return err == nil
}

// ListModels implements backend.ModelLister.
func (a *Adapter) ListModels(ctx context.Context, opts backend.ModelListOptions) (*backend.ModelList, error) {
	page, err := a.client.Models.List(ctx)
	if err != nil {
		return nil, a.wrapErr(err)
	}
	list := &backend.ModelList{Backend: a.opts.Name}
	for _, m := range page.Data {
		if opts.Prefix != "" && !strings.HasPrefix(m.ID, opts.Prefix) {
			continue
		}
		list.Models = append(list.Models, backend.ModelInfo{ID: m.ID, OwnedBy: m.OwnedBy})
	}
	return list, nil
}
