// Package anthropic provides a backend.Adapter over the Anthropic Messages
// API, including event-stream based streaming.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/johnhenry/aimatey/backend"
	"github.com/johnhenry/aimatey/ir"
)

// Options configure the Anthropic backend adapter (model id, API key,
// default max tokens). Extend via functional options to preserve stability.
type Options struct {
	Name             string
	Model            anthropic.Model
	APIKey           string
	DefaultMaxTokens int64
}

// Adapter wraps the Anthropic Messages API behind backend.Adapter.
type Adapter struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic adapter using the official client.
func New(optFns ...func(o *Options)) *Adapter {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Adapter{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic adapter from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Adapter {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Name:             "anthropic",
		Model:            anthropic.ModelClaude3_5Sonnet20241022,
		DefaultMaxTokens: 4096,
	}
}

// Name implements backend.Adapter.
func (a *Adapter) Name() string { return a.opts.Name }

// buildParams assembles the Messages API request. System messages are lifted
// into the dedicated system field; MaxTokens is mandatory upstream so the
// configured default applies when the request leaves it unset.
func (a *Adapter) buildParams(req ir.ChatRequest) anthropic.MessageNewParams {
	req.Params.Clamp()
	params := anthropic.MessageNewParams{
		Model:     a.opts.Model,
		Messages:  a.buildMessages(req.Messages),
		MaxTokens: a.opts.DefaultMaxTokens,
	}
	if v := req.Params.MaxTokens; v != nil {
		params.MaxTokens = *v
	}
	if v := req.Params.Temperature; v != nil {
		params.Temperature = anthropic.Float(*v)
	}
	if v := req.Params.TopP; v != nil {
		params.TopP = anthropic.Float(*v)
	}
	if v := req.Params.TopK; v != nil {
		params.TopK = anthropic.Int(int64(*v))
	}
	if len(req.Params.StopSequences) > 0 {
		params.StopSequences = req.Params.StopSequences
	}
	if system := extractSystem(req.Messages); len(system) > 0 {
		params.System = system
	}
	return params
}

// buildMessages converts IR messages to the Anthropic message format.
func (a *Adapter) buildMessages(messages []ir.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		if m.Role == ir.RoleSystem {
			continue // handled via the system field
		}
		content := buildContent(m.Parts)
		if len(content) == 0 {
			continue
		}
		switch m.Role {
		case ir.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(content...))
		default:
			// User, tool and unknown roles all travel as user turns.
			out = append(out, anthropic.NewUserMessage(content...))
		}
	}
	return out
}

func extractSystem(messages []ir.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role != ir.RoleSystem {
			continue
		}
		if text := m.Text(); text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: text})
		}
	}
	return blocks
}

func buildContent(parts []ir.Part) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		switch part := p.(type) {
		case ir.TextPart:
			if part.Text != "" {
				content = append(content, anthropic.NewTextBlock(part.Text))
			}
		case ir.ToolUsePart:
			var input interface{} = map[string]any{}
			if part.Arguments != "" {
				input = part.Arguments
			}
			content = append(content, anthropic.NewToolUseBlock(part.ID, input, part.Name))
		}
	}
	return content
}

// wrapErr maps an SDK failure onto *backend.Error carrying the HTTP status.
func (a *Adapter) wrapErr(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return backend.NewError(a.opts.Name, apierr.StatusCode, err)
	}
	return backend.NewError(a.opts.Name, 0, err)
}

// Execute implements backend.Adapter.
func (a *Adapter) Execute(ctx context.Context, req ir.ChatRequest) (*ir.ChatResponse, error) {
	resp, err := a.client.Messages.New(ctx, a.buildParams(req))
	if err != nil {
		return nil, a.wrapErr(err)
	}

	var parts []ir.Part
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			textBlock := block.AsText()
			if textBlock.Text != "" {
				parts = append(parts, ir.TextPart{Text: textBlock.Text})
			}
		case "tool_use":
			toolBlock := block.AsToolUse()
			parts = append(parts, ir.ToolUsePart{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: string(toolBlock.JSON.Input.Raw()),
			})
		}
	}

	return &ir.ChatResponse{
		Message:      ir.Message{Role: ir.RoleAssistant, Parts: parts},
		FinishReason: mapStopReason(string(resp.StopReason)),
		Usage: ir.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		Metadata: req.Metadata,
	}, nil
}

// ExecuteStream implements backend.Adapter. The SDK's accumulate helper
// assembles the final message while text deltas are forwarded as they arrive.
func (a *Adapter) ExecuteStream(ctx context.Context, req ir.ChatRequest) (<-chan ir.StreamChunk, error) {
	sse := a.client.Messages.NewStreaming(ctx, a.buildParams(req))

	out := make(chan ir.StreamChunk, 32)
	go func() {
		defer close(out)
		out <- ir.NewStartChunk(req.Metadata)

		var seq uint64
		message := anthropic.Message{}
		for sse.Next() {
			event := sse.Current()
			if err := message.Accumulate(event); err != nil {
				select {
				case out <- ir.ErrorChunkFrom("anthropic_stream_error", a.wrapErr(err)):
				case <-ctx.Done():
				}
				return
			}
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if deltaVariant, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok && deltaVariant.Text != "" {
					select {
					case out <- ir.NewContentChunk(seq, deltaVariant.Text):
						seq++
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := sse.Err(); err != nil {
			select {
			case out <- ir.ErrorChunkFrom("anthropic_stream_error", a.wrapErr(err)):
			case <-ctx.Done():
			}
			return
		}

		final := ir.NewTextMessage(ir.RoleAssistant, collectText(message))
		usage := &ir.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
		select {
		case out <- ir.NewDoneChunk(mapStopReason(string(message.StopReason)), usage, &final):
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func collectText(message anthropic.Message) string {
	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String()
}

func mapStopReason(reason string) ir.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return ir.FinishStop
	case "max_tokens":
		return ir.FinishLength
	case "tool_use":
		return ir.FinishToolCalls
	case "":
		return ir.FinishStop
	default:
		return ir.FinishReason(reason)
	}
}

// HealthCheck implements backend.HealthChecker via a models listing round trip.
func (a *Adapter) HealthCheck(ctx context.Context) bool {
	_, err := a.client.Models.List(ctx, anthropic.ModelListParams{})
	return err == nil
}

// ListModels implements backend.ModelLister.
func (a *Adapter) ListModels(ctx context.Context, opts backend.ModelListOptions) (*backend.ModelList, error) {
	page, err := a.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, a.wrapErr(err)
	}
	list := &backend.ModelList{Backend: a.opts.Name}
	for _, m := range page.Data {
		if opts.Prefix != "" && !strings.HasPrefix(m.ID, opts.Prefix) {
			continue
		}
		list.Models = append(list.Models, backend.ModelInfo{ID: m.ID, OwnedBy: "anthropic"})
	}
	return list, nil
}
