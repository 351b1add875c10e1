package openai

import (
	"context"
	"time"

	"github.com/johnhenry/aimatey/format"
	"github.com/johnhenry/aimatey/ir"
)

const chunkObject = "chat.completion.chunk"

// Adapter implements format.Adapter for the OpenAI chat-completions shape.
type Adapter struct{}

// NewAdapter creates the OpenAI wire format adapter.
func NewAdapter() *Adapter { return &Adapter{} }

// Name implements format.Adapter.
func (Adapter) Name() string { return "openai" }

// ToIR implements format.Adapter. It accepts Request or *Request.
func (a Adapter) ToIR(external any) (*ir.ChatRequest, error) {
	var req *Request
	switch v := external.(type) {
	case *Request:
		req = v
	case Request:
		req = &v
	default:
		return nil, &format.ConversionError{Format: "openai", Direction: "to_ir", Reason: "expected openai.Request"}
	}
	if len(req.Messages) == 0 {
		return nil, &format.ConversionError{Format: "openai", Direction: "to_ir", Reason: "messages must not be empty"}
	}

	out := &ir.ChatRequest{
		Stream:   req.Stream,
		Metadata: ir.NewMetadata(),
		Params: ir.Params{
			Temperature:      req.Temperature,
			TopP:             req.TopP,
			PresencePenalty:  req.PresencePenalty,
			FrequencyPenalty: req.FrequencyPenalty,
			StopSequences:    req.Stop,
			Seed:             req.Seed,
			MaxTokens:        req.MaxTokens,
		},
	}
	out.Metadata.Provenance["format"] = "openai"
	if req.Model != "" {
		out.Metadata.Provenance["model"] = req.Model
	}
	for _, m := range req.Messages {
		role := ir.Role(m.Role)
		switch role {
		case ir.RoleSystem, ir.RoleUser, ir.RoleAssistant, ir.RoleTool:
		default:
			return nil, &format.ConversionError{Format: "openai", Direction: "to_ir", Reason: "unknown role " + m.Role}
		}
		out.Messages = append(out.Messages, ir.NewTextMessage(role, m.Content))
	}
	return out, nil
}

// FromIR implements format.Adapter.
func (a Adapter) FromIR(resp *ir.ChatResponse) (any, error) {
	if resp == nil {
		return nil, &format.ConversionError{Format: "openai", Direction: "from_ir", Reason: "nil response"}
	}
	return &Response{
		ID:      "chatcmpl-" + resp.Metadata.RequestID,
		Object:  "chat.completion",
		Created: created(resp.Metadata),
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: string(resp.Message.Role), Content: resp.Message.Text()},
			FinishReason: string(resp.FinishReason),
		}},
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// FromIRStream implements format.Adapter. Start chunks become the role-only
// opening chunk, content chunks become deltas, the done chunk becomes the
// finish-reason chunk carrying usage, and an error chunk surfaces through the
// extended error field.
func (a Adapter) FromIRStream(ctx context.Context, in <-chan ir.StreamChunk) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		var id string
		var createdAt int64
		emit := func(v any) bool {
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}
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
			switch c.Type {
			case ir.ChunkStart:
				if c.Metadata != nil {
					id = "chatcmpl-" + c.Metadata.RequestID
					createdAt = created(*c.Metadata)
				}
				if !emit(&StreamChunk{
					ID: id, Object: chunkObject, Created: createdAt,
					Choices: []StreamChoice{{Delta: StreamDelta{Role: string(ir.RoleAssistant)}}},
				}) {
					return
				}
			case ir.ChunkContent:
				if !emit(&StreamChunk{
					ID: id, Object: chunkObject, Created: createdAt,
					Choices: []StreamChoice{{Delta: StreamDelta{Content: c.Delta}}},
				}) {
					return
				}
			case ir.ChunkDone:
				reason := string(c.FinishReason)
				wc := &StreamChunk{
					ID: id, Object: chunkObject, Created: createdAt,
					Choices: []StreamChoice{{FinishReason: &reason}},
				}
				if c.Usage != nil {
					wc.Usage = &Usage{
						PromptTokens:     c.Usage.PromptTokens,
						CompletionTokens: c.Usage.CompletionTokens,
						TotalTokens:      c.Usage.TotalTokens,
					}
				}
				emit(wc)
				return
			case ir.ChunkError:
				emit(&StreamChunk{
					ID: id, Object: chunkObject, Created: createdAt,
					Error: &StreamError{Code: c.ErrorCode, Message: c.ErrorMessage},
				})
				return
			}
		}
	}()
	return out
}

func created(meta ir.Metadata) int64 {
	if meta.Timestamp.IsZero() {
		return time.Now().Unix()
	}
	return meta.Timestamp.Unix()
}
