package ir

// FinishReason states why the model stopped emitting tokens. The empty value
// means the backend reported no reason.
type FinishReason string

const (
	// FinishStop indicates natural completion or a stop sequence hit.
	FinishStop FinishReason = "stop"
	// FinishLength indicates the max token budget was exhausted.
	FinishLength FinishReason = "length"
	// FinishToolCalls indicates the model requested tool invocations.
	FinishToolCalls FinishReason = "tool_calls"
	// FinishContentFilter indicates provider-side content filtering.
	FinishContentFilter FinishReason = "content_filter"
)

// Usage captures token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the canonical non-streaming result.
type ChatResponse struct {
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        Usage        `json:"usage"`
	Metadata     Metadata     `json:"metadata,omitempty"`
}
