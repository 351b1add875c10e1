// Package openai converts between the OpenAI chat-completions wire format
// and the canonical IR. It owns only the JSON shapes; HTTP and SSE framing
// are the caller's concern.
package openai

// Message is one wire-format chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat-completions request body.
type Request struct {
	Model            string    `json:"model,omitempty"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	Seed             *int64    `json:"seed,omitempty"`
	MaxTokens        *int64    `json:"max_tokens,omitempty"`
	Stream           bool      `json:"stream,omitempty"`
	User             string    `json:"user,omitempty"`
}

// Choice is one completion choice in a response.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage is the wire token accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the chat-completions response body.
type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// StreamDelta is the incremental payload inside a streaming choice.
type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// StreamChoice is one choice of a streaming chunk.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

// StreamChunk is one streaming response chunk (OpenAI-compatible).
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
	Error   *StreamError   `json:"error,omitempty"`
}

// StreamError carries an in-band stream failure; OpenAI-compatible proxies
// commonly extend the chunk shape this way.
type StreamError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
