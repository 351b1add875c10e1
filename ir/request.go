package ir

import (
	"time"

	"github.com/google/uuid"
)

// StreamMode states whether content chunks carry only the incremental delta
// or additionally the accumulated-so-far text.
type StreamMode string

const (
	// StreamModeDelta carries only the incremental delta per content chunk.
	StreamModeDelta StreamMode = "delta"
	// StreamModeAccumulated additionally carries the running total per chunk.
	StreamModeAccumulated StreamMode = "accumulated"
)

// Params is the optional sampling parameter bag. All fields are pointers so
// absence can be distinguished from zero values; each field is independently
// clampable to its valid range.
type Params struct {
	Temperature      *float64 `json:"temperature,omitempty"`       // [0, 2]
	TopP             *float64 `json:"top_p,omitempty"`             // [0, 1]
	TopK             *int     `json:"top_k,omitempty"`             // >= 1
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`  // [-2, 2]
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"` // [-2, 2]
	StopSequences    []string `json:"stop_sequences,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
	MaxTokens        *int64   `json:"max_tokens,omitempty"` // >= 1
}

// Clamp forces every set parameter into its valid range. Unset fields are
// left untouched. Clamping is idempotent.
func (p *Params) Clamp() {
	clampFloat(p.Temperature, 0, 2)
	clampFloat(p.TopP, 0, 1)
	if p.TopK != nil && *p.TopK < 1 {
		*p.TopK = 1
	}
	clampFloat(p.PresencePenalty, -2, 2)
	clampFloat(p.FrequencyPenalty, -2, 2)
	if p.MaxTokens != nil && *p.MaxTokens < 1 {
		*p.MaxTokens = 1
	}
}

func clampFloat(v *float64, lo, hi float64) {
	if v == nil {
		return
	}
	if *v < lo {
		*v = lo
	}
	if *v > hi {
		*v = hi
	}
}

// Metadata carries correlation and provenance information alongside a request
// or response. Provenance records which adapters and backends touched the
// value on its way through the pipeline.
type Metadata struct {
	RequestID  string            `json:"request_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp,omitempty"`
	Provenance map[string]string `json:"provenance,omitempty"`
}

// NewMetadata creates metadata with a fresh request id and UTC timestamp.
func NewMetadata() Metadata {
	return Metadata{
		RequestID:  uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Provenance: map[string]string{},
	}
}

// ChatRequest is the canonical chat call. Messages must be non-empty.
type ChatRequest struct {
	Messages   []Message  `json:"messages"`
	Params     Params     `json:"params,omitempty"`
	Stream     bool       `json:"stream,omitempty"`
	StreamMode StreamMode `json:"stream_mode,omitempty"` // hint; default delta
	Metadata   Metadata   `json:"metadata,omitempty"`
}

// Validate checks structural invariants. It returns a *ValidationError so
// routers can distinguish malformed input from transient backend failure.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Reason: "must not be empty"}
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		default:
			return &ValidationError{Field: "messages", Reason: "unknown role " + string(m.Role), Index: i}
		}
	}
	return nil
}
