package ir

// ChunkType tags the variant carried by a StreamChunk.
type ChunkType string

const (
	// ChunkStart opens a stream and carries request metadata.
	ChunkStart ChunkType = "start"
	// ChunkContent carries an incremental delta with a sequence number.
	ChunkContent ChunkType = "content"
	// ChunkDone terminates a stream successfully.
	ChunkDone ChunkType = "done"
	// ChunkError terminates a stream with a failure.
	ChunkError ChunkType = "error"
)

// StreamChunk is the tagged streaming variant. Within one stream, content
// sequence numbers are strictly increasing with no gaps under default
// validation, and exactly one done or error chunk terminates the stream.
type StreamChunk struct {
	Type ChunkType `json:"type"`

	// Start fields.
	Metadata *Metadata `json:"metadata,omitempty"`

	// Content fields. Accumulated is only populated in accumulated stream
	// mode and always equals the concatenation of all deltas so far.
	Seq         uint64 `json:"seq,omitempty"`
	Delta       string `json:"delta,omitempty"`
	Accumulated string `json:"accumulated,omitempty"`

	// Done fields.
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
	FinalMessage *Message     `json:"final_message,omitempty"`

	// Error fields.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Terminal reports whether the chunk ends its stream.
func (c StreamChunk) Terminal() bool { return c.Type == ChunkDone || c.Type == ChunkError }

// NewStartChunk builds the opening chunk for a stream.
func NewStartChunk(meta Metadata) StreamChunk {
	return StreamChunk{Type: ChunkStart, Metadata: &meta}
}

// NewContentChunk builds a delta-bearing content chunk.
func NewContentChunk(seq uint64, delta string) StreamChunk {
	return StreamChunk{Type: ChunkContent, Seq: seq, Delta: delta}
}

// NewDoneChunk builds the successful terminal chunk.
func NewDoneChunk(reason FinishReason, usage *Usage, final *Message) StreamChunk {
	return StreamChunk{Type: ChunkDone, FinishReason: reason, Usage: usage, FinalMessage: final}
}

// NewErrorChunk builds the failing terminal chunk.
func NewErrorChunk(code, message string) StreamChunk {
	return StreamChunk{Type: ChunkError, ErrorCode: code, ErrorMessage: message}
}

// ErrorChunkFrom wraps a Go error as a terminal error chunk.
func ErrorChunkFrom(code string, err error) StreamChunk {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return NewErrorChunk(code, msg)
}
