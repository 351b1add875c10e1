package stream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/johnhenry/aimatey/ir"
)

// Accumulator folds content deltas into running totals keyed by chunk type.
// Terminal chunks finalize the accumulator without mutating accumulated
// content. The zero value is not usable; call NewAccumulator.
type Accumulator struct {
	totals map[ir.ChunkType]*strings.Builder
	count  int

	finished     bool
	finishReason ir.FinishReason
	usage        *ir.Usage
	errCode      string
	errMessage   string
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{totals: map[ir.ChunkType]*strings.Builder{}}
}

// Fold applies one chunk. Content deltas extend the running total for their
// chunk type; done and error chunks finalize the stream state. Chunks folded
// after finalization are ignored.
func (a *Accumulator) Fold(c ir.StreamChunk) {
	if a.finished {
		return
	}
	switch c.Type {
	case ir.ChunkContent:
		b, ok := a.totals[c.Type]
		if !ok {
			b = &strings.Builder{}
			a.totals[c.Type] = b
		}
		b.WriteString(c.Delta)
		a.count++
	case ir.ChunkDone:
		a.finished = true
		a.finishReason = c.FinishReason
		a.usage = c.Usage
	case ir.ChunkError:
		a.finished = true
		a.errCode = c.ErrorCode
		a.errMessage = c.ErrorMessage
	}
}

// Text returns the accumulated content text so far.
func (a *Accumulator) Text() string {
	if b, ok := a.totals[ir.ChunkContent]; ok {
		return b.String()
	}
	return ""
}

// Count returns the number of content chunks folded.
func (a *Accumulator) Count() int { return a.count }

// Finished reports whether a terminal chunk has been folded.
func (a *Accumulator) Finished() bool { return a.finished }

// FinishReason returns the finish reason from the done chunk, if any.
func (a *Accumulator) FinishReason() ir.FinishReason { return a.finishReason }

// Usage returns the usage from the done chunk, if any.
func (a *Accumulator) Usage() *ir.Usage { return a.usage }

// Err returns the in-band stream error, or nil if the stream ended cleanly.
func (a *Accumulator) Err() error {
	if a.errCode == "" && a.errMessage == "" {
		return nil
	}
	return fmt.Errorf("stream error %s: %s", a.errCode, a.errMessage)
}

// Response assembles a ChatResponse from the accumulated state. Usable once a
// done chunk has been folded; before that the finish reason is empty.
func (a *Accumulator) Response(meta ir.Metadata) *ir.ChatResponse {
	resp := &ir.ChatResponse{
		Message:      ir.NewTextMessage(ir.RoleAssistant, a.Text()),
		FinishReason: a.finishReason,
		Metadata:     meta,
	}
	if a.usage != nil {
		resp.Usage = *a.usage
	}
	return resp
}

// RepairToolArguments repairs a possibly truncated streamed tool-argument
// fragment into valid JSON and unmarshals it. Providers emit argument JSON in
// fragments; a stream cut mid-object would otherwise be unparseable.
func RepairToolArguments(fragment string) (map[string]any, error) {
	if strings.TrimSpace(fragment) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(fragment), &args); err == nil {
		return args, nil
	}
	repaired, err := jsonrepair.JSONRepair(fragment)
	if err != nil {
		return nil, fmt.Errorf("repair tool arguments: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, fmt.Errorf("unmarshal repaired tool arguments: %w", err)
	}
	return args, nil
}
