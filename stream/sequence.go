package stream

import (
	"context"
	"fmt"

	"github.com/johnhenry/aimatey/ir"
)

// Policy controls how sequence violations are handled.
type Policy string

const (
	// PolicyStrict makes any violation fatal to the stream.
	PolicyStrict Policy = "strict"
	// PolicyPermissive reports violations through the warn callback and
	// continues iterating.
	PolicyPermissive Policy = "permissive"
)

// Report summarizes the sequence violations observed on one stream.
type Report struct {
	Valid      bool     `json:"valid"`
	Gaps       []uint64 `json:"gaps,omitempty"`        // sequence numbers never observed
	Duplicates []uint64 `json:"duplicates,omitempty"`  // sequence numbers observed more than once
	OutOfOrder []uint64 `json:"out_of_order,omitempty"` // sequence numbers below the expected cursor
}

// ValidatorOptions configure a SequenceValidator.
type ValidatorOptions struct {
	Policy    Policy
	Tolerance uint64 // allowed forward jump beyond the expected sequence, default 0
	Warn      func(violation string, c ir.StreamChunk)
}

// SequenceValidator tracks the expected next sequence number of one stream
// and classifies violations as duplicates, gaps or out-of-order arrivals.
// Not safe for concurrent use; each stream gets its own validator.
type SequenceValidator struct {
	opts     ValidatorOptions
	expected uint64
	started  bool
	seen     map[uint64]struct{}
	report   Report
}

// NewSequenceValidator creates a validator. Default policy is strict with
// zero gap tolerance.
func NewSequenceValidator(optFns ...func(o *ValidatorOptions)) *SequenceValidator {
	opts := ValidatorOptions{Policy: PolicyStrict}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SequenceValidator{
		opts:   opts,
		seen:   map[uint64]struct{}{},
		report: Report{Valid: true},
	}
}

// Observe feeds one chunk through the validator. Non-content chunks pass
// untouched. Under the strict policy the returned error is a
// *ir.ValidationError describing the first violation; under the permissive
// policy violations invoke the warn callback and nil is returned.
func (v *SequenceValidator) Observe(c ir.StreamChunk) error {
	if c.Type != ir.ChunkContent {
		return nil
	}
	seq := c.Seq

	if _, dup := v.seen[seq]; dup {
		v.report.Duplicates = append(v.report.Duplicates, seq)
		return v.violation(fmt.Sprintf("duplicate sequence %d", seq), c)
	}
	v.seen[seq] = struct{}{}

	if !v.started {
		v.started = true
		v.expected = seq + 1
		return nil
	}

	switch {
	case seq < v.expected:
		v.report.OutOfOrder = append(v.report.OutOfOrder, seq)
		return v.violation(fmt.Sprintf("out-of-order sequence %d, expected %d", seq, v.expected), c)
	case seq > v.expected:
		for missing := v.expected; missing < seq; missing++ {
			v.report.Gaps = append(v.report.Gaps, missing)
		}
		jump := seq - v.expected
		v.expected = seq + 1
		if jump > v.opts.Tolerance {
			return v.violation(fmt.Sprintf("gap of %d before sequence %d", jump, seq), c)
		}
	default:
		v.expected = seq + 1
	}
	return nil
}

func (v *SequenceValidator) violation(msg string, c ir.StreamChunk) error {
	v.report.Valid = false
	if v.opts.Policy == PolicyPermissive {
		if v.opts.Warn != nil {
			v.opts.Warn(msg, c)
		}
		return nil
	}
	return &ir.ValidationError{Field: "seq", Reason: msg, Index: int(c.Seq)}
}

// Report returns the violations recorded so far. The report stays valid when
// every flagged gap fell within the configured tolerance and nothing else
// was flagged.
func (v *SequenceValidator) Report() Report { return v.report }

// ValidateStream wraps a stream with sequence validation. Under the strict
// policy the first violation terminates the output with an error chunk and
// the source is abandoned; under the permissive policy all chunks flow
// through and violations are reported via the warn callback.
func ValidateStream(ctx context.Context, in <-chan ir.StreamChunk, optFns ...func(o *ValidatorOptions)) <-chan ir.StreamChunk {
	v := NewSequenceValidator(optFns...)
	out := make(chan ir.StreamChunk)
	go func() {
		defer close(out)
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
			if err := v.Observe(c); err != nil {
				send(ctx, out, ir.ErrorChunkFrom("sequence_violation", err))
				return
			}
			if !send(ctx, out, c) {
				return
			}
		}
	}()
	return out
}
