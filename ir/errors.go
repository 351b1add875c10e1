package ir

import "fmt"

// ValidationError reports a schema or sequence-number violation. It marks
// malformed input, so routers never retry it across backends.
type ValidationError struct {
	Field  string
	Reason string
	Index  int // message or sequence index where applicable
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}
