package router

import (
	"fmt"
	"strings"
)

// RoutingError reports a dispatch precondition failure (no backends, unknown
// strategy, missing weights) rather than a backend call failure.
type RoutingError struct {
	Reason string
}

// Error implements the error interface.
func (e *RoutingError) Error() string { return "routing failed: " + e.Reason }

// AttemptFailure records one failed backend attempt inside a fallback chain.
type AttemptFailure struct {
	Backend string
	Err     error
}

// AllBackendsFailedError aggregates every individual backend failure of one
// dispatch, in attempt order.
type AllBackendsFailedError struct {
	Attempts []AttemptFailure
}

// Error implements the error interface.
func (e *AllBackendsFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "all %d backend attempts failed:", len(e.Attempts))
	for i, a := range e.Attempts {
		fmt.Fprintf(&sb, " [%d] %s: %v;", i, a.Backend, a.Err)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// Unwrap exposes the per-attempt errors for errors.Is/As matching.
func (e *AllBackendsFailedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}
