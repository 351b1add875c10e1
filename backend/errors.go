package backend

import (
	"errors"
	"fmt"
)

// Error reports a backend execution failure. Retryable tells routers whether
// trying another backend (or the same one again) can plausibly succeed;
// authentication and quota failures are not retryable, transport blips are.
type Error struct {
	Backend   string
	Code      string // provider error code when known
	Message   string
	Status    int // HTTP status when the transport reported one, else 0
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s: %s (status %d)", e.Backend, e.Message, e.Status)
	}
	return fmt.Sprintf("backend %s: %s", e.Backend, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError wraps a provider failure. Status-based retryability: 408, 429 and
// 5xx are retryable; 401/403 and other 4xx are not.
func NewError(backend string, status int, cause error) *Error {
	msg := "execution failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Backend:   backend,
		Message:   msg,
		Status:    status,
		Retryable: status == 0 || status == 408 || status == 429 || status >= 500,
		Cause:     cause,
	}
}

// IsRetryable reports whether err is a backend error flagged retryable.
// Non-backend errors (conversion, validation) are never retryable.
func IsRetryable(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}
