// Package middleware implements ordered interceptors around requests,
// responses, stream chunks and errors.
//
// A Middleware is a named record of optional hooks; a Chain owns its
// middlewares and applies them around every call. Request-phase and
// response-phase hooks both run in registration order — deliberately not the
// classic reversed onion model — and that convention is preserved for
// compatibility with existing middleware stacks.
package middleware
