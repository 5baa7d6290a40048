package middleware

import (
	"context"
	"strconv"
)

// Op names an operation of the job submission service.
type Op string

const (
	OpSubmit Op = "submit"
	OpStatus Op = "status"
	OpResult Op = "result"
)

// Call describes one outbound request. StatusCode is filled in by the
// transport once a response arrives and is zero for network failures.
type Call struct {
	Op         Op
	JobID      string
	Method     string
	URL        string
	RequestID  string
	StatusCode int
}

// Status renders the response code for logs and metrics, "none" when no
// response was received.
func (c *Call) Status() string {
	if c.StatusCode == 0 {
		return "none"
	}
	return strconv.Itoa(c.StatusCode)
}

// Handler performs the call.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
type Middleware func(ctx context.Context, c *Call, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// The first middleware in the list is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, c, prev)
			}
		}
		return h(ctx)
	}
}
