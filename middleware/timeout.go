package middleware

import (
	"context"
	"time"
)

// Timeout returns middleware that bounds each call with d. A non-positive d
// disables the deadline.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ *Call, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
