package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimit returns middleware that waits for a token from limiter before
// each call. A context cancelled while waiting aborts the call.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit %s call: %w", c.Op, err)
		}
		return next(ctx)
	}
}
