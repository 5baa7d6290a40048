package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that converts a panic further down the chain
// into an error and logs it with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, c *Call, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("service call panicked",
					slog.String("op", string(c.Op)),
					slog.String("url", c.URL),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in %s call: %v", c.Op, r)
			}
		}()
		return next(ctx)
	}
}
