package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs each call at debug level and each
// failed call at warn level.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		attrs := []any{
			slog.String("op", string(c.Op)),
			slog.String("method", c.Method),
			slog.String("url", c.URL),
			slog.String("status", c.Status()),
			slog.Duration("elapsed", elapsed),
		}
		if c.JobID != "" {
			attrs = append(attrs, slog.String("job_id", c.JobID))
		}
		if c.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", c.RequestID))
		}

		if err != nil {
			logger.Warn("service call failed", append(attrs, slog.String("error", err.Error()))...)
		} else {
			logger.Debug("service call completed", attrs...)
		}
		return err
	}
}
