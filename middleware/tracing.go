package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for jobwatch tracing.
const tracerName = "github.com/xraph/jobwatch"

// Tracing returns middleware that wraps each call in a client span using the
// global TracerProvider. Without a configured provider the noop tracer is
// used.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
//
// The span is named "jobwatch.<op>" and carries jobwatch.op, jobwatch.job.id,
// http.request.method, url.full and, once known, http.response.status_code.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		ctx, span := tracer.Start(ctx, "jobwatch."+string(c.Op),
			trace.WithAttributes(
				attribute.String("jobwatch.op", string(c.Op)),
				attribute.String("jobwatch.job.id", c.JobID),
				attribute.String("http.request.method", c.Method),
				attribute.String("url.full", c.URL),
			),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		err := next(ctx)
		if c.StatusCode != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", c.StatusCode))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
