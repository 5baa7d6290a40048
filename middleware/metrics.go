package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for jobwatch metrics.
const meterName = "github.com/xraph/jobwatch"

// Metrics returns middleware that records per-call metrics using the global
// MeterProvider.
//
// Instruments:
//   - jobwatch.call.duration (Float64Histogram): call latency in seconds
//   - jobwatch.call.count (Int64Counter): total calls
//
// Both carry op, status_code and outcome ("ok" or "error").
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	duration, dErr := meter.Float64Histogram(
		"jobwatch.call.duration",
		metric.WithDescription("Duration of calls to the job submission service in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	calls, cErr := meter.Int64Counter(
		"jobwatch.call.count",
		metric.WithDescription("Total number of calls to the job submission service"),
		metric.WithUnit("{call}"),
	)
	_ = cErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, c *Call, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("op", string(c.Op)),
			attribute.String("status_code", c.Status()),
			attribute.String("outcome", outcome),
		)

		duration.Record(ctx, elapsed, attrs)
		calls.Add(ctx, 1, attrs)
		return err
	}
}
