package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobSubmitted = (*MetricsExtension)(nil)
	_ ext.PollFailed   = (*MetricsExtension)(nil)
	_ ext.JobSucceeded = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
	_ ext.SessionReset = (*MetricsExtension)(nil)
	_ ext.JobStarted   = (*MetricsExtension)(nil)
	_ ext.JobFinished  = (*MetricsExtension)(nil)
)

// meterName is the instrumentation scope name for jobwatch metrics.
const meterName = "github.com/xraph/jobwatch/observability"

// MetricsExtension records system-wide lifecycle metrics. Register it as an
// extension on a session, an executor, or both.
type MetricsExtension struct {
	JobSubmitted metric.Int64Counter
	JobSucceeded metric.Int64Counter
	JobFailed    metric.Int64Counter
	JobReset     metric.Int64Counter
	PollFailed   metric.Int64Counter
	JobDuration  metric.Float64Histogram

	ExecutorStarted  metric.Int64Counter
	ExecutorFinished metric.Int64Counter
	ExecutorDuration metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. Instrument creation errors fall back to the noop instruments the
// OTel API returns alongside them.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc)) //nolint:errcheck // noop fallback
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, _ := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s")) //nolint:errcheck // noop fallback
		return h
	}

	return &MetricsExtension{
		JobSubmitted: counter("jobwatch.job.submitted", "Jobs accepted by the executor"),
		JobSucceeded: counter("jobwatch.job.succeeded", "Jobs whose result was fetched"),
		JobFailed:    counter("jobwatch.job.failed", "Sessions that reached the failed state"),
		JobReset:     counter("jobwatch.job.reset", "Sessions reset while observing a job"),
		PollFailed:   counter("jobwatch.poll.failed", "Failed status requests"),
		JobDuration:  histogram("jobwatch.job.duration", "Time from acceptance to result in seconds"),

		ExecutorStarted:  counter("jobwatch.executor.started", "Jobs started by executor workers"),
		ExecutorFinished: counter("jobwatch.executor.finished", "Jobs finished by executor workers"),
		ExecutorDuration: histogram("jobwatch.executor.duration", "Executor run time in seconds"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Session hooks ───────────────────────────────────

// OnJobSubmitted implements ext.JobSubmitted.
func (m *MetricsExtension) OnJobSubmitted(ctx context.Context, _ job.Handle, _ job.Request) error {
	m.JobSubmitted.Add(ctx, 1)
	return nil
}

// OnPollFailed implements ext.PollFailed.
func (m *MetricsExtension) OnPollFailed(ctx context.Context, _ job.Handle, _ int, _ error) error {
	m.PollFailed.Add(ctx, 1)
	return nil
}

// OnJobSucceeded implements ext.JobSucceeded.
func (m *MetricsExtension) OnJobSucceeded(ctx context.Context, _ job.Handle, _ *job.Result, elapsed time.Duration) error {
	m.JobSucceeded.Add(ctx, 1)
	m.JobDuration.Record(ctx, elapsed.Seconds())
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, h job.Handle, _ error) error {
	stage := "job"
	if h.IsZero() {
		stage = "submit"
	}
	m.JobFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	return nil
}

// OnSessionReset implements ext.SessionReset.
func (m *MetricsExtension) OnSessionReset(ctx context.Context, _ job.Handle) error {
	m.JobReset.Add(ctx, 1)
	return nil
}

// ── Executor hooks ──────────────────────────────────

// OnJobStarted implements ext.JobStarted.
func (m *MetricsExtension) OnJobStarted(ctx context.Context, _ *job.Record) error {
	m.ExecutorStarted.Add(ctx, 1)
	return nil
}

// OnJobFinished implements ext.JobFinished.
func (m *MetricsExtension) OnJobFinished(ctx context.Context, r *job.Record, elapsed time.Duration) error {
	attrs := metric.WithAttributes(attribute.String("status", string(r.Lifecycle)))
	m.ExecutorFinished.Add(ctx, 1, attrs)
	m.ExecutorDuration.Record(ctx, elapsed.Seconds(), attrs)
	return nil
}
