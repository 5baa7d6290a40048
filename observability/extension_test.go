package observability_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/observability"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	return rm
}

// counterValue sums every data point of the named Int64 counter.
func counterValue(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func histogramCount(rm metricdata.ResourceMetrics, name string) uint64 {
	var total uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok {
				for _, dp := range h.DataPoints {
					total += dp.Count
				}
			}
		}
	}
	return total
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_SessionHooks(t *testing.T) {
	e, reader := newTestExtension()
	ctx := context.Background()

	_ = e.OnJobSubmitted(ctx, "a", job.Request{})
	_ = e.OnJobSubmitted(ctx, "b", job.Request{})
	_ = e.OnPollFailed(ctx, "a", 1, errors.New("net"))
	_ = e.OnJobSucceeded(ctx, "a", &job.Result{Status: "ok"}, 2*time.Second)
	_ = e.OnJobFailed(ctx, "b", errors.New("boom"))
	_ = e.OnJobFailed(ctx, "", errors.New("rejected"))
	_ = e.OnSessionReset(ctx, "c")

	rm := collect(t, reader)
	tests := []struct {
		name string
		want int64
	}{
		{"jobwatch.job.submitted", 2},
		{"jobwatch.poll.failed", 1},
		{"jobwatch.job.succeeded", 1},
		{"jobwatch.job.failed", 2},
		{"jobwatch.job.reset", 1},
	}
	for _, tt := range tests {
		if got := counterValue(rm, tt.name); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
	if got := histogramCount(rm, "jobwatch.job.duration"); got != 1 {
		t.Errorf("jobwatch.job.duration count = %d, want 1", got)
	}
}

func TestMetricsExtension_ExecutorHooks(t *testing.T) {
	e, reader := newTestExtension()
	ctx := context.Background()

	rec := job.NewRecord("a", job.Request{}, time.Now())
	_ = e.OnJobStarted(ctx, rec)
	rec.Lifecycle = job.LifecycleDone
	_ = e.OnJobFinished(ctx, rec, time.Second)

	rm := collect(t, reader)
	if got := counterValue(rm, "jobwatch.executor.started"); got != 1 {
		t.Errorf("executor.started = %d", got)
	}
	if got := counterValue(rm, "jobwatch.executor.finished"); got != 1 {
		t.Errorf("executor.finished = %d", got)
	}
	if got := histogramCount(rm, "jobwatch.executor.duration"); got != 1 {
		t.Errorf("executor.duration count = %d", got)
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e, reader := newTestExtension()
	r := ext.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.Register(e)

	r.EmitJobSubmitted(context.Background(), "a", job.Request{})
	r.EmitJobFailed(context.Background(), "a", errors.New("x"))

	rm := collect(t, reader)
	if got := counterValue(rm, "jobwatch.job.submitted"); got != 1 {
		t.Errorf("submitted = %d", got)
	}
	if got := counterValue(rm, "jobwatch.job.failed"); got != 1 {
		t.Errorf("failed = %d", got)
	}
}

func TestMetricsExtension_DefaultNoopSafe(t *testing.T) {
	e := observability.NewMetricsExtension()
	if err := e.OnJobSubmitted(context.Background(), "a", job.Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
