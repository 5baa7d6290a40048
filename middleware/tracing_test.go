package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	mw "github.com/xraph/jobwatch/middleware"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func TestTracing_CreatesClientSpan(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	if err := m(context.Background(), newTestCall(), func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "jobwatch.status" {
		t.Errorf("span name = %q, want %q", spans[0].Name(), "jobwatch.status")
	}
	if spans[0].SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", spans[0].SpanKind())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected status Ok, got %v", spans[0].Status().Code)
	}
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	c := newTestCall()
	_ = m(context.Background(), c, func(_ context.Context) error {
		c.StatusCode = 200
		return nil
	})

	attrMap := make(map[string]any)
	for _, a := range sr.Ended()[0].Attributes() {
		switch a.Value.Type() {
		case attribute.STRING:
			attrMap[string(a.Key)] = a.Value.AsString()
		case attribute.INT64:
			attrMap[string(a.Key)] = a.Value.AsInt64()
		}
	}

	expected := map[string]any{
		"jobwatch.op":               "status",
		"jobwatch.job.id":           "0f8e2c",
		"http.request.method":       "GET",
		"url.full":                  "http://executor/api/status/0f8e2c",
		"http.response.status_code": int64(200),
	}
	for key, want := range expected {
		got, ok := attrMap[key]
		if !ok {
			t.Errorf("missing attribute %q", key)
			continue
		}
		if got != want {
			t.Errorf("attribute %q = %v, want %v", key, got, want)
		}
	}
}

func TestTracing_Error_SetsErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	callErr := errors.New("connection reset")
	err := m(context.Background(), newTestCall(), func(_ context.Context) error { return callErr })
	if !errors.Is(err, callErr) {
		t.Fatalf("expected call error, got %v", err)
	}

	span := sr.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Errorf("expected status Error, got %v", span.Status().Code)
	}
	if span.Status().Description != "connection reset" {
		t.Errorf("status description = %q", span.Status().Description)
	}
	found := false
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected 'exception' event to be recorded on span")
	}
}

func TestTracing_PropagatesContext(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	var inner trace.SpanContext
	_ = m(context.Background(), newTestCall(), func(ctx context.Context) error {
		inner = trace.SpanFromContext(ctx).SpanContext()
		return nil
	})

	if !inner.IsValid() {
		t.Fatal("expected valid span context in handler")
	}
	if inner.TraceID() != sr.Ended()[0].SpanContext().TraceID() {
		t.Error("handler span context trace ID does not match middleware span")
	}
}
