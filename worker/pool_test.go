package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/store/memory"
	"github.com/xraph/jobwatch/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type lifecycleRecorder struct {
	mu       sync.Mutex
	started  []job.Handle
	finished []job.Lifecycle
}

func (r *lifecycleRecorder) Name() string { return "lifecycle-recorder" }

func (r *lifecycleRecorder) OnJobStarted(_ context.Context, rec *job.Record) error {
	r.mu.Lock()
	r.started = append(r.started, rec.ID)
	r.mu.Unlock()
	return nil
}

func (r *lifecycleRecorder) OnJobFinished(_ context.Context, rec *job.Record, _ time.Duration) error {
	r.mu.Lock()
	r.finished = append(r.finished, rec.Lifecycle)
	r.mu.Unlock()
	return nil
}

func setupTestPool(t *testing.T, handler worker.Handler, opts ...worker.PoolOption) (*worker.Pool, *memory.Store) {
	t.Helper()
	s := memory.New()
	opts = append([]worker.PoolOption{worker.WithLogger(testLogger()), worker.WithConcurrency(2)}, opts...)
	pool := worker.NewPool(s, handler, opts...)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	})
	return pool, s
}

func waitTerminal(t *testing.T, s *memory.Store, id job.Handle) *job.Record {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		rec, err := s.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if rec.Lifecycle.IsTerminal() {
			return rec
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s stuck in %s", id, rec.Lifecycle)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewJobID(t *testing.T) {
	a, b := worker.NewJobID(), worker.NewJobID()
	if len(a) != 32 {
		t.Errorf("len = %d, want 32", len(a))
	}
	if a == b {
		t.Error("ids must be unique")
	}
}

func TestPool_StartStop(t *testing.T) {
	pool := worker.NewPool(memory.New(), nil, worker.WithLogger(testLogger()))

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("unexpected double-start error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("unexpected double-stop error: %v", err)
	}
}

func TestPool_RunsJobAndRecordsSteps(t *testing.T) {
	rec := &lifecycleRecorder{}
	handler := func(_ context.Context, req job.Request, report worker.Reporter) (json.RawMessage, error) {
		report(1, "fetch")
		report(2, "draft")
		report(2, "draft (revised)")
		return json.Marshal(map[string]string{"topic": req.Topic})
	}
	pool, s := setupTestPool(t, handler, worker.WithExtension(rec))

	id, err := pool.Enqueue(context.Background(), job.Request{Topic: "gophers", TargetChars: 500})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got := waitTerminal(t, s, id)
	if got.Lifecycle != job.LifecycleDone {
		t.Fatalf("lifecycle = %s, error = %q", got.Lifecycle, got.Error)
	}
	if got.Steps[1] != "fetch" || got.Steps[2] != "draft (revised)" {
		t.Errorf("steps = %v", got.Steps)
	}
	if string(got.Result) != `{"topic":"gophers"}` {
		t.Errorf("result = %s", got.Result)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Error("timestamps not recorded")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.started) != 1 || rec.started[0] != id {
		t.Errorf("started = %v", rec.started)
	}
	if len(rec.finished) != 1 || rec.finished[0] != job.LifecycleDone {
		t.Errorf("finished = %v", rec.finished)
	}
}

func TestPool_HandlerError(t *testing.T) {
	handler := func(context.Context, job.Request, worker.Reporter) (json.RawMessage, error) {
		return nil, errors.New("model overloaded")
	}
	pool, s := setupTestPool(t, handler)

	id, err := pool.Enqueue(context.Background(), job.Request{Topic: "x", TargetChars: 500})
	if err != nil {
		t.Fatal(err)
	}
	got := waitTerminal(t, s, id)
	if got.Lifecycle != job.LifecycleError || got.Error != "model overloaded" {
		t.Errorf("record = %+v", got)
	}
}

func TestPool_HandlerPanic(t *testing.T) {
	handler := func(context.Context, job.Request, worker.Reporter) (json.RawMessage, error) {
		panic("boom")
	}
	pool, s := setupTestPool(t, handler)

	id, err := pool.Enqueue(context.Background(), job.Request{Topic: "x", TargetChars: 500})
	if err != nil {
		t.Fatal(err)
	}
	got := waitTerminal(t, s, id)
	if got.Lifecycle != job.LifecycleError || got.Error != "panic in job handler: boom" {
		t.Errorf("record = %+v", got)
	}
}

func TestPool_QueueFull(t *testing.T) {
	s := memory.New()
	pool := worker.NewPool(s, nil, worker.WithLogger(testLogger()), worker.WithQueueSize(1))

	if _, err := pool.Enqueue(context.Background(), job.Request{Topic: "a"}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if _, err := pool.Enqueue(context.Background(), job.Request{Topic: "b"}); !errors.Is(err, jobwatch.ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	if pool.Pending() != 1 {
		t.Errorf("pending = %d, want 1", pool.Pending())
	}
}

func TestPool_StopTimeoutCancelsJobs(t *testing.T) {
	started := make(chan struct{})
	handler := func(ctx context.Context, _ job.Request, _ worker.Reporter) (json.RawMessage, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := memory.New()
	pool := worker.NewPool(s, handler, worker.WithLogger(testLogger()), worker.WithConcurrency(1))
	if err := pool.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	id, err := pool.Enqueue(context.Background(), job.Request{Topic: "slow", TargetChars: 500})
	if err != nil {
		t.Fatal(err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got, err := s.GetJob(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Lifecycle != job.LifecycleError {
		t.Errorf("lifecycle = %s, want error", got.Lifecycle)
	}
}
