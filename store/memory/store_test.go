package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newRecord(id string) *job.Record {
	return job.NewRecord(job.Handle(id), job.Request{Topic: "go", TargetChars: 500}, time.Now())
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	tests := []struct {
		name    string
		fn      func() error
		wantErr error
	}{
		{"create", func() error { return s.CreateJob(ctx, newRecord("a")) }, nil},
		{"duplicate", func() error { return s.CreateJob(ctx, newRecord("a")) }, jobwatch.ErrJobAlreadyExists},
		{"get", func() error { _, err := s.GetJob(ctx, "a"); return err }, nil},
		{"get missing", func() error { _, err := s.GetJob(ctx, "b"); return err }, jobwatch.ErrJobNotFound},
		{"update missing", func() error { _, err := s.UpdateJob(ctx, "b", job.Update{}); return err }, jobwatch.ErrJobNotFound},
	}
	for _, tt := range tests {
		if err := tt.fn(); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	if err := s.CreateJob(ctx, newRecord("a")); err != nil {
		t.Fatal(err)
	}

	r, _ := s.GetJob(ctx, "a")
	r.Steps[1] = "mutated"
	r.Lifecycle = job.LifecycleDone

	again, _ := s.GetJob(ctx, "a")
	if len(again.Steps) != 0 || again.Lifecycle != job.LifecyclePending {
		t.Errorf("stored record mutated through copy: %+v", again)
	}
}

func TestUpdateMergesSteps(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	if err := s.CreateJob(ctx, newRecord("a")); err != nil {
		t.Fatal(err)
	}

	running := job.LifecycleRunning
	if _, err := s.UpdateJob(ctx, "a", job.Update{Lifecycle: &running, Steps: map[int]string{1: "fetch"}}); err != nil {
		t.Fatal(err)
	}
	done := job.LifecycleDone
	r, err := s.UpdateJob(ctx, "a", job.Update{
		Lifecycle: &done,
		Steps:     map[int]string{2: "draft"},
		Result:    json.RawMessage(`{"ok":true}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	if r.Lifecycle != job.LifecycleDone {
		t.Errorf("lifecycle = %s", r.Lifecycle)
	}
	if r.Steps[1] != "fetch" || r.Steps[2] != "draft" {
		t.Errorf("steps = %v", r.Steps)
	}
	if !r.Snapshot().HasResult {
		t.Error("snapshot should report a result")
	}
}

func TestExpiry(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := New(WithTTL(time.Hour), WithClock(clock.Now))
	ctx := context.Background()

	if err := s.CreateJob(ctx, newRecord("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateJob(ctx, newRecord("b")); err != nil {
		t.Fatal(err)
	}

	clock.Advance(45 * time.Minute)
	if _, err := s.UpdateJob(ctx, "b", job.Update{Steps: map[int]string{1: "x"}}); err != nil {
		t.Fatal(err)
	}

	clock.Advance(30 * time.Minute)
	if _, err := s.GetJob(ctx, "a"); !errors.Is(err, jobwatch.ErrJobNotFound) {
		t.Errorf("expired get err = %v, want ErrJobNotFound", err)
	}
	if _, err := s.GetJob(ctx, "b"); err != nil {
		t.Errorf("refreshed record: %v", err)
	}

	if n := s.Sweep(); n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	s := New(WithTTL(time.Minute), WithClock(clock.Now), WithSweepSchedule("@every 1s"))
	ctx := context.Background()

	if err := s.CreateJob(ctx, newRecord("a")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Minute)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper never removed expired record")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	s := New(WithSweepSchedule("every now and then"))
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClose(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, jobwatch.ErrStoreClosed) {
		t.Errorf("Ping err = %v", err)
	}
	if err := s.CreateJob(ctx, newRecord("a")); !errors.Is(err, jobwatch.ErrStoreClosed) {
		t.Errorf("CreateJob err = %v", err)
	}
}
