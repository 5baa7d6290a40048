package poller_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/jobwatch/backoff"
	"github.com/xraph/jobwatch/poller"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStart_FirstCallImmediate(t *testing.T) {
	called := make(chan time.Time, 1)
	start := time.Now()

	task := poller.Start(context.Background(), time.Hour, func(_ context.Context) (bool, error) {
		called <- time.Now()
		return true, nil
	}, poller.WithLogger(testLogger()))
	defer task.Cancel()

	select {
	case at := <-called:
		if at.Sub(start) > 500*time.Millisecond {
			t.Errorf("first call took %v, expected immediate", at.Sub(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first call never happened")
	}
}

func TestStart_StopsWhenDone(t *testing.T) {
	var n atomic.Int32
	task := poller.Start(context.Background(), 5*time.Millisecond, func(_ context.Context) (bool, error) {
		return n.Add(1) == 3, nil
	}, poller.WithLogger(testLogger()))

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not stop after done")
	}
	if got := n.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if task.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", task.Calls())
	}
}

func TestStart_ErrorsDoNotStopLoop(t *testing.T) {
	var n atomic.Int32
	task := poller.Start(context.Background(), 5*time.Millisecond, func(_ context.Context) (bool, error) {
		if n.Add(1) < 4 {
			return false, errors.New("connection refused")
		}
		return true, nil
	}, poller.WithLogger(testLogger()))

	if err := task.Wait(ctxTimeout(t, 2*time.Second)); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := n.Load(); got != 4 {
		t.Errorf("calls = %d, want 4", got)
	}
	if task.Failures() != 0 {
		t.Errorf("Failures() = %d, want reset to 0 after success", task.Failures())
	}
}

func TestStart_NoOverlap(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	var n atomic.Int32

	task := poller.Start(context.Background(), time.Millisecond, func(_ context.Context) (bool, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return n.Add(1) == 5, nil
	}, poller.WithLogger(testLogger()))

	if err := task.Wait(ctxTimeout(t, 2*time.Second)); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("max in-flight = %d, want 1", maxInFlight.Load())
	}
}

func TestCancel_Idempotent(t *testing.T) {
	var n atomic.Int32
	task := poller.Start(context.Background(), 5*time.Millisecond, func(_ context.Context) (bool, error) {
		n.Add(1)
		return false, nil
	}, poller.WithLogger(testLogger()))

	time.Sleep(20 * time.Millisecond)

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.Cancel()
		}()
	}
	wg.Wait()
	task.Cancel()

	if err := task.Wait(ctxTimeout(t, time.Second)); err != nil {
		t.Fatalf("wait: %v", err)
	}
	after := n.Load()
	time.Sleep(30 * time.Millisecond)
	if n.Load() != after {
		t.Errorf("calls continued after cancel: %d -> %d", after, n.Load())
	}
}

func TestCancel_CancelsInFlightContext(t *testing.T) {
	entered := make(chan struct{})
	task := poller.Start(context.Background(), time.Hour, func(ctx context.Context) (bool, error) {
		close(entered)
		<-ctx.Done()
		return false, ctx.Err()
	}, poller.WithLogger(testLogger()))

	<-entered
	task.Cancel()
	if err := task.Wait(ctxTimeout(t, time.Second)); err != nil {
		t.Fatalf("in-flight call was not cancelled: %v", err)
	}
}

func TestWithBackoff_StretchesDelay(t *testing.T) {
	var times []time.Time
	var mu sync.Mutex
	slow := backoff.NewConstant(60 * time.Millisecond)

	task := poller.Start(context.Background(), 5*time.Millisecond, func(_ context.Context) (bool, error) {
		mu.Lock()
		times = append(times, time.Now())
		n := len(times)
		mu.Unlock()
		if n == 2 {
			return true, nil
		}
		return false, errors.New("boom")
	}, poller.WithBackoff(slow), poller.WithLogger(testLogger()))

	if err := task.Wait(ctxTimeout(t, 2*time.Second)); err != nil {
		t.Fatalf("wait: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if gap := times[1].Sub(times[0]); gap < 50*time.Millisecond {
		t.Errorf("gap after failure = %v, want >= 50ms", gap)
	}
}

func ctxTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
