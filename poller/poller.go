// Package poller runs a function repeatedly on a fixed cadence until it
// reports completion or the task is cancelled.
//
// The first invocation happens immediately. Each following invocation starts
// one interval after the previous one started; a call that outlasts the
// interval delays the next one instead of overlapping it, and missed periods
// are never queued. At most one invocation is in flight at any time.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/jobwatch/backoff"
)

// Func is invoked once per tick. Returning done stops the task. A non-nil
// error is logged and counted as a failure but never stops the task.
type Func func(ctx context.Context) (done bool, err error)

// Task is a running poll loop.
type Task struct {
	fn       Func
	interval time.Duration
	backoff  backoff.Strategy
	logger   *slog.Logger
	name     string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	calls    int
	failures int
}

// Option configures a Task.
type Option func(*Task)

// WithBackoff stretches the delay after consecutive failures to
// max(interval, s.Delay(failures)).
func WithBackoff(s backoff.Strategy) Option {
	return func(t *Task) { t.backoff = s }
}

// WithLogger sets the logger used for swallowed errors.
func WithLogger(l *slog.Logger) Option {
	return func(t *Task) { t.logger = l }
}

// WithName labels log records emitted by the task.
func WithName(name string) Option {
	return func(t *Task) { t.name = name }
}

// Start launches the poll loop. Cancelling ctx has the same effect as
// calling Cancel. A non-positive interval panics.
func Start(ctx context.Context, interval time.Duration, fn Func, opts ...Option) *Task {
	if interval <= 0 {
		panic("poller: interval must be positive")
	}
	t := &Task{
		fn:       fn,
		interval: interval,
		logger:   slog.Default(),
		name:     "poll",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.ctx, t.cancel = context.WithCancel(ctx)

	go t.run()
	return t
}

// Cancel stops the loop. The context of an in-flight invocation is
// cancelled and no further invocation is scheduled. Safe to call multiple
// times and from any goroutine.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once the loop has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the loop exits or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Calls returns the number of invocations started so far.
func (t *Task) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Failures returns the current run of consecutive failed invocations.
func (t *Task) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

func (t *Task) run() {
	defer close(t.done)
	defer t.cancel()

	for {
		if t.ctx.Err() != nil {
			return
		}

		start := time.Now()
		t.mu.Lock()
		t.calls++
		t.mu.Unlock()

		done, err := t.fn(t.ctx)
		if done || t.ctx.Err() != nil {
			return
		}

		delay := t.next(err)
		wait := delay - time.Since(start)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-t.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// next records the outcome of an invocation and returns the delay to apply
// from its start.
func (t *Task) next(err error) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err == nil {
		t.failures = 0
		return t.interval
	}

	t.failures++
	delay := t.interval
	if t.backoff != nil {
		if d := t.backoff.Delay(t.failures); d > delay {
			delay = d
		}
	}
	t.logger.Warn("poll attempt failed",
		slog.String("task", t.name),
		slog.Int("failures", t.failures),
		slog.Duration("next_in", delay),
		slog.String("error", err.Error()),
	)
	return delay
}
