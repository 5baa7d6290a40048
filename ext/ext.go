// Package ext defines the extension system for jobwatch.
// Extensions are notified of job lifecycle events on both sides of the wire
// (a session observing a job, an executor running one) and can react to
// them with logging, metrics, or fan-out to other consumers.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/jobwatch/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Session hooks
// ──────────────────────────────────────────────────

// JobSubmitted is called after the executor accepted a job.
type JobSubmitted interface {
	OnJobSubmitted(ctx context.Context, h job.Handle, req job.Request) error
}

// StepsReconciled is called after a status snapshot changed the step block.
// steps is the full block in index order.
type StepsReconciled interface {
	OnStepsReconciled(ctx context.Context, h job.Handle, lifecycle job.Lifecycle, steps []job.Step) error
}

// PollFailed is called when a status request fails and will be retried.
type PollFailed interface {
	OnPollFailed(ctx context.Context, h job.Handle, failures int, err error) error
}

// JobSucceeded is called when a job's result was fetched successfully.
type JobSucceeded interface {
	OnJobSucceeded(ctx context.Context, h job.Handle, res *job.Result, elapsed time.Duration) error
}

// JobFailed is called when a session reaches the failed state. h is empty
// when the submission itself failed.
type JobFailed interface {
	OnJobFailed(ctx context.Context, h job.Handle, err error) error
}

// SessionReset is called when a session stops observing a job before it
// reached a terminal state.
type SessionReset interface {
	OnSessionReset(ctx context.Context, h job.Handle) error
}

// ──────────────────────────────────────────────────
// Executor hooks
// ──────────────────────────────────────────────────

// JobStarted is called when an executor worker begins running a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, r *job.Record) error
}

// JobFinished is called when an executor worker finished a job, whether
// it succeeded or not. Inspect r.Lifecycle for the outcome.
type JobFinished interface {
	OnJobFinished(ctx context.Context, r *job.Record, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
