// Package worker is the reference executor: a Pool of goroutines that runs
// accepted jobs through a Handler and records their progress in a
// job.Store, where the status and result routes read it.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// Reporter records that the job reached step index. Reporting an index again
// replaces its description.
type Reporter func(index int, description string)

// Handler does the work of one job and returns its output.
type Handler func(ctx context.Context, req job.Request, report Reporter) (json.RawMessage, error)

// Executor runs a single stored job through the handler and records the
// outcome.
type Executor struct {
	store      job.Store
	handler    Handler
	extensions *ext.Registry
	logger     *slog.Logger
	now        func() time.Time
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(store job.Store, handler Handler, extensions *ext.Registry, logger *slog.Logger) *Executor {
	return &Executor{
		store:      store,
		handler:    handler,
		extensions: extensions,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute moves the job to running, invokes the handler and records done or
// error. The handler's error is recorded on the job, not returned; the
// returned error reports store failures only.
func (e *Executor) Execute(ctx context.Context, id job.Handle) error {
	start := e.now().UTC()
	running := job.LifecycleRunning
	rec, err := e.store.UpdateJob(ctx, id, job.Update{Lifecycle: &running, StartedAt: &start})
	if err != nil {
		return fmt.Errorf("worker: start job %s: %w", id, err)
	}
	e.extensions.EmitJobStarted(ctx, rec)

	report := func(index int, description string) {
		if _, err := e.store.UpdateJob(ctx, id, job.Update{Steps: map[int]string{index: description}}); err != nil {
			e.logger.Warn("failed to record step",
				slog.String("job_id", id.String()),
				slog.Int("step", index),
				slog.String("error", err.Error()),
			)
		}
	}

	out, herr := e.run(ctx, rec.Request, report)

	// Terminal writes outlive a cancelled job context.
	wctx := context.WithoutCancel(ctx)
	end := e.now().UTC()
	elapsed := end.Sub(start)
	if herr != nil {
		return e.handleFailure(wctx, id, herr, end, elapsed)
	}
	return e.handleSuccess(wctx, id, out, end, elapsed)
}

func (e *Executor) run(ctx context.Context, req job.Request, report Reporter) (out json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job handler: %v", r)
		}
	}()
	return e.handler(ctx, req, report)
}

// handleSuccess marks the job done with its output.
func (e *Executor) handleSuccess(ctx context.Context, id job.Handle, out json.RawMessage, now time.Time, elapsed time.Duration) error {
	if len(out) == 0 {
		out = json.RawMessage("null")
	}
	done := job.LifecycleDone
	rec, err := e.store.UpdateJob(ctx, id, job.Update{Lifecycle: &done, Result: out, FinishedAt: &now})
	if err != nil {
		e.logger.Error("failed to update job after success",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.logger.Info("job done",
		slog.String("job_id", id.String()),
		slog.Duration("elapsed", elapsed),
	)
	e.extensions.EmitJobFinished(ctx, rec, elapsed)
	return nil
}

// handleFailure marks the job as error with the handler's message.
func (e *Executor) handleFailure(ctx context.Context, id job.Handle, handlerErr error, now time.Time, elapsed time.Duration) error {
	failed := job.LifecycleError
	msg := handlerErr.Error()
	rec, err := e.store.UpdateJob(ctx, id, job.Update{Lifecycle: &failed, Error: &msg, FinishedAt: &now})
	if err != nil {
		e.logger.Error("failed to update job as failed",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.logger.Warn("job failed",
		slog.String("job_id", id.String()),
		slog.String("error", msg),
	)
	e.extensions.EmitJobFinished(ctx, rec, elapsed)
	return nil
}
