package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/jobwatch/job"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time.
type jobSubmittedEntry struct {
	name string
	hook JobSubmitted
}

type stepsReconciledEntry struct {
	name string
	hook StepsReconciled
}

type pollFailedEntry struct {
	name string
	hook PollFailed
}

type jobSucceededEntry struct {
	name string
	hook JobSucceeded
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type sessionResetEntry struct {
	name string
	hook SessionReset
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobFinishedEntry struct {
	name string
	hook JobFinished
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	jobSubmitted    []jobSubmittedEntry
	stepsReconciled []stepsReconciledEntry
	pollFailed      []pollFailedEntry
	jobSucceeded    []jobSucceededEntry
	jobFailed       []jobFailedEntry
	sessionReset    []sessionResetEntry
	jobStarted      []jobStartedEntry
	jobFinished     []jobFinishedEntry
	shutdown        []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order. Register is
// not safe to call concurrently with the Emit methods.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobSubmitted); ok {
		r.jobSubmitted = append(r.jobSubmitted, jobSubmittedEntry{name, h})
	}
	if h, ok := e.(StepsReconciled); ok {
		r.stepsReconciled = append(r.stepsReconciled, stepsReconciledEntry{name, h})
	}
	if h, ok := e.(PollFailed); ok {
		r.pollFailed = append(r.pollFailed, pollFailedEntry{name, h})
	}
	if h, ok := e.(JobSucceeded); ok {
		r.jobSucceeded = append(r.jobSucceeded, jobSucceededEntry{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, h})
	}
	if h, ok := e.(SessionReset); ok {
		r.sessionReset = append(r.sessionReset, sessionResetEntry{name, h})
	}
	if h, ok := e.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := e.(JobFinished); ok {
		r.jobFinished = append(r.jobFinished, jobFinishedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension {
	return r.extensions
}

// ──────────────────────────────────────────────────
// Session event emitters
// ──────────────────────────────────────────────────

// EmitJobSubmitted notifies all extensions that implement JobSubmitted.
func (r *Registry) EmitJobSubmitted(ctx context.Context, h job.Handle, req job.Request) {
	for _, e := range r.jobSubmitted {
		if err := e.hook.OnJobSubmitted(ctx, h, req); err != nil {
			r.logHookError("OnJobSubmitted", e.name, err)
		}
	}
}

// EmitStepsReconciled notifies all extensions that implement StepsReconciled.
func (r *Registry) EmitStepsReconciled(ctx context.Context, h job.Handle, lifecycle job.Lifecycle, steps []job.Step) {
	for _, e := range r.stepsReconciled {
		if err := e.hook.OnStepsReconciled(ctx, h, lifecycle, steps); err != nil {
			r.logHookError("OnStepsReconciled", e.name, err)
		}
	}
}

// EmitPollFailed notifies all extensions that implement PollFailed.
func (r *Registry) EmitPollFailed(ctx context.Context, h job.Handle, failures int, pollErr error) {
	for _, e := range r.pollFailed {
		if err := e.hook.OnPollFailed(ctx, h, failures, pollErr); err != nil {
			r.logHookError("OnPollFailed", e.name, err)
		}
	}
}

// EmitJobSucceeded notifies all extensions that implement JobSucceeded.
func (r *Registry) EmitJobSucceeded(ctx context.Context, h job.Handle, res *job.Result, elapsed time.Duration) {
	for _, e := range r.jobSucceeded {
		if err := e.hook.OnJobSucceeded(ctx, h, res, elapsed); err != nil {
			r.logHookError("OnJobSucceeded", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, h job.Handle, jobErr error) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, h, jobErr); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitSessionReset notifies all extensions that implement SessionReset.
func (r *Registry) EmitSessionReset(ctx context.Context, h job.Handle) {
	for _, e := range r.sessionReset {
		if err := e.hook.OnSessionReset(ctx, h); err != nil {
			r.logHookError("OnSessionReset", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Executor event emitters
// ──────────────────────────────────────────────────

// EmitJobStarted notifies all extensions that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, rec *job.Record) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, rec); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobFinished notifies all extensions that implement JobFinished.
func (r *Registry) EmitJobFinished(ctx context.Context, rec *job.Record, elapsed time.Duration) {
	for _, e := range r.jobFinished {
		if err := e.hook.OnJobFinished(ctx, rec, elapsed); err != nil {
			r.logHookError("OnJobFinished", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
