package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobSubmitted = (*Extension)(nil)
	_ ext.PollFailed   = (*Extension)(nil)
	_ ext.JobSucceeded = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
	_ ext.SessionReset = (*Extension)(nil)
	_ ext.JobStarted   = (*Extension)(nil)
	_ ext.JobFinished  = (*Extension)(nil)
)

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit record.
type AuditEvent struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// SlogRecorder writes each event as a log record whose level follows the
// event severity.
func SlogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("category", evt.Category),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
		}
		if evt.Reason != "" {
			attrs = append(attrs, slog.String("reason", evt.Reason))
		}
		if len(evt.Metadata) > 0 {
			attrs = append(attrs, slog.Any("metadata", evt.Metadata))
		}
		logger.LogAttrs(ctx, level, "audit", attrs...)
		return nil
	})
}

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension records session and executor lifecycle events through a
// Recorder.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through r.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Session hooks ───────────────────────────────────

// OnJobSubmitted implements ext.JobSubmitted.
func (e *Extension) OnJobSubmitted(ctx context.Context, h job.Handle, req job.Request) error {
	return e.record(ctx, ActionJobSubmitted, SeverityInfo, OutcomeSuccess,
		h.String(), CategorySession, nil,
		"topic", req.Topic,
		"photo_count", req.PhotoCount,
		"target_chars", req.TargetChars,
		"llm_model", req.Model(),
	)
}

// OnPollFailed implements ext.PollFailed.
func (e *Extension) OnPollFailed(ctx context.Context, h job.Handle, failures int, pollErr error) error {
	return e.record(ctx, ActionJobPollFailed, SeverityWarning, OutcomeFailure,
		h.String(), CategorySession, pollErr,
		"failures", failures,
	)
}

// OnJobSucceeded implements ext.JobSucceeded.
func (e *Extension) OnJobSucceeded(ctx context.Context, h job.Handle, _ *job.Result, elapsed time.Duration) error {
	return e.record(ctx, ActionJobSucceeded, SeverityInfo, OutcomeSuccess,
		h.String(), CategorySession, nil,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, h job.Handle, jobErr error) error {
	stage := "job"
	if h.IsZero() {
		stage = "submit"
	}
	return e.record(ctx, ActionJobFailed, SeverityCritical, OutcomeFailure,
		h.String(), CategorySession, jobErr,
		"stage", stage,
	)
}

// OnSessionReset implements ext.SessionReset.
func (e *Extension) OnSessionReset(ctx context.Context, h job.Handle) error {
	return e.record(ctx, ActionJobReset, SeverityWarning, OutcomeSuccess,
		h.String(), CategorySession, nil,
	)
}

// ── Executor hooks ──────────────────────────────────

// OnJobStarted implements ext.JobStarted.
func (e *Extension) OnJobStarted(ctx context.Context, r *job.Record) error {
	return e.record(ctx, ActionExecutorStarted, SeverityInfo, OutcomeSuccess,
		r.ID.String(), CategoryExecutor, nil,
		"topic", r.Request.Topic,
	)
}

// OnJobFinished implements ext.JobFinished.
func (e *Extension) OnJobFinished(ctx context.Context, r *job.Record, elapsed time.Duration) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	var jobErr error
	if r.Lifecycle == job.LifecycleError {
		severity, outcome = SeverityCritical, OutcomeFailure
		jobErr = errors.New(r.Error)
	}
	return e.record(ctx, ActionExecutorFinished, severity, outcome,
		r.ID.String(), CategoryExecutor, jobErr,
		"status", r.Lifecycle.String(),
		"steps", len(r.Steps),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// record builds and emits an audit event. Recorder failures are logged and
// never propagated.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   ResourceJob,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
