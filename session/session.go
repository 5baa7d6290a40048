// Package session observes one remote job at a time: it validates and
// submits a request, polls the job's status on a fixed cadence, reconciles
// progress into a log, and fetches the result once the job is done.
//
// State machine:
//
//	Idle ──Submit──▶ Submitting ──accepted──▶ Awaiting ──done + result ok──▶ Succeeded
//	                     │                       │
//	                     └──rejected/transport───┴──error / result failure──▶ Failed
//
// Submit while Submitting, Awaiting, Succeeded or Failed first resets the
// session. Reset returns to Idle from any state. Responses belonging to a
// job the session no longer observes are discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/backoff"
	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/poller"
	"github.com/xraph/jobwatch/progress"
)

// Default messages when the service gives no reason.
const (
	msgRejected     = "job submission was rejected"
	msgJobFailed    = "job failed on the server"
	msgResultFailed = "job result was not ok"
)

var errEmptySnapshot = errors.New("jobwatch/session: status response had no body")

// Service is the job submission service. *client.Client implements it.
// A nil value with a nil error means the service answered without a body.
type Service interface {
	Submit(ctx context.Context, req job.Request) (*job.Submission, error)
	Status(ctx context.Context, h job.Handle) (*job.Snapshot, error)
	Result(ctx context.Context, h job.Handle) (*job.Result, error)
}

// run is one submission and everything observed for it.
type run struct {
	gen      uint64
	request  job.Request
	handle   job.Handle
	accepted time.Time
	seq      uint64
	failures int

	cancel context.CancelFunc
	task   *poller.Task

	done     chan struct{}
	finished bool
	result   *job.Result
	err      error
}

func (r *run) stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.task != nil {
		r.task.Cancel()
	}
}

// Session observes at most one job. It is safe for concurrent use.
type Session struct {
	svc     Service
	cfg     jobwatch.Config
	bounds  job.Bounds
	logger  *slog.Logger
	exts    *ext.Registry
	pending []ext.Extension
	backoff backoff.Strategy
	now     func() time.Time
	log     *progress.Log

	ctx  context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	state  State
	err    error
	gen    uint64
	cur    *run
	closed bool
}

// New creates an idle session backed by svc.
func New(svc Service, opts ...Option) (*Session, error) {
	s := &Session{
		svc:    svc,
		cfg:    jobwatch.DefaultConfig(),
		logger: slog.Default(),
		now:    time.Now,
		state:  Idle{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	s.bounds = job.BoundsFromConfig(s.cfg)
	s.exts = ext.NewRegistry(s.logger)
	for _, e := range s.pending {
		s.exts.Register(e)
	}
	s.log = progress.New(progress.WithClock(s.now))
	s.ctx, s.stop = context.WithCancel(context.Background())
	return s, nil
}

// Submit validates req, resets the session and submits the job. It returns
// once the service accepted or rejected it; polling continues in the
// background. An invalid request returns a *job.ValidationError without
// touching the network or the current state.
func (s *Session) Submit(ctx context.Context, req job.Request) (job.Handle, error) {
	req = req.Normalize()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", jobwatch.ErrSessionClosed
	}
	if err := req.Validate(s.bounds); err != nil {
		s.err = err
		s.mu.Unlock()
		return "", err
	}

	prev := s.supersede()
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := &run{gen: s.gen, request: req, cancel: cancel, done: make(chan struct{})}
	s.cur = r
	s.state = Submitting{Request: req}
	s.log.Append("submission requested")
	s.mu.Unlock()

	s.emitReset(prev)

	callCtx, callCancel := s.callCtx(subCtx)
	sub, err := s.svc.Submit(callCtx, req)
	callCancel()

	s.mu.Lock()
	if s.cur != r {
		s.mu.Unlock()
		return "", jobwatch.ErrSessionReset
	}
	if err != nil {
		if !errors.Is(err, jobwatch.ErrTransport) {
			err = jobwatch.NewError(jobwatch.ErrTransport, "", err)
		}
		emit := s.failLocked(r, err)
		s.mu.Unlock()
		emit()
		return "", err
	}
	if !sub.Accepted() {
		msg := msgRejected
		if sub != nil && sub.Detail != "" {
			msg = sub.Detail
		}
		rerr := jobwatch.NewError(jobwatch.ErrSubmissionRejected, msg, nil)
		emit := s.failLocked(r, rerr)
		s.mu.Unlock()
		emit()
		return "", rerr
	}

	h := sub.Handle()
	r.handle = h
	r.accepted = s.now()
	r.cancel = nil
	s.state = Awaiting{Handle: h, Since: r.accepted, Lifecycle: job.LifecyclePending}
	s.log.Append("accepted: job_id=" + h.String())
	s.mu.Unlock()

	s.logger.Info("job accepted",
		slog.String("job_id", h.String()),
		slog.Uint64("generation", r.gen),
	)
	s.exts.EmitJobSubmitted(s.ctx, h, req)

	s.mu.Lock()
	if s.cur == r && !r.finished {
		opts := []poller.Option{
			poller.WithLogger(s.logger),
			poller.WithName("status:" + h.String()),
		}
		if s.backoff != nil {
			opts = append(opts, poller.WithBackoff(s.backoff))
		}
		r.task = poller.Start(s.ctx, s.cfg.PollInterval, s.pollFunc(r), opts...)
	}
	s.mu.Unlock()

	return h, nil
}

// Reset stops observing the current job and returns to Idle. Nothing is
// sent to the service; the job keeps running remotely.
func (s *Session) Reset() {
	s.mu.Lock()
	prev := s.supersede()
	s.state = Idle{}
	s.mu.Unlock()
	s.emitReset(prev)
}

// Close resets the session, notifies extensions of shutdown and waits for
// the poll loop to exit or ctx to expire. Submit fails after Close.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	prev := s.supersede()
	s.state = Idle{}
	var task *poller.Task
	if prev != nil {
		task = prev.task
	}
	s.mu.Unlock()

	s.emitReset(prev)
	s.exts.EmitShutdown(ctx)
	s.stop()

	if task != nil {
		return task.Wait(ctx)
	}
	return nil
}

// Wait blocks until the current job reaches a terminal state, the session
// moves on to another job, or ctx is done.
func (s *Session) Wait(ctx context.Context) (*job.Result, error) {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return nil, jobwatch.ErrNotSubmitted
	}

	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the current error, or nil. It is cleared by the next valid
// Submit and by Reset.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Handle returns the handle of the observed job, if one was assigned.
func (s *Session) Handle() job.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.handle
}

// Log returns the rendered progress log.
func (s *Session) Log() []string { return s.log.Lines() }

// StepLines returns only the step block of the progress log.
func (s *Session) StepLines() []string { return s.log.StepLines() }

// Steps returns the current steps in index order.
func (s *Session) Steps() []job.Step { return s.log.Steps() }

// ──────────────────────────────────────────────────
// Polling
// ──────────────────────────────────────────────────

func (s *Session) pollFunc(r *run) poller.Func {
	return func(ctx context.Context) (bool, error) {
		callCtx, cancel := s.callCtx(ctx)
		snap, err := s.svc.Status(callCtx, r.handle)
		cancel()
		if ctx.Err() != nil {
			return true, nil
		}
		if err == nil && snap == nil {
			err = errEmptySnapshot
		}
		if err != nil {
			return s.pollFailed(r, err)
		}
		return s.applySnapshot(ctx, r, snap), nil
	}
}

func (s *Session) pollFailed(r *run, err error) (bool, error) {
	s.mu.Lock()
	if s.cur != r || r.finished {
		s.mu.Unlock()
		return true, nil
	}
	r.failures++
	n := r.failures
	if limit := s.cfg.MaxPollFailures; limit > 0 && n >= limit {
		ferr := jobwatch.NewError(jobwatch.ErrPollFailuresExceeded,
			fmt.Sprintf("gave up after %d failed status requests: %v", n, err), err)
		emit := s.failLocked(r, ferr)
		s.mu.Unlock()
		emit()
		return true, nil
	}
	h := r.handle
	s.mu.Unlock()

	s.exts.EmitPollFailed(s.ctx, h, n, err)
	return false, err
}

// applySnapshot folds snap into the session and reports whether polling
// should stop. A snapshot without steps leaves the step block as it was.
func (s *Session) applySnapshot(ctx context.Context, r *run, snap *job.Snapshot) bool {
	s.mu.Lock()
	if s.cur != r || r.finished {
		s.mu.Unlock()
		return true
	}
	r.failures = 0
	r.seq++
	before := s.log.Steps()
	if snap.Steps != nil {
		s.log.Reconcile(r.seq, snap.Steps)
	}
	after := s.log.Steps()
	if aw, ok := s.state.(Awaiting); ok {
		aw.Lifecycle = snap.Lifecycle
		s.state = aw
	}

	var emit func()
	if snap.Lifecycle == job.LifecycleError {
		msg := snap.Error
		if msg == "" {
			msg = msgJobFailed
		}
		emit = s.failLocked(r, jobwatch.NewError(jobwatch.ErrJobFailed, msg, nil))
	}
	s.mu.Unlock()

	s.logger.Debug("status applied",
		slog.String("job_id", r.handle.String()),
		slog.String("lifecycle", snap.Lifecycle.String()),
		slog.Int("steps", len(after)),
		slog.Uint64("seq", r.seq),
	)
	if !slices.Equal(before, after) {
		s.exts.EmitStepsReconciled(s.ctx, r.handle, snap.Lifecycle, after)
	}
	if emit != nil {
		emit()
		return true
	}
	if snap.Lifecycle != job.LifecycleDone {
		return false
	}

	s.fetchResult(ctx, r)
	return true
}

// fetchResult performs the single result call for a done job.
func (s *Session) fetchResult(ctx context.Context, r *run) {
	callCtx, cancel := s.callCtx(ctx)
	res, err := s.svc.Result(callCtx, r.handle)
	cancel()

	s.mu.Lock()
	if s.cur != r || r.finished {
		s.mu.Unlock()
		return
	}
	var emit func()
	switch {
	case err != nil:
		emit = s.failLocked(r, jobwatch.NewError(jobwatch.ErrResult, err.Error(), err))
	case !res.OK():
		msg := msgResultFailed
		if res != nil && res.Detail != "" {
			msg = res.Detail
		}
		emit = s.failLocked(r, jobwatch.NewError(jobwatch.ErrResult, msg, nil))
	default:
		emit = s.succeedLocked(r, res)
	}
	s.mu.Unlock()
	emit()
}

// ──────────────────────────────────────────────────
// Transitions (callers hold s.mu)
// ──────────────────────────────────────────────────

// supersede abandons the current run, bumps the generation and clears the
// log and error. It returns the abandoned run if it had not finished.
func (s *Session) supersede() *run {
	prev := s.cur
	s.gen++
	s.cur = nil
	s.err = nil
	s.log.Reset()
	if prev == nil || prev.finished {
		return nil
	}
	prev.stop()
	s.settle(prev, nil, jobwatch.ErrSessionReset)
	return prev
}

func (s *Session) settle(r *run, res *job.Result, err error) {
	if r.finished {
		return
	}
	r.finished = true
	r.result = res
	r.err = err
	close(r.done)
}

func (s *Session) failLocked(r *run, err error) func() {
	r.stop()
	s.state = Failed{Handle: r.handle, Err: err}
	s.err = err
	s.log.Append("failed: " + err.Error())
	s.settle(r, nil, err)

	h := r.handle
	s.logger.Warn("job failed",
		slog.String("job_id", h.String()),
		slog.String("error", err.Error()),
	)
	return func() { s.exts.EmitJobFailed(s.ctx, h, err) }
}

func (s *Session) succeedLocked(r *run, res *job.Result) func() {
	r.stop()
	s.state = Succeeded{Handle: r.handle, Result: res}
	s.err = nil
	s.log.Append("completed")
	s.settle(r, res, nil)

	h := r.handle
	elapsed := s.now().Sub(r.accepted)
	s.logger.Info("job succeeded",
		slog.String("job_id", h.String()),
		slog.Duration("elapsed", elapsed),
	)
	return func() { s.exts.EmitJobSucceeded(s.ctx, h, res, elapsed) }
}

func (s *Session) emitReset(prev *run) {
	if prev == nil {
		return
	}
	s.logger.Info("stopped observing job",
		slog.String("job_id", prev.handle.String()),
		slog.Uint64("generation", prev.gen),
	)
	s.exts.EmitSessionReset(s.ctx, prev.handle)
}

func (s *Session) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
