package worker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// NewJobID returns a fresh handle: a random UUID in 32 hex digits.
func NewJobID() job.Handle {
	return job.Handle(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Pool accepts jobs into a bounded queue and runs them on a fixed number of
// worker goroutines.
type Pool struct {
	store       job.Store
	executor    *Executor
	extensions  *ext.Registry
	pending     []ext.Extension
	concurrency int
	queueSize   int
	logger      *slog.Logger
	now         func() time.Time

	queue chan job.Handle

	// ctx is the parent of every job context; cancelled when Stop times out.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	group   *errgroup.Group
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithQueueSize sets how many accepted jobs may wait for a worker.
func WithQueueSize(n int) PoolOption {
	return func(p *Pool) { p.queueSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = l }
}

// WithExtension registers an extension notified when jobs start and finish.
func WithExtension(e ext.Extension) PoolOption {
	return func(p *Pool) { p.pending = append(p.pending, e) }
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) { p.now = now }
}

// NewPool creates a worker pool running handler over jobs stored in store.
func NewPool(store job.Store, handler Handler, opts ...PoolOption) *Pool {
	p := &Pool{
		store:       store,
		concurrency: 4,
		queueSize:   256,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.concurrency = max(p.concurrency, 1)
	p.queue = make(chan job.Handle, max(p.queueSize, 1))
	p.extensions = ext.NewRegistry(p.logger)
	for _, e := range p.pending {
		p.extensions.Register(e)
	}
	p.executor = NewExecutor(store, handler, p.extensions, p.logger)
	p.executor.now = p.now
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

// Enqueue stores a pending record for req and queues it. The handle is
// returned as soon as the record exists; the job runs in the background.
func (p *Pool) Enqueue(ctx context.Context, req job.Request) (job.Handle, error) {
	id := NewJobID()
	if err := p.store.CreateJob(ctx, job.NewRecord(id, req, p.now())); err != nil {
		return "", err
	}

	select {
	case p.queue <- id:
		p.logger.Debug("job queued", slog.String("job_id", id.String()))
		return id, nil
	default:
	}

	failed := job.LifecycleError
	msg := jobwatch.ErrQueueFull.Error()
	if _, err := p.store.UpdateJob(ctx, id, job.Update{Lifecycle: &failed, Error: &msg}); err != nil {
		p.logger.Error("failed to record rejected job",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
	return "", jobwatch.ErrQueueFull
}

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.group = &errgroup.Group{}

	p.logger.Info("worker pool starting", slog.Int("concurrency", p.concurrency))

	for range p.concurrency {
		p.group.Go(func() error {
			p.loop(p.stopCh)
			return nil
		})
	}
	return nil
}

// Stop stops taking jobs from the queue and waits for running jobs. When
// ctx expires first, running jobs are cancelled and Stop still waits for
// their terminal state to be recorded.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	g := p.group
	p.mu.Unlock()

	p.logger.Info("worker pool stopping")

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active jobs")
		p.cancel()
		<-done
	}
	p.extensions.EmitShutdown(ctx)
	return nil
}

// Pending returns the number of queued jobs not yet picked up.
func (p *Pool) Pending() int { return len(p.queue) }

func (p *Pool) loop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case id := <-p.queue:
			if err := p.executor.Execute(p.ctx, id); err != nil {
				p.logger.Error("job execution failed",
					slog.String("job_id", id.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
