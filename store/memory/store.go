// Package memory is an in-process job.Store for the reference executor.
//
// Records expire a fixed TTL after their last write, like the Redis store.
// Expired records are invisible to GetJob immediately and are physically
// removed by a sweeper scheduled with a cron expression.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

var _ job.Store = (*Store)(nil)

// Defaults.
const (
	DefaultTTL   = time.Hour
	DefaultSweep = "@every 1m"
)

// sweepParser accepts standard 5-field expressions and descriptors such as
// "@every 30s".
var sweepParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

type entry struct {
	rec     *job.Record
	expires time.Time // zero: never
}

// Store is a concurrency-safe in-memory job store.
type Store struct {
	mu     sync.RWMutex
	jobs   map[job.Handle]*entry
	closed bool

	ttl    time.Duration
	sweep  string
	now    func() time.Time
	logger *slog.Logger

	cronMu sync.Mutex
	cron   *cronlib.Cron
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long a record lives after its last write. Zero keeps
// records forever.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithSweepSchedule sets the cron expression of the expiry sweeper.
func WithSweepSchedule(spec string) Option {
	return func(s *Store) { s.sweep = spec }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns an empty Store. Call Start to run the sweeper.
func New(opts ...Option) *Store {
	s := &Store{
		jobs:   make(map[job.Handle]*entry),
		ttl:    DefaultTTL,
		sweep:  DefaultSweep,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start schedules the expiry sweeper. Calling Start twice is a no-op.
func (s *Store) Start(_ context.Context) error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return nil
	}

	sched, err := sweepParser.Parse(s.sweep)
	if err != nil {
		return fmt.Errorf("memory: parse sweep schedule %q: %w", s.sweep, err)
	}
	c := cronlib.New(cronlib.WithParser(sweepParser))
	c.Schedule(sched, cronlib.FuncJob(func() {
		if n := s.Sweep(); n > 0 {
			s.logger.Debug("expired jobs swept", slog.Int("count", n))
		}
	}))
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the sweeper and waits for a running sweep or ctx.
func (s *Store) Stop(ctx context.Context) error {
	s.cronMu.Lock()
	c := s.cron
	s.cron = nil
	s.cronMu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping fails once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return jobwatch.ErrStoreClosed
	}
	return nil
}

// Close stops the sweeper and rejects further calls.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Stop(ctx)
}

// ──────────────────────────────────────────────────
// job.Store
// ──────────────────────────────────────────────────

// CreateJob stores a copy of r.
func (s *Store) CreateJob(_ context.Context, r *job.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return jobwatch.ErrStoreClosed
	}

	now := s.now()
	if e, ok := s.jobs[r.ID]; ok && !s.expired(e, now) {
		return jobwatch.ErrJobAlreadyExists
	}
	s.jobs[r.ID] = &entry{rec: r.Clone(), expires: s.expiry(now)}
	return nil
}

// GetJob returns a copy of the record.
func (s *Store) GetJob(_ context.Context, id job.Handle) (*job.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, jobwatch.ErrStoreClosed
	}

	e, ok := s.jobs[id]
	if !ok || s.expired(e, s.now()) {
		return nil, jobwatch.ErrJobNotFound
	}
	return e.rec.Clone(), nil
}

// UpdateJob merges u into the record and refreshes its expiry.
func (s *Store) UpdateJob(_ context.Context, id job.Handle, u job.Update) (*job.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, jobwatch.ErrStoreClosed
	}

	now := s.now()
	e, ok := s.jobs[id]
	if !ok || s.expired(e, now) {
		return nil, jobwatch.ErrJobNotFound
	}
	u.Apply(e.rec)
	e.expires = s.expiry(now)
	return e.rec.Clone(), nil
}

// Sweep deletes expired records and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.jobs {
		if s.expired(e, now) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored records, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) expiry(now time.Time) time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(s.ttl)
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
