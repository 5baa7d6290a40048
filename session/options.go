package session

import (
	"log/slog"
	"time"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/backoff"
	"github.com/xraph/jobwatch/ext"
)

// Option configures a Session.
type Option func(*Session)

// WithConfig replaces the session configuration.
func WithConfig(cfg jobwatch.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithPollInterval sets the status polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) { s.cfg.PollInterval = d }
}

// WithMaxPollFailures fails the job after n consecutive failed status
// requests. Zero, the default, retries forever.
func WithMaxPollFailures(n int) Option {
	return func(s *Session) { s.cfg.MaxPollFailures = n }
}

// WithPollBackoff stretches the polling delay after failed status requests.
func WithPollBackoff(b backoff.Strategy) Option {
	return func(s *Session) { s.backoff = b }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithExtension registers an extension notified of session events.
func WithExtension(e ext.Extension) Option {
	return func(s *Session) { s.pending = append(s.pending, e) }
}

// WithClock sets the time source for log timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}
