// Package redis implements job.Store on Redis for executors that run as
// several processes. Each record is a JSON string under its own key and
// expires a fixed TTL after its last write.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client, redis.WithTTL(time.Hour))
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/jobwatch/job"
)

var _ job.Store = (*Store)(nil)

// DefaultTTL is how long a record lives after its last write.
const DefaultTTL = time.Hour

// maxUpdateRetries bounds optimistic retries when a record changes between
// read and write.
const maxUpdateRetries = 10

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithTTL sets the record TTL. Zero keeps records until deleted.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithKeyPrefix replaces the "jobwatch:" key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// Store is a Redis-backed job.Store.
type Store struct {
	client goredis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// New creates a Redis-backed store. The caller owns the client lifecycle.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		ttl:    DefaultTTL,
		prefix: defaultPrefix,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.UniversalClient { return s.client }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the caller owns the Redis client.
func (s *Store) Close(_ context.Context) error { return nil }
