package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

// CreateJob stores the record unless its key already exists.
func (s *Store) CreateJob(ctx context.Context, r *job.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("jobwatch/redis: marshal job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.jobKey(r.ID.String()), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("jobwatch/redis: create job: %w", err)
	}
	if !ok {
		return jobwatch.ErrJobAlreadyExists
	}
	return nil
}

// GetJob retrieves a record by handle.
func (s *Store) GetJob(ctx context.Context, id job.Handle) (*job.Record, error) {
	data, err := s.client.Get(ctx, s.jobKey(id.String())).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, jobwatch.ErrJobNotFound
		}
		return nil, fmt.Errorf("jobwatch/redis: get job: %w", err)
	}
	return decodeRecord(data)
}

// UpdateJob merges u into the stored record under WATCH and rewrites it
// with a fresh TTL. Concurrent writers are retried.
func (s *Store) UpdateJob(ctx context.Context, id job.Handle, u job.Update) (*job.Record, error) {
	key := s.jobKey(id.String())
	var out *job.Record

	txf := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return jobwatch.ErrJobNotFound
			}
			return fmt.Errorf("jobwatch/redis: get job: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return err
		}
		u.Apply(rec)

		next, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("jobwatch/redis: marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = rec
		return nil
	}

	for attempt := 1; attempt <= maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, goredis.TxFailedErr) {
			if errors.Is(err, jobwatch.ErrJobNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("jobwatch/redis: update job: %w", err)
		}
		s.logger.Debug("job update conflict, retrying",
			slog.String("job_id", id.String()),
			slog.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("jobwatch/redis: update job %s: too many conflicts", id)
}

func decodeRecord(data []byte) (*job.Record, error) {
	var rec job.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("jobwatch/redis: decode job: %w", err)
	}
	if rec.Steps == nil {
		rec.Steps = make(map[int]string)
	}
	return &rec, nil
}
