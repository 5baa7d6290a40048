package job

import (
	"context"
	"encoding/json"
	"time"
)

// Record is an executor's view of a job it runs.
type Record struct {
	ID         Handle          `json:"id"`
	Request    Request         `json:"request"`
	Lifecycle  Lifecycle       `json:"status"`
	Steps      map[int]string  `json:"steps"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// NewRecord returns a pending record for an accepted request.
func NewRecord(id Handle, req Request, now time.Time) *Record {
	return &Record{
		ID:        id,
		Request:   req,
		Lifecycle: LifecyclePending,
		Steps:     make(map[int]string),
		CreatedAt: now.UTC(),
	}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Request.LLMModel = cloneString(r.Request.LLMModel)
	cp.Steps = make(map[int]string, len(r.Steps))
	for k, v := range r.Steps {
		cp.Steps[k] = v
	}
	if r.Result != nil {
		cp.Result = append(json.RawMessage(nil), r.Result...)
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Snapshot renders the record as a status response.
func (r *Record) Snapshot() Snapshot {
	steps := make(map[int]string, len(r.Steps))
	for k, v := range r.Steps {
		steps[k] = v
	}
	return Snapshot{
		Lifecycle:  r.Lifecycle,
		Steps:      steps,
		Error:      r.Error,
		StartedAt:  unixSeconds(r.StartedAt),
		FinishedAt: unixSeconds(r.FinishedAt),
		HasResult:  len(r.Result) > 0,
	}
}

func unixSeconds(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	s := float64(t.UnixNano()) / float64(time.Second)
	return &s
}

// Update is a partial change to a Record. Steps are merged by index; nil
// fields are left untouched.
type Update struct {
	Lifecycle  *Lifecycle
	Steps      map[int]string
	Error      *string
	Result     json.RawMessage
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Apply merges u into r.
func (u Update) Apply(r *Record) {
	if u.Lifecycle != nil {
		r.Lifecycle = *u.Lifecycle
	}
	if len(u.Steps) > 0 {
		if r.Steps == nil {
			r.Steps = make(map[int]string, len(u.Steps))
		}
		for k, v := range u.Steps {
			r.Steps[k] = v
		}
	}
	if u.Error != nil {
		r.Error = *u.Error
	}
	if u.Result != nil {
		r.Result = u.Result
	}
	if u.StartedAt != nil {
		r.StartedAt = u.StartedAt
	}
	if u.FinishedAt != nil {
		r.FinishedAt = u.FinishedAt
	}
}

// Store defines the persistence contract for an executor's job records.
type Store interface {
	// CreateJob persists a new record. Returns jobwatch.ErrJobAlreadyExists
	// when the handle is taken.
	CreateJob(ctx context.Context, r *Record) error

	// GetJob retrieves a record by handle. Returns jobwatch.ErrJobNotFound
	// when the handle is unknown or expired.
	GetJob(ctx context.Context, id Handle) (*Record, error)

	// UpdateJob merges u into the stored record and returns the result.
	UpdateJob(ctx context.Context, id Handle, u Update) (*Record, error)
}
