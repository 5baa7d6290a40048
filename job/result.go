package job

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StatusAccepted and StatusOK are the service's success markers for
// submission and result retrieval.
const (
	StatusAccepted = "accepted"
	StatusOK       = "ok"
)

// Submission is the service's answer to a submit call.
type Submission struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Accepted reports whether the job was accepted and a handle assigned.
func (s *Submission) Accepted() bool {
	return s != nil && s.Status == StatusAccepted && s.JobID != ""
}

// Handle returns the assigned job handle.
func (s *Submission) Handle() Handle {
	if s == nil {
		return ""
	}
	return Handle(s.JobID)
}

// Result is the service's answer to a result call.
type Result struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Detail string          `json:"detail,omitempty"`
}

// OK reports whether the result carries the job's final output.
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusOK
}

// Decode unmarshals the job's output into v.
func (r *Result) Decode(v any) error {
	if !r.OK() {
		return errors.New("job: result is not ok")
	}
	if len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("job: decode result: %w", err)
	}
	return nil
}
