package session

import (
	"time"

	"github.com/xraph/jobwatch/job"
)

// State is the observable state of a Session. It is one of Idle,
// Submitting, Awaiting, Succeeded or Failed.
type State interface {
	// Name returns a short lowercase label for logs.
	Name() string
	// Terminal reports whether the session stopped observing its job.
	Terminal() bool

	isState()
}

// Idle means no job is being observed.
type Idle struct{}

// Submitting means a request is in flight to the submission service.
type Submitting struct {
	Request job.Request
}

// Awaiting means the job was accepted and is being polled.
type Awaiting struct {
	Handle    job.Handle
	Since     time.Time
	Lifecycle job.Lifecycle
}

// Succeeded means the job finished and its result was fetched.
type Succeeded struct {
	Handle job.Handle
	Result *job.Result
}

// Failed means the submission, the job, or the result retrieval failed.
// Handle is empty when the submission itself failed.
type Failed struct {
	Handle job.Handle
	Err    error
}

func (Idle) Name() string       { return "idle" }
func (Submitting) Name() string { return "submitting" }
func (Awaiting) Name() string   { return "awaiting" }
func (Succeeded) Name() string  { return "succeeded" }
func (Failed) Name() string     { return "failed" }

func (Idle) Terminal() bool       { return false }
func (Submitting) Terminal() bool { return false }
func (Awaiting) Terminal() bool   { return false }
func (Succeeded) Terminal() bool  { return true }
func (Failed) Terminal() bool     { return true }

func (Idle) isState()       {}
func (Submitting) isState() {}
func (Awaiting) isState()   {}
func (Succeeded) isState()  {}
func (Failed) isState()     {}

// HandleOf returns the job handle carried by st, if any.
func HandleOf(st State) job.Handle {
	switch v := st.(type) {
	case Awaiting:
		return v.Handle
	case Succeeded:
		return v.Handle
	case Failed:
		return v.Handle
	}
	return ""
}
