package job

import "strings"

// Handle is the opaque identifier the executor assigns to an accepted job.
type Handle string

func (h Handle) String() string { return string(h) }

// IsZero reports whether no handle has been assigned.
func (h Handle) IsZero() bool { return h == "" }

// Lifecycle is the executor-reported phase of a job.
type Lifecycle string

const (
	// LifecyclePending means the job was accepted but has not started.
	LifecyclePending Lifecycle = "pending"
	// LifecycleRunning means the executor is working on the job.
	LifecycleRunning Lifecycle = "running"
	// LifecycleDone means the job finished and a result can be fetched.
	LifecycleDone Lifecycle = "done"
	// LifecycleError means the job failed on the executor.
	LifecycleError Lifecycle = "error"

	// lifecycleQueued is the executor's wire name for a job not yet started.
	lifecycleQueued Lifecycle = "queued"
)

// ParseLifecycle normalizes a wire lifecycle value. Unknown values are
// returned unchanged and are treated as non-terminal.
func ParseLifecycle(s string) Lifecycle {
	l := Lifecycle(strings.ToLower(strings.TrimSpace(s)))
	if l == lifecycleQueued || l == "" {
		return LifecyclePending
	}
	return l
}

// IsTerminal reports whether no further snapshots are expected.
func (l Lifecycle) IsTerminal() bool {
	return l == LifecycleDone || l == LifecycleError
}

func (l Lifecycle) String() string { return string(l) }

// Wire returns the executor's name for l; pending is reported as "queued".
func (l Lifecycle) Wire() string {
	if l == LifecyclePending {
		return string(lifecycleQueued)
	}
	return string(l)
}

// Step is one progress entry reported by the executor.
type Step struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}
