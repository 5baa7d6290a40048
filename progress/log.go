// Package progress keeps the human-readable progress log of a single job.
//
// The log holds two kinds of lines: lifecycle lines appended by the session
// ("accepted: job_id=...", "completed") and the step block rebuilt from each
// status snapshot. The step block renders one "Step <k>: <desc>" line per
// step in ascending numeric order of k. Each reconciliation moves the block
// to the end of the log, so lifecycle lines appended afterwards follow it.
//
// Snapshots are full state, so [Log.Reconcile] replaces the step block
// wholesale rather than merging into it. Each reconciliation carries a
// sequence number and older sequences are discarded.
package progress

import (
	"strconv"
	"sync"
	"time"

	"github.com/xraph/jobwatch/job"
)

// TimeFormat is the layout of the timestamp prefixed to lifecycle lines.
const TimeFormat = "15:04:05"

// Log is a reconciled progress log. It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	events  []string
	steps   []job.Step
	anchor  int // len(events) at the last reconciliation
	lastSeq uint64
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the time source used to stamp lifecycle lines.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New returns an empty Log.
func New(opts ...Option) *Log {
	l := &Log{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds a timestamped lifecycle line.
func (l *Log) Append(text string) {
	line := "[" + l.now().Format(TimeFormat) + "] " + text
	l.mu.Lock()
	l.events = append(l.events, line)
	l.mu.Unlock()
}

// Reconcile replaces the step block with steps, ordered by index. It returns
// false and leaves the log untouched when seq is not newer than the last
// applied sequence.
func (l *Log) Reconcile(seq uint64, steps map[int]string) bool {
	sorted := job.SortSteps(steps)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq <= l.lastSeq {
		return false
	}
	l.lastSeq = seq
	l.steps = sorted
	l.anchor = len(l.events)
	return true
}

// Reset clears every line and the applied sequence.
func (l *Log) Reset() {
	l.mu.Lock()
	l.events = nil
	l.steps = nil
	l.anchor = 0
	l.lastSeq = 0
	l.mu.Unlock()
}

// Lines returns a copy of the rendered log.
func (l *Log) Lines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.events)+len(l.steps))
	out = append(out, l.events[:l.anchor]...)
	for _, s := range l.steps {
		out = append(out, StepLine(s))
	}
	out = append(out, l.events[l.anchor:]...)
	return out
}

// StepLines returns only the rendered step block.
func (l *Log) StepLines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.steps))
	for i, s := range l.steps {
		out[i] = StepLine(s)
	}
	return out
}

// Steps returns a copy of the current step block.
func (l *Log) Steps() []job.Step {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]job.Step, len(l.steps))
	copy(out, l.steps)
	return out
}

// LastSeq returns the sequence of the last applied reconciliation.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastSeq
}

// StepLine renders a single step.
func StepLine(s job.Step) string {
	return "Step " + strconv.Itoa(s.Index) + ": " + s.Description
}
