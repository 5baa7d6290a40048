// Package stream fans jobwatch lifecycle events out to in-process
// subscribers. The Broker is an ext.Extension: register it with a session or
// an executor and subscribe to the topics you care about.
package stream

import (
	"encoding/json"
	"time"

	"github.com/xraph/jobwatch/job"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Session events.
	EventJobSubmitted  EventType = "job.submitted"
	EventJobProgress   EventType = "job.progress"
	EventJobPollFailed EventType = "job.poll_failed"
	EventJobSucceeded  EventType = "job.succeeded"
	EventJobFailed     EventType = "job.failed"
	EventJobReset      EventType = "job.reset"

	// Executor events.
	EventJobStarted  EventType = "executor.job_started"
	EventJobFinished EventType = "executor.job_finished"
)

// Event is the envelope sent to subscribers.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"ts"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// JobEventData is the payload of every job event. Fields irrelevant to an
// event type are omitted.
type JobEventData struct {
	JobID     string          `json:"job_id,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Lifecycle job.Lifecycle   `json:"lifecycle,omitempty"`
	Steps     []job.Step      `json:"steps,omitempty"`
	Failures  int             `json:"failures,omitempty"`
	ElapsedMs int64           `json:"elapsed_ms,omitempty"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}
