package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension       = (*Broker)(nil)
	_ ext.JobSubmitted    = (*Broker)(nil)
	_ ext.StepsReconciled = (*Broker)(nil)
	_ ext.PollFailed      = (*Broker)(nil)
	_ ext.JobSucceeded    = (*Broker)(nil)
	_ ext.JobFailed       = (*Broker)(nil)
	_ ext.SessionReset    = (*Broker)(nil)
	_ ext.JobStarted      = (*Broker)(nil)
	_ ext.JobFinished     = (*Broker)(nil)
	_ ext.Shutdown        = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// Broker receives lifecycle events as an extension and fans them out to
// subscribers via topic-based pub/sub.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger
	now    func() time.Time

	subscribers sync.Map // subscriberID → *Subscriber

	totalPublished atomic.Int64
	totalDelivered atomic.Int64

	bufferSize int
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) { b.now = now }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	b := &Broker{
		topics:     NewTopicRegistry(),
		logger:     logger,
		now:        time.Now,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a subscriber on the given topics. An existing
// subscriber with the same id is replaced and closed.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	b.RemoveSubscriber(subscriberID)
	sub := NewSubscriber(subscriberID, b.bufferSize)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	sub, ok := b.GetSubscriber(subscriberID)
	if !ok {
		return
	}
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// BrokerStats contains broker counters.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDelivered  int64 `json:"total_delivered"`
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDelivered:  b.totalDelivered.Load(),
	}
}

// Publish broadcasts evt to its resolved topics.
func (b *Broker) Publish(evt *Event) {
	b.totalPublished.Add(1)
	delivered := b.topics.Broadcast(resolveTopics(evt), evt)
	b.totalDelivered.Add(int64(delivered))
}

func (b *Broker) publishJob(t EventType, jobID string, data JobEventData) {
	evt := &Event{
		Type:      t,
		Timestamp: b.now().UTC(),
	}
	if jobID != "" {
		evt.Topic = JobTopic(jobID)
		data.JobID = jobID
	}
	evt.Data = mustMarshal(data)
	b.Publish(evt)
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

// ── Session hooks ───────────────────────────────────

func (b *Broker) OnJobSubmitted(_ context.Context, h job.Handle, req job.Request) error {
	b.publishJob(EventJobSubmitted, h.String(), JobEventData{
		Topic:     req.Topic,
		Lifecycle: job.LifecyclePending,
	})
	return nil
}

func (b *Broker) OnStepsReconciled(_ context.Context, h job.Handle, lifecycle job.Lifecycle, steps []job.Step) error {
	b.publishJob(EventJobProgress, h.String(), JobEventData{
		Lifecycle: lifecycle,
		Steps:     steps,
	})
	return nil
}

func (b *Broker) OnPollFailed(_ context.Context, h job.Handle, failures int, pollErr error) error {
	b.publishJob(EventJobPollFailed, h.String(), JobEventData{
		Failures: failures,
		Error:    pollErr.Error(),
	})
	return nil
}

func (b *Broker) OnJobSucceeded(_ context.Context, h job.Handle, res *job.Result, elapsed time.Duration) error {
	data := JobEventData{
		Lifecycle: job.LifecycleDone,
		ElapsedMs: elapsed.Milliseconds(),
	}
	if res != nil {
		data.Result = res.Result
	}
	b.publishJob(EventJobSucceeded, h.String(), data)
	return nil
}

func (b *Broker) OnJobFailed(_ context.Context, h job.Handle, jobErr error) error {
	b.publishJob(EventJobFailed, h.String(), JobEventData{
		Lifecycle: job.LifecycleError,
		Error:     jobErr.Error(),
	})
	return nil
}

func (b *Broker) OnSessionReset(_ context.Context, h job.Handle) error {
	b.publishJob(EventJobReset, h.String(), JobEventData{})
	return nil
}

// ── Executor hooks ──────────────────────────────────

func (b *Broker) OnJobStarted(_ context.Context, r *job.Record) error {
	b.publishJob(EventJobStarted, r.ID.String(), JobEventData{
		Topic:     r.Request.Topic,
		Lifecycle: r.Lifecycle,
	})
	return nil
}

func (b *Broker) OnJobFinished(_ context.Context, r *job.Record, elapsed time.Duration) error {
	b.publishJob(EventJobFinished, r.ID.String(), JobEventData{
		Lifecycle: r.Lifecycle,
		Steps:     job.SortSteps(r.Steps),
		ElapsedMs: elapsed.Milliseconds(),
		Error:     r.Error,
	})
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		b.topics.UnsubscribeAll(sub.ID())
		sub.Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
