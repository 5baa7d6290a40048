package stream

import (
	"fmt"
	"strings"
	"sync"
)

// Topic names follow a pattern:
//
//	job:<jobID>  events for a specific job
//	jobs         session events for every job
//	executor     executor events for every job
//	firehose     everything

const (
	TopicJobs     = "jobs"
	TopicExecutor = "executor"
	TopicFirehose = "firehose"
)

// JobTopic returns the topic name for a specific job.
func JobTopic(jobID string) string { return "job:" + jobID }

// TopicRegistry manages subscriber sets per topic. It is safe for
// concurrent use.
type TopicRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber // topic → subscriberID → subscriber
}

// NewTopicRegistry creates an empty topic registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{topics: make(map[string]map[string]*Subscriber)}
}

// Subscribe adds a subscriber to a topic, creating the topic if needed.
func (tr *TopicRegistry) Subscribe(topic string, sub *Subscriber) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		subs = make(map[string]*Subscriber)
		tr.topics[topic] = subs
	}
	subs[sub.ID()] = sub
	sub.addTopic(topic)
}

// Unsubscribe removes a subscriber from a topic. Empty topics are dropped.
func (tr *TopicRegistry) Unsubscribe(topic, subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		return
	}
	if sub, exists := subs[subscriberID]; exists {
		sub.removeTopic(topic)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(tr.topics, topic)
	}
}

// UnsubscribeAll removes a subscriber from all topics.
func (tr *TopicRegistry) UnsubscribeAll(subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for topic, subs := range tr.topics {
		if sub, ok := subs[subscriberID]; ok {
			sub.removeTopic(topic)
			delete(subs, subscriberID)
		}
		if len(subs) == 0 {
			delete(tr.topics, topic)
		}
	}
}

// Broadcast sends an event to every subscriber on any of topics, once per
// subscriber. It returns the number of deliveries.
func (tr *TopicRegistry) Broadcast(topics []string, evt *Event) int {
	tr.mu.RLock()
	seen := make(map[string]*Subscriber)
	for _, topic := range topics {
		for id, sub := range tr.topics[topic] {
			seen[id] = sub
		}
	}
	tr.mu.RUnlock()

	delivered := 0
	for _, sub := range seen {
		if sub.send(evt) {
			delivered++
		}
	}
	return delivered
}

// TopicCount returns the number of active topics.
func (tr *TopicRegistry) TopicCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics)
}

// SubscriberCount returns the number of subscribers on a topic.
func (tr *TopicRegistry) SubscriberCount(topic string) int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics[topic])
}

// resolveTopics returns all topics an event is published to.
func resolveTopics(evt *Event) []string {
	topics := []string{TopicFirehose}
	if strings.HasPrefix(string(evt.Type), "executor.") {
		topics = append(topics, TopicExecutor)
	} else {
		topics = append(topics, TopicJobs)
	}
	if evt.Topic != "" {
		topics = append(topics, evt.Topic)
	}
	return topics
}

// ValidateTopic checks whether a topic string is valid.
func ValidateTopic(topic string) error {
	switch topic {
	case TopicJobs, TopicExecutor, TopicFirehose:
		return nil
	}
	kind, id, ok := strings.Cut(topic, ":")
	if !ok || id == "" {
		return fmt.Errorf("jobwatch/stream: invalid topic %q", topic)
	}
	if kind != "job" {
		return fmt.Errorf("jobwatch/stream: unknown topic kind %q", kind)
	}
	return nil
}
