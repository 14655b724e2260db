// Package progress provides best-effort pub/sub fan-out of report
// generation events to live subscribers.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds published on the channel.
const (
	EventProgressUpdate     = "progress_update"
	EventStatusUpdate       = "status_update"
	EventReportCompleted    = "report_completed"
	EventReportFailed       = "report_failed"
	EventReportCreated      = "report_created"
	EventReportStatusChange = "report_status_changed"
)

// TopicList is the global topic carrying list-level events.
const TopicList = "report_list"

// Topic returns the per-report topic name.
func Topic(reportID uuid.UUID) string {
	return "report_" + reportID.String()
}

// Event is one progress notification. Fields are populated depending on Type.
type Event struct {
	Type      string    `json:"type"`
	ReportID  string    `json:"report_id"`
	Stage     string    `json:"stage,omitempty"`
	State     string    `json:"state,omitempty"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subscriberBuffer is the per-subscriber channel capacity. Publishing never
// blocks; when a subscriber's buffer is full the oldest event is dropped.
const subscriberBuffer = 32

// Subscription is one live listener on a topic.
type Subscription struct {
	topic string
	ch    chan Event
}

// Events returns the stream of events for this subscription.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Hub fans events out to current subscribers per topic. There is no
// persistence or replay; a subscriber joining after an event is published
// does not receive it.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a new listener on the topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the listener and closes its event stream.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.topic]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.topic)
	}
	close(sub.ch)
}

// Publish delivers the event to all current subscribers of the topic.
// It never blocks: a slow subscriber loses its oldest buffered event.
func (h *Hub) Publish(topic string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[topic] {
		select {
		case sub.ch <- ev:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}

// Publisher is the narrow interface the orchestrator needs.
type Publisher interface {
	Publish(topic string, ev Event)
}
