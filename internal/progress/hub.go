// Package progress fans fetch progress out to any number of observers.
// Publishing never blocks: a subscriber that falls behind loses updates.
package progress

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
)

// Event types
const (
	EventProgress   = "progress"
	EventCycleStart = "cycle_started"
	EventCycleEnd   = "cycle_finished"
)

// Message is one event delivered to subscribers
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber receives messages on C until it is unsubscribed
type Subscriber struct {
	ID string
	C  chan Message
}

// Hub distributes progress messages
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	latest      map[string]fetch.Progress
	bufferSize  int
	logger      *logger.Logger
}

// NewHub creates a hub; each subscriber gets a buffer of bufferSize messages
func NewHub(bufferSize int, log *logger.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		latest:      make(map[string]fetch.Progress),
		bufferSize:  bufferSize,
		logger:      log,
	}
}

// Subscribe registers a new subscriber
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ID: uuid.New().String(), C: make(chan Message, h.bufferSize)}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	h.logger.WithFields(map[string]interface{}{
		"subscriber_id": sub.ID,
	}).Debug("Progress subscriber connected")
	return sub
}

// Unsubscribe removes the subscriber and closes its channel
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub.ID]; ok {
		delete(h.subscribers, sub.ID)
		close(sub.C)
		h.logger.WithFields(map[string]interface{}{
			"subscriber_id": sub.ID,
		}).Debug("Progress subscriber disconnected")
	}
}

// Publish sends a message to every subscriber without blocking
func (h *Hub) Publish(msgType string, data interface{}) {
	msg := Message{Type: msgType, Data: data, Timestamp: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		select {
		case sub.C <- msg:
		default:
			// subscriber is full, drop
		}
	}
}

// Report records p as the latest progress for its label and publishes it.
// It has the fetch.ProgressFunc signature.
func (h *Hub) Report(p fetch.Progress) {
	h.mu.Lock()
	h.latest[p.Label] = p
	h.mu.Unlock()
	h.Publish(EventProgress, p)
}

// Func returns Report as a fetch.ProgressFunc
func (h *Hub) Func() fetch.ProgressFunc {
	return h.Report
}

// Latest returns the last reported progress per label, ordered by label
func (h *Hub) Latest() []fetch.Progress {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]fetch.Progress, 0, len(h.latest))
	for _, p := range h.latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Reset forgets the latest progress, typically at the start of a cycle
func (h *Hub) Reset() {
	h.mu.Lock()
	h.latest = make(map[string]fetch.Progress)
	h.mu.Unlock()
}

// Subscribers returns the number of connected subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
