package monitor

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/pacewatch/internal/store"
)

// EventType represents the type of monitor event.
type EventType string

const (
	EventCycleStart     EventType = "cycle_start"
	EventSampleRecorded EventType = "sample_recorded"
	EventFetchFailed    EventType = "fetch_failed"
	EventReport         EventType = "report"
	EventCompleted      EventType = "completed"
	EventCancelled      EventType = "cancelled"
)

// Event represents a monitor event with the data relevant to its type.
type Event struct {
	Type      EventType
	Timestamp time.Time
	RunID     string
	Sample    *store.Sample // EventSampleRecorded
	Report    *Report       // EventReport
	Summary   *Summary      // EventCompleted
	Err       error         // EventFetchFailed
	Kind      string        // EventFetchFailed: transport, status, extract, value
	Latency   time.Duration // EventSampleRecorded, EventFetchFailed: time spent reading the source
}

// EventHandler is a function that handles events.
type EventHandler func(Event)

// EventBus fans monitor events out to observers such as metrics.
// Handlers run synchronously on the monitor goroutine.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type.
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types.
func (eb *EventBus) SubscribeAll(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allHandlers = append(eb.allHandlers, handler)
}

// Publish sends an event to all registered handlers.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	specific := eb.handlers[event.Type]
	all := eb.allHandlers
	eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, handler := range specific {
		handler(event)
	}
	for _, handler := range all {
		handler(event)
	}
}
