package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated     = "booking_created"
	EventBookingConfirmed   = "booking_confirmed"
	EventBookingDeclined    = "booking_declined"
	EventBookingCancelled   = "booking_cancelled"
	EventBookingCompleted   = "booking_completed"
	EventBookingRescheduled = "booking_rescheduled"
)

// BookingEventPayload is the booking snapshot handed to subscribers; it is
// the contract a calendar view uses to merge changes by booking id.
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	BusinessID  int64     `json:"business_id"`
	ServiceID   int64     `json:"service_id"`
	ServiceName string    `json:"service_name"`
	Date        string    `json:"date"`
	StartMin    int       `json:"start_min"`
	DurationMin int       `json:"duration_min"`
	Status      string    `json:"status"`
	ClientName  string    `json:"client_name"`
	ChangedBy   string    `json:"changed_by,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for booking changes. A subscriber that
// reconnects simply re-reads the day's bookings; every payload is a full
// snapshot, so replay order never corrupts state.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
