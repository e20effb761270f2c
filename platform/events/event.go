// Package events defines the in-process event bus the scheduling modules
// publish their domain events on. Events are emitted after persistence
// succeeds; handlers must never be able to fail a booking or a sweep.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event (visit booked, stage changed,
// slots generated, personnel assigned).
type Event interface {
	// EventName returns the stable name handlers subscribe under.
	EventName() string
	// OccurredAt returns when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events; domain events embed
// it and add their own payload.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of one event name.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes published events to the handlers subscribed to their name.
type Bus interface {
	// Publish delivers the event to its handlers asynchronously; delivery
	// failures are logged by the bus, never returned to the publisher.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event and waits for every handler.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name, matching
	// Event.EventName().
	Subscribe(eventName string, handler Handler)
}
