// Package events provides the in-process event bus the lead pipeline uses to
// decouple qualification from notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	EventName() string
	EventID() string
	OccurredAt() time.Time
}

// BaseEvent carries the id and timestamp shared by all events.
type BaseEvent struct {
	ID        string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) EventID() string { return e.ID }

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a new event with a fresh id and the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.NewString(), Timestamp: time.Now().UTC()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Publisher emits events.
type Publisher interface {
	// Publish runs handlers asynchronously on a context detached from ctx.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in order and joins their errors.
	PublishSync(ctx context.Context, event Event) error
}

// Subscriber registers handlers by event name.
type Subscriber interface {
	Subscribe(eventName string, handler Handler)
}

// Bus publishes and subscribes.
type Bus interface {
	Publisher
	Subscriber
}
