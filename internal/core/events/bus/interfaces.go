package bus

import (
	"time"

	"github.com/zeusync/jo/internal/core/scripting/state"
)

// EventBus is an in-process pub/sub bus for entity lifecycle events.
//
// Delivery is synchronous in the publisher's goroutine and follows subscription
// order. Handler errors are joined and returned from Publish. All methods are
// safe for concurrent use; handlers must not subscribe or unsubscribe from
// inside a delivery to the same event type they are handling.
type EventBus interface {
	Publish(event Event) error
	// PublishAsync publishes from a new goroutine. The channel receives the
	// joined handler error (or nil) and is then closed.
	PublishAsync(event Event) <-chan error
	PublishBatch(events ...Event) error

	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler) (Subscription, error)
	Unsubscribe(Subscription) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	Metrics() Metrics
}

// Event types published by the runner.
const (
	EntityRegistered   = "entity.registered"
	EntityUpdated      = "entity.updated"
	EntityUnregistered = "entity.unregistered"
	EngineStopped      = "engine.stopped"
)

// Event is an immutable message. Data is usually an EntityUpdate.
type Event struct {
	Type      string
	Source    string
	Timestamp time.Time
	Data      any
}

// NewEvent stamps an event with the current time.
func NewEvent(typ, source string, data any) Event {
	return Event{Type: typ, Source: source, Timestamp: time.Now(), Data: data}
}

// EntityUpdate is the payload of entity events.
type EntityUpdate struct {
	ID     string         `json:"id"`
	Script string         `json:"script,omitempty"`
	Tick   int64          `json:"tick"`
	State  state.Snapshot `json:"state,omitempty"`
}

type (
	EventHandler func(event Event) error
)

// Subscription is a registered handler. Cancel is idempotent.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

// Observer is told about every publish and its outcome. Observers must be quick.
type Observer interface {
	OnPublish(event Event)
	OnDelivered(event Event, handlers int, err error, took time.Duration)
}

// Metrics are only collected while at least one observer is registered.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
