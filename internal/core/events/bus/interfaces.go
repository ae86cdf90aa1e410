package bus

import "time"

// EventBus is an in-process pub/sub bus.
//
// Delivery is synchronous: Publish calls every matching handler on the
// caller's goroutine, in subscription order, after releasing the bus lock, so
// handlers may publish or subscribe themselves. Handler errors are joined and
// returned from Publish.
type EventBus interface {
	// Publish delivers event to subscribers of event.Type() and to wildcard
	// subscribers.
	Publish(event Event) error
	// PublishBatch publishes events in order and joins their errors.
	PublishBatch(events ...Event) error
	// Subscribe registers handler for eventType. The Wildcard type receives
	// every event.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil sub is ignored.
	Unsubscribe(sub Subscription) error
}

// Wildcard subscribes to every event type.
const Wildcard = "*"

// Event is an immutable message. Data is owned by the publisher's package,
// which documents its concrete type per event type.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type EventHandler func(event Event) error

// Subscription is a registered handler. Cancel is safe to call more than once.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}
