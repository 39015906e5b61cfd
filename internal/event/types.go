package event

import "context"

// Priority determines handler execution order.
// Lower values execute first.
type Priority int

const (
	// PriorityCritical is for handlers that maintain core state and must run first.
	PriorityCritical Priority = 0

	// PriorityHigh is for UI handlers that react before the default tier.
	PriorityHigh Priority = 100

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 200

	// PriorityLow is for metrics, logging, and script handlers that run last.
	PriorityLow Priority = 300
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p <= PriorityCritical:
		return "critical"
	case p <= PriorityHigh:
		return "high"
	case p <= PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// Handler is the interface for event handlers.
type Handler interface {
	// Handle processes an event. The payload is type-erased; handlers
	// should type-assert what they expect and skip the rest.
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// FilterFunc is a predicate for filtering events.
// Return true to allow the event, false to filter it out.
type FilterFunc func(evt Event) bool

// PanicHandler is called when a handler panics during delivery.
type PanicHandler func(evt Event, recovered any)

// Stats contains emitter statistics.
type Stats struct {
	// Published is the total number of events emitted.
	Published uint64

	// Delivered is the total number of successful handler deliveries.
	Delivered uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// ActiveSubscribers is the current number of active subscriptions.
	ActiveSubscribers int
}

// SubscribeTo subscribes a payload-typed callback to the emitter.
// Events whose payload is not a T are skipped silently.
func SubscribeTo[T any](em *Emitter, pattern Topic, fn func(ctx context.Context, evt Event, payload T) error, opts ...SubscriptionOption) (*Subscription, error) {
	return em.Subscribe(pattern, HandlerFunc(func(ctx context.Context, evt Event) error {
		payload, ok := evt.Payload.(T)
		if !ok {
			return nil
		}
		return fn(ctx, evt, payload)
	}), opts...)
}
