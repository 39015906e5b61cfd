package event

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event represents a single occurrence delivered to subscribers.
// Events are immutable once created.
type Event struct {
	// Topic is the hierarchical event name (e.g. "document.saved").
	Topic Topic

	// ID is a unique identifier for this event instance.
	ID string

	// Time is when the event was created.
	Time time.Time

	// Source identifies the component that emitted the event.
	Source string

	// Payload contains the event-specific data. Handlers type-assert,
	// or use SubscribeTo for a typed callback.
	Payload any
}

// New creates a new event with a fresh ID and timestamp.
func New(topic Topic, payload any, source string) Event {
	return Event{
		Topic:   topic,
		ID:      newID(),
		Time:    time.Now(),
		Source:  source,
		Payload: payload,
	}
}

// newID generates a ULID using crypto/rand entropy.
// ULIDs sort by creation time, which keeps event logs chronological.
func newID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
