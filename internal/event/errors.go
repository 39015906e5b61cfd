package event

import "errors"

// Event system errors.
var (
	// ErrNilHandler indicates a subscription was attempted with a nil handler.
	ErrNilHandler = errors.New("event: nil handler")

	// ErrInvalidTopic indicates a topic or pattern is malformed.
	ErrInvalidTopic = errors.New("event: invalid topic")

	// ErrSubscriptionNotFound indicates the subscription is not registered.
	ErrSubscriptionNotFound = errors.New("event: subscription not found")
)
