package event

import "sync/atomic"

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Priority determines execution order (lower values execute first).
	Priority Priority

	// Filter is an optional predicate to filter events.
	// If set, events are only delivered if Filter returns true.
	Filter FilterFunc

	// Once indicates the subscription should auto-cancel after the first
	// successful delivery.
	Once bool
}

// DefaultSubscriptionConfig returns a default subscription configuration.
func DefaultSubscriptionConfig() SubscriptionConfig {
	return SubscriptionConfig{
		Priority: PriorityNormal,
	}
}

// SubscriptionOption is a function that configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithPriority sets the subscription priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Priority = p
	}
}

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce sets the subscription to auto-cancel after the first delivery.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// Subscription represents an active registration with an Emitter.
type Subscription struct {
	pattern   Topic
	handler   Handler
	config    SubscriptionConfig
	seq       uint64
	cancelled atomic.Bool
}

// newSubscription creates a new subscription.
func newSubscription(seq uint64, pattern Topic, h Handler, opts ...SubscriptionOption) *Subscription {
	config := DefaultSubscriptionConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Subscription{
		pattern: pattern,
		handler: h,
		config:  config,
		seq:     seq,
	}
}

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() Topic {
	return s.pattern
}

// Priority returns the subscription priority.
func (s *Subscription) Priority() Priority {
	return s.config.Priority
}

// Active returns true if the subscription can still receive events.
func (s *Subscription) Active() bool {
	return !s.cancelled.Load()
}

// Cancel permanently cancels the subscription.
// Cancelling is idempotent and safe during delivery.
func (s *Subscription) Cancel() {
	s.cancelled.Store(true)
}

// shouldDeliver reports whether the event should reach this subscription.
func (s *Subscription) shouldDeliver(evt Event) bool {
	if s.cancelled.Load() {
		return false
	}
	if !evt.Topic.Matches(s.pattern) {
		return false
	}
	if s.config.Filter != nil && !s.config.Filter(evt) {
		return false
	}
	return true
}
