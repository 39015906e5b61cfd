package event

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Emitter is a synchronous publish/subscribe hub owned by a single component.
// It is safe for concurrent use. Handlers run on the emitting goroutine in
// priority order; within a priority level, subscription order is preserved.
type Emitter struct {
	mu   sync.RWMutex
	subs []*Subscription
	seq  uint64

	source       string
	panicHandler PanicHandler

	published     atomic.Uint64
	delivered     atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithSource sets the source stamped on emitted events.
func WithSource(source string) EmitterOption {
	return func(e *Emitter) {
		e.source = source
	}
}

// WithPanicHandler sets the callback invoked when a handler panics.
func WithPanicHandler(h PanicHandler) EmitterOption {
	return func(e *Emitter) {
		e.panicHandler = h
	}
}

// NewEmitter creates a new emitter.
func NewEmitter(opts ...EmitterOption) *Emitter {
	e := &Emitter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers a handler for topics matching the given pattern.
func (e *Emitter) Subscribe(pattern Topic, h Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	sub := newSubscription(e.seq, pattern, h, opts...)
	e.subs = append(e.subs, sub)
	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (e *Emitter) SubscribeFunc(pattern Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscription, error) {
	return e.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (e *Emitter) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	sub.Cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.subs {
		if s == sub {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Emit delivers an event for the topic to all matching subscriptions and
// returns the stamped event. Delivery is synchronous: when Emit returns,
// every matching handler has run. Handler errors and panics are counted
// but never interrupt delivery to later handlers.
func (e *Emitter) Emit(ctx context.Context, topic Topic, payload any) Event {
	evt := New(topic, payload, e.source)
	e.EmitEvent(ctx, evt)
	return evt
}

// EmitEvent delivers an already-constructed event.
func (e *Emitter) EmitEvent(ctx context.Context, evt Event) {
	e.published.Add(1)

	matched := e.snapshot(evt)
	if len(matched) == 0 {
		return
	}

	sawCancelled := false
	for _, sub := range matched {
		// Re-check at delivery time; an earlier handler may have
		// cancelled a later subscription.
		if !sub.shouldDeliver(evt) {
			sawCancelled = true
			continue
		}

		err, panicked := e.dispatch(ctx, sub, evt)
		switch {
		case panicked:
			e.handlerPanics.Add(1)
		case err != nil:
			e.handlerErrors.Add(1)
		default:
			e.delivered.Add(1)
			if sub.config.Once {
				sub.Cancel()
				sawCancelled = true
			}
		}
	}

	if sawCancelled {
		e.prune()
	}
}

// dispatch runs a single handler with panic isolation.
func (e *Emitter) dispatch(ctx context.Context, sub *Subscription, evt Event) (err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			if e.panicHandler != nil {
				e.panicHandler(evt, r)
			}
		}
	}()
	return sub.handler.Handle(ctx, evt), false
}

// snapshot returns matching active subscriptions in delivery order.
func (e *Emitter) snapshot(evt Event) []*Subscription {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var matched []*Subscription
	for _, sub := range e.subs {
		if sub.shouldDeliver(evt) {
			matched = append(matched, sub)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].config.Priority != matched[j].config.Priority {
			return matched[i].config.Priority < matched[j].config.Priority
		}
		return matched[i].seq < matched[j].seq
	})

	return matched
}

// prune removes cancelled subscriptions.
func (e *Emitter) prune() {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.subs[:0]
	for _, sub := range e.subs {
		if sub.Active() {
			active = append(active, sub)
		}
	}
	e.subs = active
}

// SubscriberCount returns the number of active subscriptions.
func (e *Emitter) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count := 0
	for _, sub := range e.subs {
		if sub.Active() {
			count++
		}
	}
	return count
}

// Stats returns current emitter statistics.
func (e *Emitter) Stats() Stats {
	return Stats{
		Published:         e.published.Load(),
		Delivered:         e.delivered.Load(),
		HandlerErrors:     e.handlerErrors.Load(),
		HandlerPanics:     e.handlerPanics.Load(),
		ActiveSubscribers: e.SubscriberCount(),
	}
}
