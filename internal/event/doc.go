// Package event provides a small publish/subscribe emitter.
//
// Unlike a process-global bus, an Emitter is owned by the component that
// produces the events. The document handler owns one, the shell subscribes to
// it, and scripts hook into the same instance. Ownership keeps event flow
// traceable: to find who can observe a handler's lifecycle, look at who holds
// a reference to its emitter.
//
// # Topics
//
// Events use hierarchical topics with dot notation:
//
//	document.created      - a widget was created for a path
//	document.populated    - the widget received fetched content
//	document.dirty        - the dirty flag changed
//
// Subscriptions accept wildcard patterns:
//
//	document.*     - matches document.saved, document.closed (one segment)
//	document.**    - matches any depth under document
//	*.dirty        - matches document.dirty, session.dirty
//
// # Delivery
//
// Emit delivers synchronously on the caller's goroutine, in ascending
// priority order (critical before low), insertion order within a priority.
// A handler that returns an error or panics never blocks delivery to later
// handlers; panics are recovered and counted.
//
// # Usage
//
//	em := event.NewEmitter(event.WithSource("document"))
//	sub, _ := em.SubscribeFunc("document.*", func(ctx context.Context, evt event.Event) error {
//	    log.Printf("%s: %v", evt.Topic, evt.Payload)
//	    return nil
//	})
//	defer sub.Cancel()
//
//	em.Emit(ctx, "document.saved", payload)
//
// Payload-typed subscriptions skip events whose payload is a different type:
//
//	event.SubscribeTo(em, "document.dirty", func(ctx context.Context, evt event.Event, p DirtyChanged) error {
//	    ...
//	})
package event
