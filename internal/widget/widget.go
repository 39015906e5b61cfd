// Package widget defines the minimal widget contract the document handler
// binds to. The shell supplies concrete widgets; tests supply fakes. The
// package knows nothing about rendering, only identity, titles, disposal,
// and the close request path.
package widget

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Widget is the surface the document handler manages.
// Implementations embed Base and add their own behavior.
type Widget interface {
	// ID returns a stable unique identifier for this widget instance.
	ID() string

	// Title returns the widget's mutable title.
	Title() *Title

	// Dispose releases the widget. Disposing is idempotent.
	Dispose()

	// Disposed returns true once the widget has been disposed.
	Disposed() bool

	// OnDispose registers a hook to run when the widget is disposed.
	OnDispose(fn func())

	// AddCloseFilter installs a filter consulted by RequestClose.
	AddCloseFilter(f CloseFilter)

	// RemoveCloseFilter removes a previously installed filter.
	RemoveCloseFilter(f CloseFilter)

	// RequestClose runs the close path: filters first, and if none claims
	// the request, the widget disposes itself.
	RequestClose(ctx context.Context)
}

// Base is the default Widget implementation, meant for embedding.
// It is safe for concurrent use.
type Base struct {
	id    string
	title Title

	mu        sync.Mutex
	disposed  bool
	onDispose []func()
	filters   []CloseFilter
}

// NewBase creates a widget base with a fresh ID.
func NewBase() *Base {
	return &Base{id: uuid.New().String()}
}

// ID returns the widget's unique identifier.
func (b *Base) ID() string {
	return b.id
}

// Title returns the widget's title.
func (b *Base) Title() *Title {
	return &b.title
}

// Dispose releases the widget and runs OnDispose hooks in registration
// order. Dispose is idempotent; hooks run exactly once.
func (b *Base) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	hooks := b.onDispose
	b.onDispose = nil
	b.filters = nil
	b.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Disposed returns true once the widget has been disposed.
func (b *Base) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// OnDispose registers a hook to run when the widget is disposed.
// Hooks registered after disposal run immediately.
func (b *Base) OnDispose(fn func()) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		fn()
		return
	}
	b.onDispose = append(b.onDispose, fn)
	b.mu.Unlock()
}

// AddCloseFilter installs a close filter. Filters run in registration order.
func (b *Base) AddCloseFilter(f CloseFilter) {
	if f == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.filters = append(b.filters, f)
}

// RemoveCloseFilter removes a previously installed close filter. Struct
// filters are matched by equality, func filters by code pointer, so pass
// the same value given to AddCloseFilter.
func (b *Base) RemoveCloseFilter(f CloseFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, installed := range b.filters {
		if sameFilter(installed, f) {
			b.filters = append(b.filters[:i], b.filters[i+1:]...)
			return
		}
	}
}

// sameFilter compares filters without tripping Go's panic on comparing
// func-typed interface values.
func sameFilter(a, b CloseFilter) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Func || rb.Kind() == reflect.Func {
		return ra.Kind() == rb.Kind() && ra.Pointer() == rb.Pointer()
	}
	return a == b
}

// RequestClose runs installed close filters against the widget. The first
// filter returning true claims the request and default handling stops.
// With no claiming filter the widget disposes itself. Requests against a
// disposed widget are ignored.
//
// Filters receive the embedded Base, which shares the outer widget's ID.
// Cleanup that must run on any close path belongs in an OnDispose hook,
// not in a Dispose override.
func (b *Base) RequestClose(ctx context.Context) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	// Snapshot so filters may add or remove filters mid-walk.
	filters := make([]CloseFilter, len(b.filters))
	copy(filters, b.filters)
	b.mu.Unlock()

	for _, f := range filters {
		if f.FilterClose(ctx, b) {
			return
		}
	}
	b.Dispose()
}
