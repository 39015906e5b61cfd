package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/dialog"
	"github.com/quirelabs/quire/internal/event"
	"github.com/quirelabs/quire/internal/logging"
	"github.com/quirelabs/quire/internal/widget"
)

// entry is the handler's record of one open document.
type entry[W widget.Widget] struct {
	path   string
	widget W
	model  *contents.Model
	dirty  bool
}

// Handler binds a contents manager to widgets of one document type. It owns
// the full lifecycle: opening paths into widgets, tracking unsaved changes,
// saving and reverting, and confirming closes through a dialog.
//
// Each clean path maps to at most one widget. Opening an already-open path
// returns the existing widget.
type Handler[W widget.Widget] struct {
	mu       sync.RWMutex
	order    []*entry[W]
	byPath   map[string]*entry[W]
	byWidget map[string]*entry[W]

	manager  contents.Manager
	delegate Delegate[W]
	dialog   dialog.Dialog
	emitter  *event.Emitter
	logger   *logging.Logger
}

// Option configures a Handler.
type Option[W widget.Widget] func(*Handler[W])

// WithDialog sets the confirmation dialog used when closing dirty documents.
func WithDialog[W widget.Widget](d dialog.Dialog) Option[W] {
	return func(h *Handler[W]) { h.dialog = d }
}

// WithLogger sets the handler's logger.
func WithLogger[W widget.Widget](l *logging.Logger) Option[W] {
	return func(h *Handler[W]) { h.logger = l }
}

// WithEmitter publishes lifecycle events on a shared emitter instead of a
// handler-private one. Handlers for several document types can feed one bus
// this way.
func WithEmitter[W widget.Widget](em *event.Emitter) Option[W] {
	return func(h *Handler[W]) { h.emitter = em }
}

// New creates a Handler backed by the given manager and delegate. Without
// WithDialog, closes of dirty documents are declined.
func New[W widget.Widget](m contents.Manager, d Delegate[W], opts ...Option[W]) (*Handler[W], error) {
	if m == nil {
		return nil, ErrNilManager
	}
	if d == nil {
		return nil, ErrNilDelegate
	}
	h := &Handler[W]{
		byPath:   make(map[string]*entry[W]),
		byWidget: make(map[string]*entry[W]),
		manager:  m,
		delegate: d,
		dialog:   dialog.Decline(),
		emitter:  event.NewEmitter(event.WithSource("document")),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.dialog == nil {
		return nil, ErrNilDialog
	}
	if h.emitter == nil {
		h.emitter = event.NewEmitter(event.WithSource("document"))
	}
	if h.logger == nil {
		h.logger = logging.Nop()
	}
	h.logger = h.logger.WithComponent("document")
	return h, nil
}

// Emitter returns the handler's event emitter. Subscribe to the document.*
// topics to observe lifecycle changes.
func (h *Handler[W]) Emitter() *event.Emitter {
	return h.emitter
}

// Open returns the widget for path, fetching content and populating a new
// widget if the path is not already open.
//
// The widget exists before its content arrives. A "document.created" event
// fires as soon as the widget is tracked; "document.populated" fires after
// content lands in it. If the widget is closed while the fetch is in flight,
// Open returns ErrClosedDuringLoad. If the fetch itself fails, the empty
// widget stays open and the fetch error is returned alongside it.
func (h *Handler[W]) Open(ctx context.Context, path string) (W, error) {
	var zero W
	path, err := contents.CleanPath(path)
	if err != nil {
		return zero, err
	}

	h.mu.RLock()
	if e, ok := h.byPath[path]; ok {
		w := e.widget
		h.mu.RUnlock()
		return w, nil
	}
	h.mu.RUnlock()

	// Build the widget before taking the write lock. Widget construction
	// runs delegate code and must not hold handler locks.
	model := &contents.Model{
		Path: path,
		Name: contents.BaseName(path),
		Type: contents.InferType(path),
	}
	w, err := h.delegate.CreateWidget(model)
	if err != nil {
		return zero, fmt.Errorf("create widget for %s: %w", path, err)
	}
	h.applyTitle(w, model)
	w.Title().SetClosable(true)
	w.AddCloseFilter(h)
	w.OnDispose(func() { h.forget(w.ID()) })

	h.mu.Lock()
	if e, ok := h.byPath[path]; ok {
		// Lost the race to another Open. Keep the first widget.
		existing := e.widget
		h.mu.Unlock()
		w.Dispose()
		return existing, nil
	}
	e := &entry[W]{path: path, widget: w, model: model}
	h.insertLocked(e)
	h.mu.Unlock()

	h.emit(ctx, TopicCreated, Created{Path: path, WidgetID: w.ID()})
	h.logger.Debug("opened %s", path)

	fetched, err := h.manager.Get(ctx, path, h.fetchOptions(path))
	if err != nil {
		h.logger.Error("fetch %s: %v", path, err)
		return w, fmt.Errorf("fetch %s: %w", path, err)
	}

	h.mu.Lock()
	live, ok := h.byPath[path]
	if !ok || live.widget.ID() != w.ID() {
		h.mu.Unlock()
		return zero, ErrClosedDuringLoad
	}
	adoptModel(live.model, fetched)
	h.mu.Unlock()

	if err := h.delegate.Populate(w, model); err != nil {
		return w, fmt.Errorf("populate %s: %w", path, err)
	}
	h.ClearDirty(ctx, path)
	h.emit(ctx, TopicPopulated, Populated{Path: path, WidgetID: w.ID()})
	return w, nil
}

// FindWidget returns the widget open at path, if any.
func (h *Handler[W]) FindWidget(path string) (W, bool) {
	var zero W
	path, err := contents.CleanPath(path)
	if err != nil {
		return zero, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if e, ok := h.byPath[path]; ok {
		return e.widget, true
	}
	return zero, false
}

// FindModel returns the content model backing the widget. The same model
// pointer stays valid for the widget's whole lifetime; saves and reverts
// update it in place.
func (h *Handler[W]) FindModel(w widget.Widget) (*contents.Model, bool) {
	if w == nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if e, ok := h.byWidget[w.ID()]; ok {
		return e.model, true
	}
	return nil, false
}

// FindPath returns the path the widget is open at.
func (h *Handler[W]) FindPath(w widget.Widget) (string, bool) {
	if w == nil {
		return "", false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if e, ok := h.byWidget[w.ID()]; ok {
		return e.path, true
	}
	return "", false
}

// Widgets returns all open widgets in opening order.
func (h *Handler[W]) Widgets() []W {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]W, 0, len(h.order))
	for _, e := range h.order {
		out = append(out, e.widget)
	}
	return out
}

// Paths returns the open paths in opening order.
func (h *Handler[W]) Paths() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.order))
	for _, e := range h.order {
		out = append(out, e.path)
	}
	return out
}

// Len reports the number of open documents.
func (h *Handler[W]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

func (h *Handler[W]) insertLocked(e *entry[W]) {
	h.order = append(h.order, e)
	h.byPath[e.path] = e
	h.byWidget[e.widget.ID()] = e
}

func (h *Handler[W]) removeLocked(e *entry[W]) {
	for i, cur := range h.order {
		if cur == e {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	delete(h.byPath, e.path)
	delete(h.byWidget, e.widget.ID())
}

func (h *Handler[W]) fetchOptions(path string) contents.FetchOptions {
	if p, ok := h.delegate.(FetchOptionsProvider); ok {
		return p.FetchOptions(path)
	}
	return contents.DefaultFetchOptions()
}

func (h *Handler[W]) applyTitle(w W, model *contents.Model) {
	text := model.Name
	if p, ok := h.delegate.(TitleProvider); ok {
		text = p.WidgetTitle(model)
	}
	w.Title().SetText(text)
}

func (h *Handler[W]) emit(ctx context.Context, topic event.Topic, payload any) {
	h.emitter.Emit(ctx, topic, payload)
}

// adoptModel copies fetched state into the tracked model without replacing
// the pointer widgets and callers hold.
func adoptModel(dst, src *contents.Model) {
	dst.Path = src.Path
	dst.Name = src.Name
	dst.Type = src.Type
	dst.Format = src.Format
	dst.Mimetype = src.Mimetype
	dst.Content = src.Content
	dst.Size = src.Size
	dst.Created = src.Created
	dst.LastModified = src.LastModified
	dst.Writable = src.Writable
}
