package document

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/quirelabs/quire/internal/widget"
)

// Registry routes paths to named handlers by file extension, so callers can
// open any path without knowing which document type owns it.
type Registry[W widget.Widget] struct {
	mu       sync.RWMutex
	handlers map[string]*Handler[W]
	byExt    map[string]string
	def      string
}

// NewRegistry returns an empty registry.
func NewRegistry[W widget.Widget]() *Registry[W] {
	return &Registry[W]{
		handlers: make(map[string]*Handler[W]),
		byExt:    make(map[string]string),
	}
}

// Register adds a handler under name. A taken name returns
// ErrDuplicateHandler.
func (r *Registry[W]) Register(name string, h *Handler[W]) error {
	if name == "" || h == nil {
		return fmt.Errorf("register: empty name or nil handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("register %s: %w", name, ErrDuplicateHandler)
	}
	r.handlers[name] = h
	return nil
}

// Assoc routes the extension to the named handler. Extensions are
// case-insensitive and may be given with or without the leading dot.
// Multi-part extensions like ".tar.gz" are matched longest-suffix-first.
func (r *Registry[W]) Assoc(ext, name string) error {
	ext = normalizeExt(ext)
	if ext == "." {
		return fmt.Errorf("assoc: empty extension")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; !ok {
		return fmt.Errorf("assoc %s: %w", name, ErrHandlerNotFound)
	}
	r.byExt[ext] = name
	return nil
}

// SetDefault names the handler for paths no extension matches.
func (r *Registry[W]) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; !ok {
		return fmt.Errorf("default %s: %w", name, ErrHandlerNotFound)
	}
	r.def = name
	return nil
}

// Handler returns the handler registered under name.
func (r *Registry[W]) Handler(name string) (*Handler[W], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrHandlerNotFound)
	}
	return h, nil
}

// HandlerFor resolves the handler for path: the longest registered extension
// suffix wins, falling back to the default. No match and no default returns
// ErrNoDefaultHandler.
func (r *Registry[W]) HandlerFor(path string) (*Handler[W], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := r.resolveLocked(path)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDefaultHandler)
	}
	return r.handlers[name], nil
}

// NameFor resolves the handler name for path, with the same extension rules
// as HandlerFor.
func (r *Registry[W]) NameFor(path string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := r.resolveLocked(path)
	if name == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoDefaultHandler)
	}
	return name, nil
}

func (r *Registry[W]) resolveLocked(path string) string {
	lower := strings.ToLower(path)
	best := ""
	for ext := range r.byExt {
		if strings.HasSuffix(lower, ext) && len(ext) > len(best) {
			best = ext
		}
	}
	if best != "" {
		return r.byExt[best]
	}
	return r.def
}

// Names returns the registered handler names, sorted.
func (r *Registry[W]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Open routes path to its handler and opens it.
func (r *Registry[W]) Open(ctx context.Context, path string) (W, error) {
	h, err := r.HandlerFor(path)
	if err != nil {
		var zero W
		return zero, err
	}
	return h.Open(ctx, path)
}

// CloseAll requests close on every widget of every registered handler.
func (r *Registry[W]) CloseAll(ctx context.Context) {
	r.mu.RLock()
	handlers := make([]*Handler[W], 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()
	for _, h := range handlers {
		h.CloseAll(ctx)
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
