package document

import (
	"context"

	"github.com/quirelabs/quire/internal/contents"
)

// DirtyTitleClass marks titles of documents with unsaved changes. Shells
// render it as a modified indicator on the tab.
const DirtyTitleClass = "quire-mod-dirty"

// IsDirty reports whether the document at path has unsaved changes.
// Unknown paths report false.
func (h *Handler[W]) IsDirty(path string) bool {
	path, err := contents.CleanPath(path)
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.byPath[path]
	return ok && e.dirty
}

// SetDirty marks the document at path as having unsaved changes. Unknown
// paths are ignored. Only a transition toggles the title class and emits
// "document.dirty".
func (h *Handler[W]) SetDirty(ctx context.Context, path string) {
	h.setDirty(ctx, path, true)
}

// ClearDirty marks the document at path as saved.
func (h *Handler[W]) ClearDirty(ctx context.Context, path string) {
	h.setDirty(ctx, path, false)
}

func (h *Handler[W]) setDirty(ctx context.Context, path string, dirty bool) {
	path, err := contents.CleanPath(path)
	if err != nil {
		return
	}
	h.mu.Lock()
	e, ok := h.byPath[path]
	if !ok || e.dirty == dirty {
		h.mu.Unlock()
		return
	}
	e.dirty = dirty
	w := e.widget
	h.mu.Unlock()

	if dirty {
		w.Title().AddClass(DirtyTitleClass)
	} else {
		w.Title().RemoveClass(DirtyTitleClass)
	}
	h.emit(ctx, TopicDirty, DirtyChanged{Path: path, Dirty: dirty})
}
