package document

import (
	"context"
	"fmt"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/dialog"
	"github.com/quirelabs/quire/internal/widget"
)

// Save persists the widget's current content for path. No widget at path is
// a no-op returning (nil, nil). On success the tracked model adopts the
// manager's reply, the dirty flag clears, and "document.saved" fires.
func (h *Handler[W]) Save(ctx context.Context, path string) (*contents.Model, error) {
	path, err := contents.CleanPath(path)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	e, ok := h.byPath[path]
	if !ok {
		h.mu.RUnlock()
		return nil, nil
	}
	w := e.widget
	model := e.model
	h.mu.RUnlock()

	opts, err := h.delegate.SaveOptions(w, model)
	if err != nil {
		return nil, fmt.Errorf("save options for %s: %w", path, err)
	}
	saved, err := h.manager.Save(ctx, path, opts)
	if err != nil {
		h.logger.Error("save %s: %v", path, err)
		return nil, fmt.Errorf("save %s: %w", path, err)
	}

	h.mu.Lock()
	live, ok := h.byPath[path]
	if !ok || live.widget.ID() != w.ID() {
		// Closed while the save was in flight. The content is persisted;
		// there is no tracked state left to update.
		h.mu.Unlock()
		return saved, nil
	}
	adoptModel(live.model, saved)
	if live.model.Content == "" {
		// Managers may omit content from the save reply.
		live.model.Content = opts.Content
	}
	h.mu.Unlock()

	h.ClearDirty(ctx, path)
	h.emit(ctx, TopicSaved, Saved{Path: path})
	h.logger.Debug("saved %s", path)
	return model, nil
}

// Revert discards unsaved changes by refetching path and repopulating the
// widget. No widget at path is a no-op returning (nil, nil). Closing the
// widget while the fetch is in flight returns ErrClosedDuringLoad.
func (h *Handler[W]) Revert(ctx context.Context, path string) (*contents.Model, error) {
	path, err := contents.CleanPath(path)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	e, ok := h.byPath[path]
	if !ok {
		h.mu.RUnlock()
		return nil, nil
	}
	w := e.widget
	h.mu.RUnlock()

	fetched, err := h.manager.Get(ctx, path, h.fetchOptions(path))
	if err != nil {
		h.logger.Error("revert %s: %v", path, err)
		return nil, fmt.Errorf("revert %s: %w", path, err)
	}

	h.mu.Lock()
	live, ok := h.byPath[path]
	if !ok || live.widget.ID() != w.ID() {
		h.mu.Unlock()
		return nil, ErrClosedDuringLoad
	}
	adoptModel(live.model, fetched)
	model := live.model
	h.mu.Unlock()

	if err := h.delegate.Populate(w, model); err != nil {
		return nil, fmt.Errorf("populate %s: %w", path, err)
	}
	h.ClearDirty(ctx, path)
	h.emit(ctx, TopicReverted, Reverted{Path: path})
	h.logger.Debug("reverted %s", path)
	return model, nil
}

// Rename moves the tracked state for oldPath to newPath after the backing
// file moved. It does not touch storage; rename through the manager first.
// An empty newPath means the file is gone: the dirty flag clears and the
// widget closes without confirmation. Reports whether a widget was tracked
// at oldPath.
//
// A newPath already open under another widget leaves both documents
// untouched and reports false, keeping paths unique.
func (h *Handler[W]) Rename(ctx context.Context, oldPath, newPath string) bool {
	oldPath, err := contents.CleanPath(oldPath)
	if err != nil {
		return false
	}

	if newPath == "" {
		h.mu.RLock()
		_, ok := h.byPath[oldPath]
		h.mu.RUnlock()
		if !ok {
			return false
		}
		h.ClearDirty(ctx, oldPath)
		if _, err := h.Close(ctx, oldPath); err != nil {
			h.logger.Error("close %s after delete: %v", oldPath, err)
		}
		return true
	}

	newPath, err = contents.CleanPath(newPath)
	if err != nil || newPath == "" {
		h.logger.Warn("rename %s: invalid target", oldPath)
		return false
	}
	h.mu.Lock()
	e, ok := h.byPath[oldPath]
	if !ok {
		h.mu.Unlock()
		return false
	}
	if newPath == oldPath {
		h.mu.Unlock()
		return true
	}
	if _, taken := h.byPath[newPath]; taken {
		h.mu.Unlock()
		h.logger.Warn("rename %s: %s is already open", oldPath, newPath)
		return false
	}
	delete(h.byPath, oldPath)
	e.path = newPath
	e.model.Path = newPath
	e.model.Name = contents.BaseName(newPath)
	h.byPath[newPath] = e
	w := e.widget
	model := e.model
	h.mu.Unlock()

	h.applyTitle(w, model)
	h.emit(ctx, TopicRenamed, Renamed{OldPath: oldPath, NewPath: newPath})
	h.logger.Debug("renamed %s to %s", oldPath, newPath)
	return true
}

// Close removes the document at path, prompting when unsaved changes would
// be lost. Reports whether the widget actually closed: a declined prompt
// returns (false, nil) with the widget open and still dirty, and an unknown
// path returns (false, nil).
func (h *Handler[W]) Close(ctx context.Context, path string) (bool, error) {
	path, err := contents.CleanPath(path)
	if err != nil {
		return false, err
	}

	h.mu.RLock()
	e, ok := h.byPath[path]
	if !ok {
		h.mu.RUnlock()
		return false, nil
	}
	w := e.widget
	dirty := e.dirty
	h.mu.RUnlock()

	if dirty {
		opts := closePrompt(path)
		res, err := h.dialog.Show(ctx, opts)
		if err != nil {
			return false, fmt.Errorf("confirm close %s: %w", path, err)
		}
		if !res.Accepted(opts) {
			return false, nil
		}
	}

	h.mu.Lock()
	live, ok := h.byPath[path]
	if !ok || live.widget.ID() != w.ID() {
		h.mu.Unlock()
		return false, nil
	}
	h.removeLocked(live)
	h.mu.Unlock()

	w.Dispose()
	h.emit(ctx, TopicClosed, Closed{Path: path, WidgetID: w.ID()})
	h.logger.Debug("closed %s", path)
	return true, nil
}

// CloseAll requests close on every open widget, oldest first. Dirty
// documents prompt one at a time through the close filter; declined widgets
// stay open.
func (h *Handler[W]) CloseAll(ctx context.Context) {
	for _, w := range h.Widgets() {
		w.RequestClose(ctx)
	}
}

// FilterClose implements widget.CloseFilter. Tracked widgets route through
// Close so the dirty prompt and bookkeeping run; untracked widgets pass
// through to the default close behavior.
func (h *Handler[W]) FilterClose(ctx context.Context, w widget.Widget) bool {
	path, ok := h.FindPath(w)
	if !ok {
		return false
	}
	if _, err := h.Close(ctx, path); err != nil {
		h.logger.Error("close %s: %v", path, err)
	}
	return true
}

// forget drops the entry for a widget disposed outside the close path,
// keeping the table consistent with the toolkit's view of the widget.
func (h *Handler[W]) forget(widgetID string) {
	h.mu.Lock()
	e, ok := h.byWidget[widgetID]
	if !ok {
		h.mu.Unlock()
		return
	}
	h.removeLocked(e)
	path := e.path
	h.mu.Unlock()

	h.emit(context.Background(), TopicClosed, Closed{Path: path, WidgetID: widgetID})
	h.logger.Debug("closed %s", path)
}

func closePrompt(path string) dialog.Options {
	return dialog.Options{
		Title: "Close without saving?",
		Body:  fmt.Sprintf("File %q has unsaved changes, close without saving?", path),
	}
}
