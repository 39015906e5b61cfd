package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/document"
	"github.com/quirelabs/quire/internal/docview"
)

// openPath opens path into a tab, or activates the tab that already has
// it. The handler is chosen by extension.
func (s *Shell) openPath(ctx context.Context, path string) error {
	cleaned, err := contents.CleanPath(path)
	if err != nil {
		return err
	}
	if cleaned == "" {
		return contents.ErrInvalidPath
	}
	if contents.IsHidden(cleaned) && !s.opts.ShowHidden {
		return ErrHiddenPath
	}

	if i := s.tabIndex(cleaned); i >= 0 {
		s.active = i
		return nil
	}

	kind, err := s.registry.NameFor(cleaned)
	if err != nil {
		return err
	}
	h, err := s.registry.Handler(kind)
	if err != nil {
		return err
	}

	v, err := h.Open(ctx, cleaned)
	if err != nil {
		// A failed fetch leaves an empty widget tracked. The shell has
		// nothing to show in it, so drop it again.
		if _, tracked := h.FindWidget(cleaned); tracked {
			_, _ = h.Close(ctx, cleaned)
		}
		return err
	}

	s.tabs = append(s.tabs, &tab{path: cleaned, kind: kind, view: v, handler: h})
	s.active = len(s.tabs) - 1
	return nil
}

// openByPath is the ctrl-o commit: open the typed path, and on a miss
// suggest the closest known path.
func (s *Shell) openByPath(ctx context.Context, path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	err := s.openPath(ctx, path)
	if err == nil {
		return
	}
	if errors.Is(err, contents.ErrNotFound) {
		if index, ierr := s.pathIndex(ctx); ierr == nil {
			if near, ok := suggest(index, path); ok {
				s.setMessage(fmt.Sprintf("no such file %q, did you mean %q?", path, near))
				return
			}
		}
		s.setMessage(fmt.Sprintf("no such file %q", path))
		return
	}
	s.setMessage("open " + path + ": " + err.Error())
}

func (s *Shell) saveActive(ctx context.Context) {
	t := s.activeTab()
	if t == nil {
		s.setMessage("no open document")
		return
	}
	if _, err := t.handler.Save(ctx, t.path); err != nil {
		s.setMessage("save " + t.path + ": " + err.Error())
	}
}

func (s *Shell) revertActive(ctx context.Context) {
	t := s.activeTab()
	if t == nil {
		s.setMessage("no open document")
		return
	}
	if _, err := t.handler.Revert(ctx, t.path); err != nil {
		s.setMessage("revert " + t.path + ": " + err.Error())
	}
}

// closeActive routes through RequestClose so the handler's close filter
// and dirty prompt run.
func (s *Shell) closeActive(ctx context.Context) {
	t := s.activeTab()
	if t == nil {
		return
	}
	t.view.RequestClose(ctx)
}

// quitRequested closes every document, prompting for the dirty ones, and
// quits once nothing is left open. Declined closes keep the shell alive.
func (s *Shell) quitRequested(ctx context.Context) {
	s.registry.CloseAll(ctx)
	if len(s.tabs) == 0 {
		s.quit = true
		return
	}
	s.setMessage(fmt.Sprintf("%d documents kept open", len(s.tabs)))
}

// startRename opens the rename prompt for the active document, prefilled
// with its path. Committing an empty prompt deletes the file.
func (s *Shell) startRename() {
	t := s.activeTab()
	if t == nil {
		s.setMessage("no open document")
		return
	}
	old := t.path
	h := t.handler
	s.prompt = &prompt{
		title: "Rename (empty deletes)",
		input: []rune(old),
		onDone: func(ctx context.Context, text string) {
			s.finishRename(ctx, h, old, strings.TrimSpace(text))
		},
	}
}

func (s *Shell) finishRename(ctx context.Context, h *document.Handler[docview.View], old, target string) {
	if target == "" {
		if err := s.manager.Delete(ctx, old); err != nil {
			s.logger.Error("delete %s: %v", old, err)
			s.setMessage("delete " + old + ": " + err.Error())
			return
		}
		h.Rename(ctx, old, "")
		s.setMessage("deleted " + old)
		return
	}
	cleaned, err := contents.CleanPath(target)
	if err != nil || cleaned == "" {
		s.setMessage("rename " + old + ": invalid target")
		return
	}
	if cleaned == old {
		return
	}
	if s.tabIndex(cleaned) >= 0 {
		s.setMessage(cleaned + " is already open")
		return
	}
	if _, err := s.manager.Rename(ctx, old, cleaned); err != nil {
		s.logger.Error("rename %s: %v", old, err)
		s.setMessage("rename " + old + ": " + err.Error())
		return
	}
	h.Rename(ctx, old, cleaned)
}

// startOpenPrompt opens the ctrl-o path prompt.
func (s *Shell) startOpenPrompt() {
	s.prompt = &prompt{
		title:  "Open path",
		onDone: s.openByPath,
	}
}
