package shell

import (
	"context"

	"github.com/quirelabs/quire/internal/document"
	"github.com/quirelabs/quire/internal/event"
)

// subscribe wires the shell to the document lifecycle bus. Handlers emit
// synchronously, so these callbacks run on whichever goroutine performed
// the operation, normally the Run goroutine.
func (s *Shell) subscribe() error {
	sub, err := s.emitter.SubscribeFunc("document.*", s.onDocumentEvent)
	if err != nil {
		return &InitError{Component: "subscriptions", Err: err}
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Shell) onDocumentEvent(ctx context.Context, evt event.Event) error {
	switch p := evt.Payload.(type) {
	case document.Saved:
		s.setMessage("saved " + p.Path)
	case document.Reverted:
		s.setMessage("reverted " + p.Path)
	case document.Renamed:
		s.retagTab(p.OldPath, p.NewPath)
		s.setMessage("renamed to " + p.NewPath)
	case document.Closed:
		s.removeTab(p.WidgetID)
	}
	return nil
}

func (s *Shell) retagTab(oldPath, newPath string) {
	if i := s.tabIndex(oldPath); i >= 0 {
		s.tabs[i].path = newPath
	}
}

// removeTab drops the tab owning the widget and keeps the active index on
// a sensible neighbor.
func (s *Shell) removeTab(widgetID string) {
	for i, t := range s.tabs {
		if t.view.ID() != widgetID {
			continue
		}
		s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
		if s.active > i {
			s.active--
		}
		if s.active >= len(s.tabs) {
			s.active = len(s.tabs) - 1
		}
		return
	}
}
