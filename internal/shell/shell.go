package shell

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/dialog"
	"github.com/quirelabs/quire/internal/document"
	"github.com/quirelabs/quire/internal/docview"
	"github.com/quirelabs/quire/internal/event"
	"github.com/quirelabs/quire/internal/logging"
)

// tab is one open document in the tab bar.
type tab struct {
	path    string
	kind    string
	view    docview.View
	handler *document.Handler[docview.View]
}

// Shell coordinates the screen, the document handlers, and the keyboard.
// Apart from Shutdown, its methods belong to the Run goroutine.
type Shell struct {
	screen   tcell.Screen
	manager  contents.Manager
	registry *document.Registry[docview.View]
	emitter  *event.Emitter
	logger   *logging.Logger

	opts Options

	tabs   []*tab
	active int

	message      string
	messageUntil time.Time
	prompt       *prompt
	palette      *palette

	subs []*event.Subscription

	running atomic.Bool
	quit    bool
}

// Options configures a Shell.
type Options struct {
	// Manager is the content backend documents load from and save to.
	Manager contents.Manager

	// Emitter carries document lifecycle events. Script hooks subscribe to
	// the same emitter. Defaults to a fresh one.
	Emitter *event.Emitter

	// Logger defaults to a no-op logger.
	Logger *logging.Logger

	// Screen overrides the terminal screen; tests pass a simulation
	// screen. Defaults to the real terminal.
	Screen tcell.Screen

	// Dialog overrides the close-confirmation dialog; tests pass scripted
	// answers. Defaults to the shell's own modal prompt.
	Dialog dialog.Dialog

	// Files are opened at startup. Failures are logged, not fatal.
	Files []string

	// TabWidth is the tab expansion width for text views.
	TabWidth int

	// ShowHidden permits opening dot-prefixed paths.
	ShowHidden bool
}

// New builds a shell and its document handlers. The screen is not touched
// until Run.
func New(opts Options) (*Shell, error) {
	if opts.Manager == nil {
		return nil, ErrNilManager
	}
	s := &Shell{
		manager: opts.Manager,
		opts:    opts,
		active:  -1,
	}

	s.emitter = opts.Emitter
	if s.emitter == nil {
		s.emitter = event.NewEmitter(event.WithSource("document"))
	}
	s.logger = opts.Logger
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	s.logger = s.logger.WithComponent("shell")

	s.screen = opts.Screen
	if s.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, &InitError{Component: "screen", Err: err}
		}
		s.screen = screen
	}

	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return s, nil
}

// bootstrap builds the registry, one handler per document type, and the
// event subscriptions.
func (s *Shell) bootstrap() error {
	dlg := s.opts.Dialog
	if dlg == nil {
		dlg = modal{shell: s}
	}
	common := []document.Option[docview.View]{
		document.WithDialog[docview.View](dlg),
		document.WithEmitter[docview.View](s.emitter),
		document.WithLogger[docview.View](s.logger),
	}

	s.registry = document.NewRegistry[docview.View]()

	text := &docview.TextDelegate{TabWidth: s.opts.TabWidth}
	textHandler, err := document.New[docview.View](s.manager, text, common...)
	if err != nil {
		return &InitError{Component: "text handler", Err: err}
	}
	text.MarkDirty = s.markDirty(textHandler)

	markdown := &docview.MarkdownDelegate{TabWidth: s.opts.TabWidth}
	markdownHandler, err := document.New[docview.View](s.manager, markdown, common...)
	if err != nil {
		return &InitError{Component: "markdown handler", Err: err}
	}
	markdown.MarkDirty = s.markDirty(markdownHandler)

	notebook := &docview.NotebookDelegate{}
	notebookHandler, err := document.New[docview.View](s.manager, notebook, common...)
	if err != nil {
		return &InitError{Component: "notebook handler", Err: err}
	}
	notebook.MarkDirty = s.markDirty(notebookHandler)

	for _, reg := range []struct {
		name    string
		handler *document.Handler[docview.View]
		exts    []string
	}{
		{"text", textHandler, nil},
		{"markdown", markdownHandler, []string{".md", ".markdown"}},
		{"notebook", notebookHandler, []string{".ipynb"}},
	} {
		if err := s.registry.Register(reg.name, reg.handler); err != nil {
			return &InitError{Component: "registry", Err: err}
		}
		for _, ext := range reg.exts {
			if err := s.registry.Assoc(ext, reg.name); err != nil {
				return &InitError{Component: "registry", Err: err}
			}
		}
	}
	if err := s.registry.SetDefault("text"); err != nil {
		return &InitError{Component: "registry", Err: err}
	}

	return s.subscribe()
}

// markDirty adapts a view edit hook to the handler's dirty tracking.
func (s *Shell) markDirty(h *document.Handler[docview.View]) func(docview.View) {
	return func(v docview.View) {
		if path, ok := h.FindPath(v); ok {
			h.SetDirty(context.Background(), path)
		}
	}
}

// Registry exposes the document registry, so callers can add associations
// or handlers before Run.
func (s *Shell) Registry() *document.Registry[docview.View] {
	return s.registry
}

// Emitter returns the event bus all handlers publish on.
func (s *Shell) Emitter() *event.Emitter {
	return s.emitter
}

// IsRunning reports whether the event loop is active.
func (s *Shell) IsRunning() bool {
	return s.running.Load()
}

// Paths returns the open paths in tab order.
func (s *Shell) Paths() []string {
	out := make([]string, 0, len(s.tabs))
	for _, t := range s.tabs {
		out = append(out, t.path)
	}
	return out
}

func (s *Shell) activeTab() *tab {
	if s.active < 0 || s.active >= len(s.tabs) {
		return nil
	}
	return s.tabs[s.active]
}

func (s *Shell) tabIndex(path string) int {
	for i, t := range s.tabs {
		if t.path == path {
			return i
		}
	}
	return -1
}

func (s *Shell) cycle(delta int) {
	if len(s.tabs) == 0 {
		return
	}
	s.active = (s.active + delta + len(s.tabs)) % len(s.tabs)
}
