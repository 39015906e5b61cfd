package shell

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
)

// messageTTL is how long a transient status message stays visible.
const messageTTL = 4 * time.Second

// shutdownRequest is posted by Shutdown to stop the loop from outside.
type shutdownRequest struct{}

// Run initializes the screen, opens the startup files, and blocks in the
// event loop until the shell quits.
func (s *Shell) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if err := s.screen.Init(); err != nil {
		return &InitError{Component: "screen", Err: err}
	}
	defer s.screen.Fini()
	s.screen.EnablePaste()

	ctx := context.Background()
	for _, path := range s.opts.Files {
		if err := s.openPath(ctx, path); err != nil {
			s.logger.Warn("open %s: %v", path, err)
			s.setMessage("open " + path + ": " + err.Error())
		}
	}

	s.redraw()
	return s.eventLoop(ctx)
}

// Shutdown asks a running shell to stop. Safe to call from any goroutine.
func (s *Shell) Shutdown() {
	if !s.running.Load() {
		return
	}
	_ = s.screen.PostEvent(tcell.NewEventInterrupt(shutdownRequest{}))
}

func (s *Shell) eventLoop(ctx context.Context) error {
	for !s.quit {
		ev := s.screen.PollEvent()
		if ev == nil {
			return nil
		}
		s.handleEvent(ctx, ev)
		s.redraw()
	}
	s.logger.Info("shell stopped")
	return nil
}

func (s *Shell) handleEvent(ctx context.Context, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		s.screen.Sync()
	case *tcell.EventInterrupt:
		if _, ok := ev.Data().(shutdownRequest); ok {
			s.quit = true
		}
	case *tcell.EventKey:
		s.handleKey(ctx, ev)
	}
}

// handleKey routes one key press. An active prompt or palette consumes
// everything; otherwise shell chords run first and the rest goes to the
// active view.
func (s *Shell) handleKey(ctx context.Context, ev *tcell.EventKey) {
	if s.prompt != nil {
		s.promptKey(ctx, ev)
		return
	}
	if s.palette != nil {
		s.paletteKey(ctx, ev)
		return
	}

	switch ev.Key() {
	case tcell.KeyCtrlQ:
		s.quitRequested(ctx)
	case tcell.KeyCtrlW:
		s.closeActive(ctx)
	case tcell.KeyCtrlS:
		s.saveActive(ctx)
	case tcell.KeyCtrlR:
		s.revertActive(ctx)
	case tcell.KeyF2:
		s.startRename()
	case tcell.KeyCtrlP:
		s.openPalette(ctx)
	case tcell.KeyCtrlO:
		s.startOpenPrompt()
	case tcell.KeyCtrlL:
		s.cycle(1)
	case tcell.KeyCtrlH:
		s.cycle(-1)
	default:
		if t := s.activeTab(); t != nil {
			t.view.HandleKey(ev)
		}
	}
}

// setMessage shows a transient status message and schedules a wakeup so it
// disappears without further input.
func (s *Shell) setMessage(msg string) {
	s.message = msg
	s.messageUntil = time.Now().Add(messageTTL)
	time.AfterFunc(messageTTL+50*time.Millisecond, func() {
		_ = s.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
}

func (s *Shell) currentMessage() string {
	if s.message == "" || time.Now().After(s.messageUntil) {
		return ""
	}
	return s.message
}
