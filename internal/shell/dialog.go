package shell

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/quirelabs/quire/internal/dialog"
)

// modal shows confirmation prompts on the shell's screen. Show runs a
// nested event loop, so it must only be called from the Run goroutine,
// which is where the handlers invoke it.
type modal struct {
	shell *Shell
}

// Show implements dialog.Dialog. Escape and a plain enter answer with the
// dismiss label; arrows, tab, and y/n pick a button.
func (m modal) Show(ctx context.Context, opts dialog.Options) (dialog.Result, error) {
	accept := opts.Accept
	if accept == "" {
		accept = dialog.DefaultAccept
	}
	dismiss := opts.Dismiss
	if dismiss == "" {
		dismiss = dialog.DefaultDismiss
	}

	acceptSelected := false
	for {
		if err := ctx.Err(); err != nil {
			return dialog.Result{}, err
		}
		m.shell.draw()
		m.shell.drawDialog(opts.Title, opts.Body, accept, dismiss, acceptSelected)
		m.shell.screen.Show()

		switch ev := m.shell.screen.PollEvent().(type) {
		case nil:
			return dialog.Result{}, ErrScreenClosed
		case *tcell.EventResize:
			m.shell.screen.Sync()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyLeft, tcell.KeyRight, tcell.KeyTab:
				acceptSelected = !acceptSelected
			case tcell.KeyEnter:
				if acceptSelected {
					return dialog.Result{Text: accept}, nil
				}
				return dialog.Result{Text: dismiss}, nil
			case tcell.KeyEsc:
				return dialog.Result{Text: dismiss}, nil
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'y', 'Y':
					return dialog.Result{Text: accept}, nil
				case 'n', 'N':
					return dialog.Result{Text: dismiss}, nil
				}
			}
		}
	}
}
