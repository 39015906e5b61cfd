package shell

import (
	"context"

	"github.com/gdamore/tcell/v2"
)

// prompt is a one-line input overlay. The event loop feeds it keys until
// the input is committed with enter or dropped with escape.
type prompt struct {
	title  string
	input  []rune
	onDone func(ctx context.Context, text string)
}

func (s *Shell) promptKey(ctx context.Context, ev *tcell.EventKey) {
	p := s.prompt
	switch ev.Key() {
	case tcell.KeyEsc:
		s.prompt = nil
	case tcell.KeyEnter:
		s.prompt = nil
		p.onDone(ctx, string(p.input))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(p.input) > 0 {
			p.input = p.input[:len(p.input)-1]
		}
	case tcell.KeyCtrlU:
		p.input = p.input[:0]
	case tcell.KeyRune:
		p.input = append(p.input, ev.Rune())
	}
}
