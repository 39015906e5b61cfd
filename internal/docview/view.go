package docview

import (
	"github.com/gdamore/tcell/v2"

	"github.com/quirelabs/quire/internal/widget"
)

// Region is the screen rectangle a view may draw into.
type Region struct {
	X, Y, Width, Height int
}

// Surface receives the cells a view renders. The shell backs it with a tcell
// screen; tests back it with an in-memory grid.
type Surface interface {
	SetCell(x, y int, r rune, style tcell.Style)
}

// DrawString writes text left to right starting at (x, y), stopping at
// maxWidth cells.
func DrawString(s Surface, x, y, maxWidth int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= maxWidth {
			return
		}
		s.SetCell(x+col, y, r, style)
		col++
	}
}

// View is the widget contract the shell renders in its body region.
type View interface {
	widget.Widget

	// HandleKey processes one key event, reporting whether it was consumed.
	HandleKey(ev *tcell.EventKey) bool

	// Render draws the view into the region.
	Render(s Surface, r Region)

	// Cursor returns the screen position of the cursor within the region,
	// or ok=false when the view shows no cursor.
	Cursor(r Region) (x, y int, ok bool)

	// Status returns a short fragment for the status bar.
	Status() string
}
