package shell

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/document"
	"github.com/quirelabs/quire/internal/docview"
)

// screenSurface adapts the tcell screen to the view drawing contract.
type screenSurface struct {
	screen tcell.Screen
}

func (s screenSurface) SetCell(x, y int, r rune, style tcell.Style) {
	s.screen.SetContent(x, y, r, nil, style)
}

var (
	styleBar      = tcell.StyleDefault.Reverse(true)
	styleBarFocus = tcell.StyleDefault.Bold(true)
	styleOverlay  = tcell.StyleDefault
	styleSelected = tcell.StyleDefault.Reverse(true)
)

// redraw composes and flushes a full frame.
func (s *Shell) redraw() {
	s.draw()
	s.screen.Show()
}

// draw composes the frame: tab bar, active view, status bar, then any
// prompt or palette overlay. The cursor follows the focused element.
func (s *Shell) draw() {
	s.screen.Clear()
	s.screen.HideCursor()
	w, h := s.screen.Size()
	if w <= 0 || h <= 0 {
		return
	}

	s.drawTabs(w)

	body := docview.Region{X: 0, Y: 1, Width: w, Height: h - 2}
	if t := s.activeTab(); t != nil && body.Height > 0 {
		t.view.Render(screenSurface{s.screen}, body)
		if s.prompt == nil && s.palette == nil {
			if x, y, ok := t.view.Cursor(body); ok {
				s.screen.ShowCursor(x, y)
			}
		}
	}

	if h >= 2 {
		s.drawStatus(w, h)
	}
	if s.palette != nil {
		s.drawPalette(w, h)
	}
	if s.prompt != nil {
		s.drawPrompt(w, h)
	}
}

func (s *Shell) drawTabs(w int) {
	surface := screenSurface{s.screen}
	for x := 0; x < w; x++ {
		s.screen.SetContent(x, 0, ' ', nil, styleBar)
	}
	x := 0
	for i, t := range s.tabs {
		if x >= w {
			break
		}
		st := styleBar
		if i == s.active {
			st = styleBarFocus
		}
		label := " " + s.tabLabel(t) + " "
		docview.DrawString(surface, x, 0, w-x, label, st)
		x += len([]rune(label))
	}
}

// tabLabel is the widget title with a trailing star for unsaved changes.
func (s *Shell) tabLabel(t *tab) string {
	label := t.view.Title().Text()
	if label == "" {
		label = contents.BaseName(t.path)
	}
	if t.view.Title().HasClass(document.DirtyTitleClass) {
		label += "*"
	}
	return label
}

func (s *Shell) drawStatus(w, h int) {
	y := h - 1
	surface := screenSurface{s.screen}
	for x := 0; x < w; x++ {
		s.screen.SetContent(x, y, ' ', nil, styleBar)
	}

	info := "no open documents"
	if t := s.activeTab(); t != nil {
		info = t.path + "  " + t.kind
		if t.handler.IsDirty(t.path) {
			info += "  modified"
		}
		if frag := t.view.Status(); frag != "" {
			info += "  " + frag
		}
	}
	docview.DrawString(surface, 0, y, w, info, styleBar)

	if msg := s.currentMessage(); msg != "" {
		x := w - len([]rune(msg)) - 1
		if x < 0 {
			x = 0
		}
		docview.DrawString(surface, x, y, w-x, msg, styleBar)
	}
}

func (s *Shell) drawPrompt(w, h int) {
	if w < 8 || h < 4 {
		return
	}
	bw := min(w-4, 64)
	x := (w - bw) / 2
	y := h / 3
	if y+3 > h {
		y = 0
	}
	s.drawBox(x, y, bw, 3, s.prompt.title)

	inner := bw - 4
	text := string(s.prompt.input)
	if runes := []rune(text); len(runes) >= inner {
		// Keep the tail of long input visible next to the cursor.
		text = string(runes[len(runes)-(inner-1):])
	}
	docview.DrawString(screenSurface{s.screen}, x+2, y+1, inner, text, styleOverlay)
	s.screen.ShowCursor(x+2+len([]rune(text)), y+1)
}

func (s *Shell) drawPalette(w, h int) {
	if w < 8 || h < 6 {
		return
	}
	p := s.palette
	bw := min(w-4, 72)
	x := (w - bw) / 2

	visible := min(len(p.matches), max(h-6, 3))
	bh := visible + 3
	y := max((h-bh)/3, 0)
	if y+bh > h {
		visible = h - y - 3
		bh = visible + 3
	}
	s.drawBox(x, y, bw, bh, "Open")

	surface := screenSurface{s.screen}
	inner := bw - 4
	query := "> " + string(p.input)
	docview.DrawString(surface, x+2, y+1, inner, query, styleOverlay)

	first := 0
	if p.sel >= visible && visible > 0 {
		first = p.sel - visible + 1
	}
	for row := 0; row < visible; row++ {
		idx := first + row
		if idx >= len(p.matches) {
			break
		}
		st := styleOverlay
		if idx == p.sel {
			st = styleSelected
		}
		path := p.items[p.matches[idx]]
		docview.DrawString(surface, x+2, y+2+row, inner, pad(path, inner), st)
	}
	s.screen.ShowCursor(x+2+len([]rune(query)), y+1)
}

func (s *Shell) drawDialog(title, body, accept, dismiss string, acceptSelected bool) {
	w, h := s.screen.Size()
	if w < 8 || h < 5 {
		return
	}
	bw := min(w-4, 60)
	bh := 5
	x := (w - bw) / 2
	y := (h - bh) / 3
	if y < 0 {
		y = 0
	}
	s.drawBox(x, y, bw, bh, title)

	surface := screenSurface{s.screen}
	inner := bw - 4
	docview.DrawString(surface, x+2, y+1, inner, body, styleOverlay)

	acceptLabel := "[ " + accept + " ]"
	dismissLabel := "[ " + dismiss + " ]"
	acceptStyle, dismissStyle := styleOverlay, styleSelected
	if acceptSelected {
		acceptStyle, dismissStyle = styleSelected, styleOverlay
	}
	docview.DrawString(surface, x+2, y+3, inner, acceptLabel, acceptStyle)
	dx := x + 2 + len([]rune(acceptLabel)) + 3
	docview.DrawString(surface, dx, y+3, x+2+inner-dx, dismissLabel, dismissStyle)
	s.screen.HideCursor()
}

// drawBox clears a rectangle and frames it, with the title on the top edge.
func (s *Shell) drawBox(x, y, w, h int, title string) {
	if w < 2 || h < 2 {
		return
	}
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			s.screen.SetContent(col, row, ' ', nil, styleOverlay)
		}
	}
	for col := x + 1; col < x+w-1; col++ {
		s.screen.SetContent(col, y, tcell.RuneHLine, nil, styleOverlay)
		s.screen.SetContent(col, y+h-1, tcell.RuneHLine, nil, styleOverlay)
	}
	for row := y + 1; row < y+h-1; row++ {
		s.screen.SetContent(x, row, tcell.RuneVLine, nil, styleOverlay)
		s.screen.SetContent(x+w-1, row, tcell.RuneVLine, nil, styleOverlay)
	}
	s.screen.SetContent(x, y, tcell.RuneULCorner, nil, styleOverlay)
	s.screen.SetContent(x+w-1, y, tcell.RuneURCorner, nil, styleOverlay)
	s.screen.SetContent(x, y+h-1, tcell.RuneLLCorner, nil, styleOverlay)
	s.screen.SetContent(x+w-1, y+h-1, tcell.RuneLRCorner, nil, styleOverlay)
	if title != "" {
		docview.DrawString(screenSurface{s.screen}, x+2, y, w-4, " "+title+" ", styleOverlay)
	}
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(r))
}
