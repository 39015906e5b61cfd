package docview

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/widget"
)

// DefaultTabWidth is the tab expansion used when none is configured.
const DefaultTabWidth = 4

// Text is a line-based plain text view with minimal editing. Cursor
// positions are rune-indexed; tabs expand to the next tab stop when drawn.
type Text struct {
	*widget.Base

	mu       sync.Mutex
	lines    []string
	row, col int
	top      int
	left     int
	tabWidth int
	pageRows int
	onEdit   func()
}

// NewText returns an empty text view.
func NewText() *Text {
	return &Text{
		Base:     widget.NewBase(),
		lines:    []string{""},
		tabWidth: DefaultTabWidth,
	}
}

// SetTabWidth sets the tab expansion width. Values below 1 are ignored.
func (t *Text) SetTabWidth(w int) {
	if w < 1 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tabWidth = w
}

// SetEditHook registers fn to run after every content-changing key. The
// delegate wires this to the document dirty flag.
func (t *Text) SetEditHook(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEdit = fn
}

// SetContent replaces the buffer and resets the cursor. It does not count
// as an edit.
func (t *Text) SetContent(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = strings.Split(s, "\n")
	t.row, t.col, t.top, t.left = 0, 0, 0, 0
}

// Content serializes the buffer, joining lines with newlines.
func (t *Text) Content() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

// LineCount returns the number of buffer lines.
func (t *Text) LineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines)
}

// Position returns the cursor's line and column, both zero-based and
// rune-indexed.
func (t *Text) Position() (row, col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.row, t.col
}

// JumpTo moves the cursor to the start of the given line, clamped to the
// buffer.
func (t *Text) JumpTo(line int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if line < 0 {
		line = 0
	}
	if line >= len(t.lines) {
		line = len(t.lines) - 1
	}
	t.row, t.col = line, 0
}

// HandleKey implements View.
func (t *Text) HandleKey(ev *tcell.EventKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Key() {
	case tcell.KeyRune:
		t.insertRuneLocked(ev.Rune())
	case tcell.KeyTab:
		t.insertRuneLocked('\t')
	case tcell.KeyEnter:
		t.newlineLocked()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		t.backspaceLocked()
	case tcell.KeyDelete:
		t.deleteLocked()
	case tcell.KeyUp:
		t.moveLocked(-1)
	case tcell.KeyDown:
		t.moveLocked(1)
	case tcell.KeyLeft:
		t.leftLocked()
	case tcell.KeyRight:
		t.rightLocked()
	case tcell.KeyHome:
		t.col = 0
	case tcell.KeyEnd:
		t.col = t.lineLenLocked(t.row)
	case tcell.KeyPgUp:
		t.moveLocked(-t.pageLocked())
	case tcell.KeyPgDn:
		t.moveLocked(t.pageLocked())
	default:
		return false
	}
	return true
}

// Render implements View. It scrolls the viewport so the cursor stays
// visible, then draws the visible lines with tabs expanded.
func (t *Text) Render(s Surface, r Region) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	t.pageRows = r.Height
	t.scrollLocked(r)

	style := tcell.StyleDefault
	for y := 0; y < r.Height; y++ {
		idx := t.top + y
		if idx >= len(t.lines) {
			break
		}
		cells := expandTabs(t.lines[idx], t.tabWidth)
		for x := 0; x < r.Width; x++ {
			src := t.left + x
			if src >= len(cells) {
				break
			}
			s.SetCell(r.X+x, r.Y+y, cells[src], style)
		}
	}
}

// Cursor implements View.
func (t *Text) Cursor(r Region) (int, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	x := t.screenColLocked() - t.left
	y := t.row - t.top
	if x < 0 || x >= r.Width || y < 0 || y >= r.Height {
		return 0, 0, false
	}
	return r.X + x, r.Y + y, true
}

// Status implements View.
func (t *Text) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("Ln %d, Col %d", t.row+1, t.col+1)
}

func (t *Text) insertRuneLocked(r rune) {
	line := []rune(t.lines[t.row])
	out := make([]rune, 0, len(line)+1)
	out = append(out, line[:t.col]...)
	out = append(out, r)
	out = append(out, line[t.col:]...)
	t.lines[t.row] = string(out)
	t.col++
	t.editedLocked()
}

func (t *Text) newlineLocked() {
	line := []rune(t.lines[t.row])
	head, tail := string(line[:t.col]), string(line[t.col:])
	t.lines[t.row] = head
	rest := append([]string{tail}, t.lines[t.row+1:]...)
	t.lines = append(t.lines[:t.row+1], rest...)
	t.row++
	t.col = 0
	t.editedLocked()
}

func (t *Text) backspaceLocked() {
	switch {
	case t.col > 0:
		line := []rune(t.lines[t.row])
		t.lines[t.row] = string(line[:t.col-1]) + string(line[t.col:])
		t.col--
	case t.row > 0:
		prev := t.lines[t.row-1]
		t.col = len([]rune(prev))
		t.lines[t.row-1] = prev + t.lines[t.row]
		t.lines = append(t.lines[:t.row], t.lines[t.row+1:]...)
		t.row--
	default:
		return
	}
	t.editedLocked()
}

func (t *Text) deleteLocked() {
	line := []rune(t.lines[t.row])
	switch {
	case t.col < len(line):
		t.lines[t.row] = string(line[:t.col]) + string(line[t.col+1:])
	case t.row < len(t.lines)-1:
		t.lines[t.row] += t.lines[t.row+1]
		t.lines = append(t.lines[:t.row+1], t.lines[t.row+2:]...)
	default:
		return
	}
	t.editedLocked()
}

func (t *Text) moveLocked(delta int) {
	t.row += delta
	if t.row < 0 {
		t.row = 0
	}
	if t.row > len(t.lines)-1 {
		t.row = len(t.lines) - 1
	}
	if n := t.lineLenLocked(t.row); t.col > n {
		t.col = n
	}
}

func (t *Text) leftLocked() {
	if t.col > 0 {
		t.col--
		return
	}
	if t.row > 0 {
		t.row--
		t.col = t.lineLenLocked(t.row)
	}
}

func (t *Text) rightLocked() {
	if t.col < t.lineLenLocked(t.row) {
		t.col++
		return
	}
	if t.row < len(t.lines)-1 {
		t.row++
		t.col = 0
	}
}

func (t *Text) lineLenLocked(row int) int {
	return len([]rune(t.lines[row]))
}

func (t *Text) pageLocked() int {
	if t.pageRows > 1 {
		return t.pageRows - 1
	}
	return 1
}

func (t *Text) scrollLocked(r Region) {
	if t.row < t.top {
		t.top = t.row
	}
	if t.row >= t.top+r.Height {
		t.top = t.row - r.Height + 1
	}
	sc := t.screenColLocked()
	if sc < t.left {
		t.left = sc
	}
	if sc >= t.left+r.Width {
		t.left = sc - r.Width + 1
	}
}

func (t *Text) screenColLocked() int {
	line := []rune(t.lines[t.row])
	return len(expandTabs(string(line[:t.col]), t.tabWidth))
}

func (t *Text) editedLocked() {
	if t.onEdit != nil {
		t.onEdit()
	}
}

// expandTabs converts a line to screen cells, expanding tabs to the next
// tab stop.
func expandTabs(line string, tab int) []rune {
	out := make([]rune, 0, len(line))
	for _, r := range line {
		if r != '\t' {
			out = append(out, r)
			continue
		}
		for {
			out = append(out, ' ')
			if len(out)%tab == 0 {
				break
			}
		}
	}
	return out
}

// TextDelegate builds and serializes Text views for a document handler.
type TextDelegate struct {
	// MarkDirty is called when a view's content changes. Wire it to the
	// handler's SetDirty once the handler exists.
	MarkDirty func(View)

	// TabWidth overrides the default tab expansion when positive.
	TabWidth int
}

// CreateWidget implements document.Delegate.
func (d *TextDelegate) CreateWidget(m *contents.Model) (View, error) {
	v := NewText()
	if d.TabWidth > 0 {
		v.SetTabWidth(d.TabWidth)
	}
	v.SetEditHook(func() {
		if d.MarkDirty != nil {
			d.MarkDirty(v)
		}
	})
	return v, nil
}

// Populate implements document.Delegate.
func (d *TextDelegate) Populate(w View, m *contents.Model) error {
	v, ok := w.(*Text)
	if !ok {
		return ErrWrongView
	}
	s, err := textContent(m)
	if err != nil {
		return err
	}
	v.SetContent(s)
	return nil
}

// SaveOptions implements document.Delegate.
func (d *TextDelegate) SaveOptions(w View, m *contents.Model) (contents.SaveOptions, error) {
	v, ok := w.(*Text)
	if !ok {
		return contents.SaveOptions{}, ErrWrongView
	}
	return contents.SaveOptions{
		Type:    contents.TypeFile,
		Format:  contents.FormatText,
		Content: v.Content(),
	}, nil
}

func textContent(m *contents.Model) (string, error) {
	if m.Format == contents.FormatBase64 {
		return "", ErrBinaryContent
	}
	return m.Content, nil
}
