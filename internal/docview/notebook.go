package docview

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/widget"
)

var (
	styleCellHeader   = tcell.StyleDefault.Bold(true)
	styleCellSelected = tcell.StyleDefault.Reverse(true)
)

// Cell is one notebook cell, summarized for display.
type Cell struct {
	// Type is the cell_type field: code, markdown or raw.
	Type string

	// Source is the joined cell source.
	Source string

	// ExecutionCount is the code cell counter, -1 when never executed.
	ExecutionCount int

	// Outputs is the number of attached outputs.
	Outputs int
}

// Notebook is a read-only cell list over a v4 notebook document. The only
// edits are structural: clearing outputs and resetting execution counts,
// which patch the underlying JSON and count as content changes.
type Notebook struct {
	*widget.Base

	mu       sync.Mutex
	raw      string
	cells    []Cell
	sel      int
	top      int
	pageRows int
	onEdit   func()
}

// NewNotebook returns an empty notebook view.
func NewNotebook() *Notebook {
	return &Notebook{Base: widget.NewBase()}
}

// SetEditHook registers fn to run after every structural edit.
func (n *Notebook) SetEditHook(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onEdit = fn
}

// SetSource replaces the notebook JSON. Content that is not a v4 notebook
// returns ErrBadNotebook and leaves the view unchanged.
func (n *Notebook) SetSource(raw string) error {
	cells, err := parseCells(raw)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.raw = raw
	n.cells = cells
	n.sel, n.top = 0, 0
	return nil
}

// Source returns the current notebook JSON, including any patches.
func (n *Notebook) Source() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.raw
}

// Cells returns a copy of the parsed cell summaries.
func (n *Notebook) Cells() []Cell {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Cell(nil), n.cells...)
}

// Selected returns the index of the selected cell.
func (n *Notebook) Selected() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sel
}

// ClearOutputs drops the outputs of every code cell. A notebook with no
// outputs is left untouched.
func (n *Notebook) ClearOutputs() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	raw := n.raw
	changed := false
	for i, c := range gjson.Get(raw, "cells").Array() {
		if c.Get("cell_type").String() != "code" || c.Get("outputs.#").Int() == 0 {
			continue
		}
		var err error
		raw, err = sjson.Set(raw, fmt.Sprintf("cells.%d.outputs", i), []any{})
		if err != nil {
			return fmt.Errorf("clear outputs: %w", err)
		}
		changed = true
	}
	if changed {
		n.adoptLocked(raw)
	}
	return nil
}

// ResetExecutionCounts nulls the execution_count of every executed code
// cell.
func (n *Notebook) ResetExecutionCounts() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	raw := n.raw
	changed := false
	for i, c := range gjson.Get(raw, "cells").Array() {
		if c.Get("cell_type").String() != "code" || c.Get("execution_count").Type != gjson.Number {
			continue
		}
		var err error
		raw, err = sjson.Set(raw, fmt.Sprintf("cells.%d.execution_count", i), nil)
		if err != nil {
			return fmt.Errorf("reset execution counts: %w", err)
		}
		changed = true
	}
	if changed {
		n.adoptLocked(raw)
	}
	return nil
}

func (n *Notebook) adoptLocked(raw string) {
	n.raw = raw
	if cells, err := parseCells(raw); err == nil {
		n.cells = cells
	}
	if n.onEdit != nil {
		n.onEdit()
	}
}

// HandleKey implements View. Arrows move the cell selection.
func (n *Notebook) HandleKey(ev *tcell.EventKey) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.cells) == 0 {
		return false
	}
	switch ev.Key() {
	case tcell.KeyUp:
		if n.sel > 0 {
			n.sel--
		}
	case tcell.KeyDown:
		if n.sel < len(n.cells)-1 {
			n.sel++
		}
	case tcell.KeyHome:
		n.sel = 0
	case tcell.KeyEnd:
		n.sel = len(n.cells) - 1
	default:
		return false
	}
	return true
}

// Render implements View.
func (n *Notebook) Render(s Surface, r Region) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	n.pageRows = r.Height

	type row struct {
		text  string
		style tcell.Style
	}
	var rows []row
	selStart := 0
	for i, c := range n.cells {
		if i == n.sel {
			selStart = len(rows)
		}
		style := styleCellHeader
		if i == n.sel {
			style = styleCellSelected
		}
		rows = append(rows, row{text: cellHeader(c), style: style})
		for _, line := range strings.Split(c.Source, "\n") {
			text := "  " + string(expandTabs(line, DefaultTabWidth))
			rows = append(rows, row{text: text, style: tcell.StyleDefault})
		}
		rows = append(rows, row{})
	}
	if len(rows) == 0 {
		rows = append(rows, row{text: "(empty notebook)", style: tcell.StyleDefault.Dim(true)})
	}

	if selStart < n.top {
		n.top = selStart
	}
	if selStart >= n.top+r.Height {
		n.top = selStart - r.Height + 1
	}
	if max := len(rows) - r.Height; n.top > max {
		n.top = max
	}
	if n.top < 0 {
		n.top = 0
	}

	for y := 0; y < r.Height; y++ {
		idx := n.top + y
		if idx >= len(rows) {
			break
		}
		DrawString(s, r.X, r.Y+y, r.Width, rows[idx].text, rows[idx].style)
	}
}

// Cursor implements View. Notebooks show no cursor.
func (n *Notebook) Cursor(r Region) (int, int, bool) {
	return 0, 0, false
}

// Status implements View.
func (n *Notebook) Status() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.cells) == 0 {
		return "empty"
	}
	return fmt.Sprintf("cell %d/%d", n.sel+1, len(n.cells))
}

func cellHeader(c Cell) string {
	if c.Type != "code" {
		return "[" + c.Type + "]"
	}
	count := " "
	if c.ExecutionCount >= 0 {
		count = fmt.Sprintf("%d", c.ExecutionCount)
	}
	h := fmt.Sprintf("In [%s]:", count)
	switch {
	case c.Outputs == 1:
		h += " (1 output)"
	case c.Outputs > 1:
		h += fmt.Sprintf(" (%d outputs)", c.Outputs)
	}
	return h
}

func parseCells(raw string) ([]Cell, error) {
	if !gjson.Valid(raw) {
		return nil, ErrBadNotebook
	}
	version := gjson.Get(raw, "nbformat")
	if !version.Exists() || version.Int() < 4 {
		return nil, ErrBadNotebook
	}
	var cells []Cell
	for _, c := range gjson.Get(raw, "cells").Array() {
		cell := Cell{
			Type:           c.Get("cell_type").String(),
			ExecutionCount: -1,
		}
		src := c.Get("source")
		if src.IsArray() {
			var b strings.Builder
			for _, part := range src.Array() {
				b.WriteString(part.String())
			}
			cell.Source = strings.TrimSuffix(b.String(), "\n")
		} else {
			cell.Source = src.String()
		}
		if ec := c.Get("execution_count"); ec.Type == gjson.Number {
			cell.ExecutionCount = int(ec.Int())
		}
		cell.Outputs = int(c.Get("outputs.#").Int())
		cells = append(cells, cell)
	}
	return cells, nil
}

// NotebookDelegate builds Notebook views. Content is fetched as notebook
// JSON rather than the plain-text default.
type NotebookDelegate struct {
	// MarkDirty is called when a view's content changes.
	MarkDirty func(View)
}

// CreateWidget implements document.Delegate.
func (d *NotebookDelegate) CreateWidget(m *contents.Model) (View, error) {
	v := NewNotebook()
	v.SetEditHook(func() {
		if d.MarkDirty != nil {
			d.MarkDirty(v)
		}
	})
	return v, nil
}

// Populate implements document.Delegate.
func (d *NotebookDelegate) Populate(w View, m *contents.Model) error {
	v, ok := w.(*Notebook)
	if !ok {
		return ErrWrongView
	}
	if m.Content == "" {
		return nil
	}
	return v.SetSource(m.Content)
}

// SaveOptions implements document.Delegate.
func (d *NotebookDelegate) SaveOptions(w View, m *contents.Model) (contents.SaveOptions, error) {
	v, ok := w.(*Notebook)
	if !ok {
		return contents.SaveOptions{}, ErrWrongView
	}
	raw := v.Source()
	if raw == "" {
		return contents.SaveOptions{}, ErrBadNotebook
	}
	return contents.SaveOptions{
		Type:    contents.TypeNotebook,
		Format:  contents.FormatJSON,
		Content: raw,
	}, nil
}

// FetchOptions implements document.FetchOptionsProvider.
func (d *NotebookDelegate) FetchOptions(path string) contents.FetchOptions {
	return contents.FetchOptions{
		Type:           contents.TypeNotebook,
		Format:         contents.FormatJSON,
		IncludeContent: true,
	}
}
