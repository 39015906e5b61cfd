package docview

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/quirelabs/quire/internal/contents"
)

// Markdown is a text view for markdown documents. It understands YAML front
// matter and can extract a heading outline for navigation.
type Markdown struct {
	*Text
}

// NewMarkdown returns an empty markdown view.
func NewMarkdown() *Markdown {
	return &Markdown{Text: NewText()}
}

// Heading is one entry of a document outline.
type Heading struct {
	// Level is the heading depth, 1 through 6.
	Level int

	// Text is the flattened heading text.
	Text string

	// Line is the zero-based buffer line the heading starts on.
	Line int
}

// Outline parses the current buffer and returns its headings in document
// order.
func (m *Markdown) Outline() []Heading {
	return ExtractOutline(m.Content())
}

// FrontMatter returns the parsed YAML front matter, if the buffer starts
// with a fenced block.
func (m *Markdown) FrontMatter() (map[string]any, bool) {
	return ParseFrontMatter(m.Content())
}

// ParseFrontMatter reads a leading "---" fenced YAML block. Malformed YAML
// reports false.
func ParseFrontMatter(src string) (map[string]any, bool) {
	block, _, ok := splitFrontMatter(src)
	if !ok {
		return nil, false
	}
	meta := make(map[string]any)
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, false
	}
	return meta, true
}

// FrontMatterTitle returns the front matter title field, or "" when absent.
func FrontMatterTitle(src string) string {
	meta, ok := ParseFrontMatter(src)
	if !ok {
		return ""
	}
	if title, ok := meta["title"].(string); ok {
		return strings.TrimSpace(title)
	}
	return ""
}

func splitFrontMatter(src string) (block, body string, ok bool) {
	if !strings.HasPrefix(src, "---\n") {
		return "", src, false
	}
	rest := src[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", src, false
	}
	after := rest[end+len("\n---"):]
	if after != "" && !strings.HasPrefix(after, "\n") {
		return "", src, false
	}
	return rest[:end], strings.TrimPrefix(after, "\n"), true
}

// ExtractOutline parses markdown and returns its headings. Front matter is
// parsed out first so its fences are not mistaken for setext headings; line
// numbers still refer to the full buffer.
func ExtractOutline(src string) []Heading {
	lineOffset := 0
	if block, body, ok := splitFrontMatter(src); ok {
		lineOffset = strings.Count(block, "\n") + 3
		src = body
	}

	data := []byte(src)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(data))

	var out []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		line := lineOffset
		if h.Lines().Len() > 0 {
			line += strings.Count(src[:h.Lines().At(0).Start], "\n")
		}
		out = append(out, Heading{
			Level: h.Level,
			Text:  flattenText(h, data),
			Line:  line,
		})
		return ast.WalkSkipChildren, nil
	})
	return out
}

func flattenText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
			continue
		}
		b.WriteString(flattenText(c, src))
	}
	return b.String()
}

// MarkdownDelegate builds Markdown views. The tab title prefers the front
// matter title over the file name.
type MarkdownDelegate struct {
	// MarkDirty is called when a view's content changes.
	MarkDirty func(View)

	// TabWidth overrides the default tab expansion when positive.
	TabWidth int
}

// CreateWidget implements document.Delegate.
func (d *MarkdownDelegate) CreateWidget(m *contents.Model) (View, error) {
	v := NewMarkdown()
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

// Populate implements document.Delegate. A front matter title is applied to
// the widget title once content is in place.
func (d *MarkdownDelegate) Populate(w View, m *contents.Model) error {
	v, ok := w.(*Markdown)
	if !ok {
		return ErrWrongView
	}
	s, err := textContent(m)
	if err != nil {
		return err
	}
	v.SetContent(s)
	if title := FrontMatterTitle(s); title != "" {
		v.Title().SetText(title)
	}
	return nil
}

// SaveOptions implements document.Delegate.
func (d *MarkdownDelegate) SaveOptions(w View, m *contents.Model) (contents.SaveOptions, error) {
	v, ok := w.(*Markdown)
	if !ok {
		return contents.SaveOptions{}, ErrWrongView
	}
	return contents.SaveOptions{
		Type:    contents.TypeFile,
		Format:  contents.FormatText,
		Content: v.Content(),
	}, nil
}

// WidgetTitle implements document.TitleProvider.
func (d *MarkdownDelegate) WidgetTitle(m *contents.Model) string {
	if title := FrontMatterTitle(m.Content); title != "" {
		return title
	}
	return m.Name
}
