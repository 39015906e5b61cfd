package docview

import (
	"testing"

	"github.com/quirelabs/quire/internal/contents"
)

const fencedDoc = `---
title: Release Notes
tags: [a, b]
---
intro text

# Overview

## Details
`

func TestParseFrontMatter(t *testing.T) {
	meta, ok := ParseFrontMatter(fencedDoc)
	if !ok {
		t.Fatal("front matter should parse")
	}
	if got := meta["title"]; got != "Release Notes" {
		t.Errorf("title = %v, want Release Notes", got)
	}

	if _, ok := ParseFrontMatter("no fences here"); ok {
		t.Error("plain text should have no front matter")
	}
	if _, ok := ParseFrontMatter("---\nunclosed: true\n"); ok {
		t.Error("unclosed fence should not parse")
	}
	if _, ok := ParseFrontMatter("---\n\t: bad yaml [\n---\n"); ok {
		t.Error("malformed YAML should report false")
	}
}

func TestFrontMatterTitle(t *testing.T) {
	if got := FrontMatterTitle(fencedDoc); got != "Release Notes" {
		t.Errorf("title = %q, want %q", got, "Release Notes")
	}
	if got := FrontMatterTitle("# Heading only\n"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
	if got := FrontMatterTitle("---\ncount: 3\n---\n"); got != "" {
		t.Errorf("non-string title = %q, want empty", got)
	}
}

func TestExtractOutline(t *testing.T) {
	headings := ExtractOutline(fencedDoc)
	if len(headings) != 2 {
		t.Fatalf("headings = %d, want 2", len(headings))
	}
	if headings[0].Level != 1 || headings[0].Text != "Overview" {
		t.Errorf("first = %+v", headings[0])
	}
	if headings[1].Level != 2 || headings[1].Text != "Details" {
		t.Errorf("second = %+v", headings[1])
	}

	// Lines are buffer lines: fences on 0 and 3, intro on 4, Overview on 6.
	if headings[0].Line != 6 {
		t.Errorf("Overview line = %d, want 6", headings[0].Line)
	}
	if headings[1].Line != 8 {
		t.Errorf("Details line = %d, want 8", headings[1].Line)
	}
}

func TestExtractOutline_NoFrontMatter(t *testing.T) {
	headings := ExtractOutline("# A\n\ntext\n\n## B\n")
	if len(headings) != 2 {
		t.Fatalf("headings = %d, want 2", len(headings))
	}
	if headings[0].Line != 0 || headings[1].Line != 4 {
		t.Errorf("lines = %d,%d, want 0,4", headings[0].Line, headings[1].Line)
	}
}

func TestExtractOutline_FenceIsNotAHeading(t *testing.T) {
	// Without special handling the closing fence under "title: x" would
	// parse as a setext heading.
	headings := ExtractOutline("---\ntitle: x\n---\nbody\n")
	if len(headings) != 0 {
		t.Errorf("headings = %v, want none", headings)
	}
}

func TestMarkdown_Outline(t *testing.T) {
	v := NewMarkdown()
	v.SetContent(fencedDoc)

	headings := v.Outline()
	if len(headings) != 2 {
		t.Fatalf("headings = %d, want 2", len(headings))
	}
	v.JumpTo(headings[1].Line)
	if row, _ := v.Position(); row != 8 {
		t.Errorf("row = %d, want 8", row)
	}

	meta, ok := v.FrontMatter()
	if !ok || meta["title"] != "Release Notes" {
		t.Errorf("front matter = %v, %v", meta, ok)
	}
}

func TestMarkdownDelegate_TitleFromFrontMatter(t *testing.T) {
	d := &MarkdownDelegate{}
	w, err := d.CreateWidget(&contents.Model{Name: "notes.md"})
	if err != nil {
		t.Fatalf("CreateWidget: %v", err)
	}

	model := &contents.Model{
		Name:    "notes.md",
		Format:  contents.FormatText,
		Content: fencedDoc,
	}
	if err := d.Populate(w, model); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if got := w.Title().Text(); got != "Release Notes" {
		t.Errorf("title = %q, want %q", got, "Release Notes")
	}

	if got := d.WidgetTitle(model); got != "Release Notes" {
		t.Errorf("WidgetTitle = %q, want %q", got, "Release Notes")
	}
	if got := d.WidgetTitle(&contents.Model{Name: "bare.md"}); got != "bare.md" {
		t.Errorf("WidgetTitle fallback = %q, want %q", got, "bare.md")
	}
}

func TestMarkdownDelegate_RoundTrip(t *testing.T) {
	d := &MarkdownDelegate{}
	w, err := d.CreateWidget(&contents.Model{Name: "n.md"})
	if err != nil {
		t.Fatalf("CreateWidget: %v", err)
	}
	model := &contents.Model{Format: contents.FormatText, Content: "# A\n"}
	if err := d.Populate(w, model); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	opts, err := d.SaveOptions(w, model)
	if err != nil {
		t.Fatalf("SaveOptions: %v", err)
	}
	if opts.Content != "# A\n" {
		t.Errorf("content = %q", opts.Content)
	}

	// A Text widget is not a Markdown widget.
	if err := d.Populate(NewText(), model); err != ErrWrongView {
		t.Errorf("Populate wrong view: got %v, want ErrWrongView", err)
	}
}
