package shell

import (
	"context"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestFilterPaths_EmptyQuery(t *testing.T) {
	paths := []string{"a.txt", "b.txt", "c.txt"}

	got := filterPaths("", paths, DefaultFilterConfig())
	if len(got) != 3 {
		t.Fatalf("matches = %d, want 3", len(got))
	}

	capped := filterPaths("", paths, FilterConfig{MinCoverage: 0.5, MaxSpread: 10, MaxResults: 2})
	if len(capped) != 2 {
		t.Errorf("capped matches = %d, want 2", len(capped))
	}
}

func TestFilterPaths_Fuzzy(t *testing.T) {
	paths := []string{
		"docs/readme.md",
		"notes/plan.md",
		"src/main.go",
	}

	got := filterPaths("plan", paths, DefaultFilterConfig())
	if len(got) == 0 {
		t.Fatal("no matches for plan")
	}
	if paths[got[0]] != "notes/plan.md" {
		t.Errorf("best match = %s, want notes/plan.md", paths[got[0]])
	}

	if got := filterPaths("zq9", paths, DefaultFilterConfig()); len(got) != 0 {
		t.Errorf("impossible query matched %d paths", len(got))
	}
}

func TestFilterPaths_CaseInsensitive(t *testing.T) {
	paths := []string{"Notes/Plan.md"}
	if got := filterPaths("PLAN", paths, DefaultFilterConfig()); len(got) != 1 {
		t.Errorf("matches = %d, want 1", len(got))
	}
}

func TestSuggest(t *testing.T) {
	paths := []string{"a.txt", "notes/plan.md", "notes/meta.md"}

	got, ok := suggest(paths, "notes/plon.md")
	if !ok || got != "notes/plan.md" {
		t.Errorf("suggest = %q, %v; want notes/plan.md", got, ok)
	}

	if got, ok := suggest(paths, "zzzzzzzzzzzz"); ok {
		t.Errorf("far miss suggested %q", got)
	}
	if _, ok := suggest(nil, "anything"); ok {
		t.Error("no candidates should suggest nothing")
	}
}

func TestPathIndex(t *testing.T) {
	s, mem, _ := newTestShell(t, nil)
	mem.Seed("notes/sub/deep.txt", "deep").Seed(".hidden", "no")
	ctx := context.Background()

	got, err := s.pathIndex(ctx)
	if err != nil {
		t.Fatalf("pathIndex: %v", err)
	}

	want := []string{"a.txt", "notes/meta.md", "notes/plan.md", "notes/sub/deep.txt"}
	if len(got) != len(want) {
		t.Fatalf("index = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPaletteOpensSelection(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlP))
	if s.palette == nil {
		t.Fatal("ctrl-p should open the palette")
	}
	if len(s.palette.matches) != 3 {
		t.Fatalf("initial matches = %d, want 3", len(s.palette.matches))
	}

	typeText(ctx, s, "plan")
	if len(s.palette.matches) == 0 {
		t.Fatal("no matches for plan")
	}
	s.handleKey(ctx, keyEvent(tcell.KeyEnter))

	if s.palette != nil {
		t.Fatal("palette should close on enter")
	}
	if len(s.tabs) != 1 || s.tabs[0].path != "notes/plan.md" {
		t.Fatalf("tabs = %v", s.Paths())
	}
}

func TestPaletteNavigationAndDismiss(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlP))
	p := s.palette

	s.handleKey(ctx, keyEvent(tcell.KeyDown))
	if p.sel != 1 {
		t.Errorf("sel = %d, want 1", p.sel)
	}
	s.handleKey(ctx, keyEvent(tcell.KeyUp))
	if p.sel != 0 {
		t.Errorf("sel = %d, want 0", p.sel)
	}

	s.handleKey(ctx, keyEvent(tcell.KeyEsc))
	if s.palette != nil {
		t.Error("escape should dismiss the palette")
	}
	if len(s.tabs) != 0 {
		t.Errorf("tabs = %d, want 0", len(s.tabs))
	}
}

func TestPaletteTogglesClosed(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlP))
	s.handleKey(ctx, keyEvent(tcell.KeyCtrlP))
	if s.palette != nil {
		t.Error("second ctrl-p should close the palette")
	}
}
