package shell

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/dialog"
)

func newTestShell(t *testing.T, mutate func(*Options)) (*Shell, *contents.Memory, tcell.SimulationScreen) {
	t.Helper()
	mem := contents.NewMemory().
		Seed("a.txt", "alpha").
		Seed("notes/plan.md", "# Plan\n").
		Seed("notes/meta.md", "# Meta\n")

	sim := tcell.NewSimulationScreen("UTF-8")
	if err := sim.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	sim.SetSize(80, 24)

	opts := Options{
		Manager: mem,
		Screen:  sim,
		Dialog:  dialog.Accept(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, mem, sim
}

func keyEvent(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeEvent(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func typeText(ctx context.Context, s *Shell, text string) {
	for _, r := range text {
		s.handleKey(ctx, runeEvent(r))
	}
}

// simRow reads one row of the simulated screen as a string.
func simRow(t *testing.T, sim tcell.SimulationScreen, y int) string {
	t.Helper()
	cells, w, _ := sim.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) > 0 {
			b.WriteRune(c.Runes[0])
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNilManager) {
		t.Errorf("no manager: got %v, want ErrNilManager", err)
	}
}

func TestOpenPathRoutesByExtension(t *testing.T) {
	s, mem, _ := newTestShell(t, nil)
	mem.Seed("run.ipynb", `{"cells":[],"metadata":{},"nbformat":4,"nbformat_minor":5}`)
	ctx := context.Background()

	for _, path := range []string{"a.txt", "notes/plan.md", "run.ipynb"} {
		if err := s.openPath(ctx, path); err != nil {
			t.Fatalf("openPath %s: %v", path, err)
		}
	}

	wantKinds := []string{"text", "markdown", "notebook"}
	if len(s.tabs) != 3 {
		t.Fatalf("tabs = %d, want 3", len(s.tabs))
	}
	for i, want := range wantKinds {
		if s.tabs[i].kind != want {
			t.Errorf("tab %d kind = %s, want %s", i, s.tabs[i].kind, want)
		}
	}
	if s.active != 2 {
		t.Errorf("active = %d, want 2", s.active)
	}
	if got := s.Paths(); got[0] != "a.txt" || got[1] != "notes/plan.md" {
		t.Errorf("Paths = %v", got)
	}
}

func TestOpenPathActivatesExisting(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	if err := s.openPath(ctx, "a.txt"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	if err := s.openPath(ctx, "notes/plan.md"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	if err := s.openPath(ctx, "a.txt"); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if len(s.tabs) != 2 {
		t.Fatalf("tabs = %d, want 2", len(s.tabs))
	}
	if s.active != 0 {
		t.Errorf("active = %d, want 0", s.active)
	}
}

func TestOpenPathMissingLeavesNoWidget(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	err := s.openPath(ctx, "ghost.txt")
	if !errors.Is(err, contents.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if len(s.tabs) != 0 {
		t.Errorf("tabs = %d, want 0", len(s.tabs))
	}
	h, err := s.registry.Handler("text")
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("handler still tracks %d widgets", h.Len())
	}
}

func TestOpenPathHidden(t *testing.T) {
	s, mem, _ := newTestShell(t, nil)
	mem.Seed(".secrets", "hush")
	ctx := context.Background()

	if err := s.openPath(ctx, ".secrets"); !errors.Is(err, ErrHiddenPath) {
		t.Fatalf("got %v, want ErrHiddenPath", err)
	}

	open, openMem, _ := newTestShell(t, func(o *Options) { o.ShowHidden = true })
	openMem.Seed(".secrets", "hush")
	if err := open.openPath(ctx, ".secrets"); err != nil {
		t.Fatalf("openPath with ShowHidden: %v", err)
	}
	if len(open.tabs) != 1 {
		t.Errorf("tabs = %d, want 1", len(open.tabs))
	}
}

func TestEditMarksDirtyAndSaves(t *testing.T) {
	s, mem, _ := newTestShell(t, nil)
	ctx := context.Background()

	if err := s.openPath(ctx, "a.txt"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	tab := s.activeTab()

	typeText(ctx, s, "hi")
	if !tab.handler.IsDirty("a.txt") {
		t.Fatal("typing should mark the document dirty")
	}
	if label := s.tabLabel(tab); !strings.HasSuffix(label, "*") {
		t.Errorf("tab label = %q, want dirty star", label)
	}

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlS))

	if tab.handler.IsDirty("a.txt") {
		t.Error("save should clear the dirty flag")
	}
	model, err := mem.Get(ctx, "a.txt", contents.DefaultFetchOptions())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if model.Content != "hialpha" {
		t.Errorf("saved content = %q, want %q", model.Content, "hialpha")
	}
	if msg := s.currentMessage(); msg != "saved a.txt" {
		t.Errorf("message = %q, want %q", msg, "saved a.txt")
	}
}

func TestRevertKeyRestoresContent(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	if err := s.openPath(ctx, "a.txt"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	typeText(ctx, s, "junk")
	s.handleKey(ctx, keyEvent(tcell.KeyCtrlR))

	tab := s.activeTab()
	if tab.handler.IsDirty("a.txt") {
		t.Error("revert should clear the dirty flag")
	}
	if msg := s.currentMessage(); msg != "reverted a.txt" {
		t.Errorf("message = %q, want %q", msg, "reverted a.txt")
	}
}

func TestCloseDirtyPrompts(t *testing.T) {
	rec := &dialog.Recorder{Answers: []bool{false, true}}
	s, _, _ := newTestShell(t, func(o *Options) { o.Dialog = rec })
	ctx := context.Background()

	if err := s.openPath(ctx, "a.txt"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	typeText(ctx, s, "x")

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlW))
	if len(s.tabs) != 1 {
		t.Fatal("declined close should keep the tab")
	}

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlW))
	if len(s.tabs) != 0 {
		t.Fatal("accepted close should drop the tab")
	}
	if len(rec.Prompts) != 2 {
		t.Errorf("prompts = %d, want 2", len(rec.Prompts))
	}
}

func TestQuitKeyClosesAll(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	if err := s.openPath(ctx, "a.txt"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	if err := s.openPath(ctx, "notes/plan.md"); err != nil {
		t.Fatalf("openPath: %v", err)
	}

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlQ))
	if len(s.tabs) != 0 {
		t.Errorf("tabs = %d, want 0", len(s.tabs))
	}
	if !s.quit {
		t.Error("quit should be requested once nothing is open")
	}
}

func TestQuitKeyKeepsDeclinedDocuments(t *testing.T) {
	s, _, _ := newTestShell(t, func(o *Options) { o.Dialog = dialog.Decline() })
	ctx := context.Background()

	if err := s.openPath(ctx, "a.txt"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	typeText(ctx, s, "x")

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlQ))
	if len(s.tabs) != 1 {
		t.Errorf("tabs = %d, want 1", len(s.tabs))
	}
	if s.quit {
		t.Error("shell should stay alive while documents are kept open")
	}
	if msg := s.currentMessage(); !strings.Contains(msg, "kept open") {
		t.Errorf("message = %q", msg)
	}
}

func TestRenamePromptFlow(t *testing.T) {
	s, mem, _ := newTestShell(t, nil)
	ctx := context.Background()

	if err := s.openPath(ctx, "notes/plan.md"); err != nil {
		t.Fatalf("openPath: %v", err)
	}

	s.handleKey(ctx, keyEvent(tcell.KeyF2))
	if s.prompt == nil {
		t.Fatal("F2 should open the rename prompt")
	}
	if got := string(s.prompt.input); got != "notes/plan.md" {
		t.Errorf("prefill = %q", got)
	}

	s.handleKey(ctx, keyEvent(tcell.KeyCtrlU))
	typeText(ctx, s, "notes/final.md")
	s.handleKey(ctx, keyEvent(tcell.KeyEnter))

	if s.prompt != nil {
		t.Fatal("prompt should close on enter")
	}
	if _, err := mem.Get(ctx, "notes/final.md", contents.FetchOptions{}); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if _, err := mem.Get(ctx, "notes/plan.md", contents.FetchOptions{}); !errors.Is(err, contents.ErrNotFound) {
		t.Fatalf("old path still present: %v", err)
	}
	tab := s.activeTab()
	if tab.path != "notes/final.md" {
		t.Errorf("tab path = %s", tab.path)
	}
	if tab.kind != "markdown" {
		t.Errorf("tab kind = %s, want markdown", tab.kind)
	}
}

func TestRenameToOpenPathRefused(t *testing.T) {
	s, mem, _ := newTestShell(t, nil)
	ctx := context.Background()

	if err := s.openPath(ctx, "notes/plan.md"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	if err := s.openPath(ctx, "notes/meta.md"); err != nil {
		t.Fatalf("openPath: %v", err)
	}

	s.handleKey(ctx, keyEvent(tcell.KeyF2))
	s.handleKey(ctx, keyEvent(tcell.KeyCtrlU))
	typeText(ctx, s, "notes/plan.md")
	s.handleKey(ctx, keyEvent(tcell.KeyEnter))

	if msg := s.currentMessage(); !strings.Contains(msg, "already open") {
		t.Errorf("message = %q, want a refusal", msg)
	}
	if _, err := mem.Get(ctx, "notes/meta.md", contents.FetchOptions{}); err != nil {
		t.Fatalf("refused rename should leave the file alone: %v", err)
	}
	if got := s.Paths(); got[1] != "notes/meta.md" {
		t.Errorf("Paths = %v", got)
	}
}

func TestRenameEmptyInputDeletes(t *testing.T) {
	s, mem, _ := newTestShell(t, nil)
	ctx := context.Background()

	if err := s.openPath(ctx, "a.txt"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	typeText(ctx, s, "almost lost")

	s.handleKey(ctx, keyEvent(tcell.KeyF2))
	s.handleKey(ctx, keyEvent(tcell.KeyCtrlU))
	s.handleKey(ctx, keyEvent(tcell.KeyEnter))

	if len(s.tabs) != 0 {
		t.Errorf("tabs = %d, want 0", len(s.tabs))
	}
	if _, err := mem.Get(ctx, "a.txt", contents.FetchOptions{}); !errors.Is(err, contents.ErrNotFound) {
		t.Fatalf("file should be gone: %v", err)
	}
	if msg := s.currentMessage(); msg != "deleted a.txt" {
		t.Errorf("message = %q", msg)
	}
}

func TestTabCycling(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	for _, p := range []string{"a.txt", "notes/plan.md", "notes/meta.md"} {
		if err := s.openPath(ctx, p); err != nil {
			t.Fatalf("openPath %s: %v", p, err)
		}
	}

	if s.active != 2 {
		t.Fatalf("active = %d, want 2", s.active)
	}
	s.handleKey(ctx, keyEvent(tcell.KeyCtrlL))
	if s.active != 0 {
		t.Errorf("ctrl-l should wrap to 0, got %d", s.active)
	}
	s.handleKey(ctx, keyEvent(tcell.KeyCtrlH))
	if s.active != 2 {
		t.Errorf("ctrl-h should wrap back to 2, got %d", s.active)
	}
}

func TestOpenByPathSuggestsNearMiss(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx := context.Background()

	s.openByPath(ctx, "notes/plon.md")

	msg := s.currentMessage()
	if !strings.Contains(msg, `did you mean "notes/plan.md"`) {
		t.Errorf("message = %q, want a suggestion", msg)
	}
	if len(s.tabs) != 0 {
		t.Errorf("tabs = %d, want 0", len(s.tabs))
	}
}

func TestRenderShowsTabsAndStatus(t *testing.T) {
	s, _, sim := newTestShell(t, nil)
	ctx := context.Background()

	if err := s.openPath(ctx, "notes/plan.md"); err != nil {
		t.Fatalf("openPath: %v", err)
	}
	typeText(ctx, s, "x")
	s.redraw()

	if row := simRow(t, sim, 0); !strings.Contains(row, "plan.md*") {
		t.Errorf("tab bar = %q, want dirty plan.md", row)
	}
	status := simRow(t, sim, 23)
	if !strings.Contains(status, "notes/plan.md") || !strings.Contains(status, "markdown") {
		t.Errorf("status = %q", status)
	}
	if !strings.Contains(status, "modified") {
		t.Errorf("status = %q, want modified flag", status)
	}
}

// newRunnableShell builds a shell whose screen Run itself initializes.
func newRunnableShell(t *testing.T) *Shell {
	t.Helper()
	mem := contents.NewMemory().Seed("a.txt", "alpha")
	s, err := New(Options{
		Manager: mem,
		Screen:  tcell.NewSimulationScreen("UTF-8"),
		Dialog:  dialog.Accept(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func waitRunning(t *testing.T, s *Shell) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !s.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("shell never started")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestShutdownStopsRun(t *testing.T) {
	s := newRunnableShell(t)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()
	waitRunning(t, s)
	s.Shutdown()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if s.IsRunning() {
		t.Error("IsRunning should report false after Run returns")
	}
}

func TestRunTwiceFails(t *testing.T) {
	s := newRunnableShell(t)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()
	waitRunning(t, s)

	if err := s.Run(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run: got %v, want ErrAlreadyRunning", err)
	}

	s.Shutdown()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
