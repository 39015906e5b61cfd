package shell

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/quirelabs/quire/internal/dialog"
)

// showAsync runs the modal on its own goroutine so the test can feed keys
// through the simulation screen.
func showAsync(s *Shell, opts dialog.Options) (<-chan dialog.Result, <-chan error) {
	results := make(chan dialog.Result, 1)
	errs := make(chan error, 1)
	go func() {
		res, err := modal{shell: s}.Show(context.Background(), opts)
		results <- res
		errs <- err
	}()
	return results, errs
}

func awaitResult(t *testing.T, results <-chan dialog.Result) dialog.Result {
	t.Helper()
	select {
	case res := <-results:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("dialog did not answer")
		return dialog.Result{}
	}
}

func TestModal_AcceptWithY(t *testing.T) {
	s, _, sim := newTestShell(t, nil)
	opts := dialog.Options{Title: "Close without saving?", Body: "File has unsaved changes.", Accept: "Close"}

	results, errs := showAsync(s, opts)
	sim.InjectKey(tcell.KeyRune, 'y', tcell.ModNone)

	res := awaitResult(t, results)
	if err := <-errs; err != nil {
		t.Fatalf("Show: %v", err)
	}
	if !res.Accepted(opts) {
		t.Errorf("result = %q, want accepted", res.Text)
	}
}

func TestModal_DismissWithEscape(t *testing.T) {
	s, _, sim := newTestShell(t, nil)
	opts := dialog.Options{Title: "Close?", Body: "Sure?"}

	results, errs := showAsync(s, opts)
	sim.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	res := awaitResult(t, results)
	if err := <-errs; err != nil {
		t.Fatalf("Show: %v", err)
	}
	if res.Accepted(opts) {
		t.Errorf("result = %q, want dismissed", res.Text)
	}
	if res.Text != dialog.DefaultDismiss {
		t.Errorf("result = %q, want %q", res.Text, dialog.DefaultDismiss)
	}
}

func TestModal_ArrowSelectsAccept(t *testing.T) {
	s, _, sim := newTestShell(t, nil)
	opts := dialog.Options{Title: "Close?", Body: "Sure?"}

	results, errs := showAsync(s, opts)
	sim.InjectKey(tcell.KeyRight, 0, tcell.ModNone)
	sim.InjectKey(tcell.KeyEnter, '\r', tcell.ModNone)

	res := awaitResult(t, results)
	if err := <-errs; err != nil {
		t.Fatalf("Show: %v", err)
	}
	if !res.Accepted(opts) {
		t.Errorf("result = %q, want accepted", res.Text)
	}
}

func TestModal_PlainEnterDismisses(t *testing.T) {
	s, _, sim := newTestShell(t, nil)
	opts := dialog.Options{Title: "Close?", Body: "Sure?"}

	results, errs := showAsync(s, opts)
	sim.InjectKey(tcell.KeyEnter, '\r', tcell.ModNone)

	res := awaitResult(t, results)
	if err := <-errs; err != nil {
		t.Fatalf("Show: %v", err)
	}
	if res.Accepted(opts) {
		t.Errorf("result = %q, want dismissed", res.Text)
	}
}

func TestModal_CancelledContext(t *testing.T) {
	s, _, _ := newTestShell(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := modal{shell: s}.Show(ctx, dialog.Options{Title: "Close?"})
	if err == nil {
		t.Fatal("cancelled context should fail the prompt")
	}
}
