package dialog

import (
	"context"
	"errors"
	"testing"
)

func TestResult_Accepted(t *testing.T) {
	opts := Options{Accept: "Discard"}

	if !(Result{Text: "Discard"}).Accepted(opts) {
		t.Error("expected matching text to be accepted")
	}
	if (Result{Text: "Cancel"}).Accepted(opts) {
		t.Error("expected non-matching text to not be accepted")
	}

	// Default labels apply when options leave them empty
	if !(Result{Text: DefaultAccept}).Accepted(Options{}) {
		t.Error("expected default accept label to match")
	}
}

func TestAccept(t *testing.T) {
	opts := Options{Title: "Close", Accept: "Discard"}

	res, err := Accept().Show(context.Background(), opts)
	if err != nil {
		t.Fatalf("Show() failed: %v", err)
	}
	if !res.Accepted(opts) {
		t.Error("expected Accept dialog to accept")
	}
}

func TestDecline(t *testing.T) {
	opts := Options{Title: "Close"}

	res, err := Decline().Show(context.Background(), opts)
	if err != nil {
		t.Fatalf("Show() failed: %v", err)
	}
	if res.Accepted(opts) {
		t.Error("expected Decline dialog to decline")
	}
}

func TestFail(t *testing.T) {
	wantErr := errors.New("no terminal")

	_, err := Fail(wantErr).Show(context.Background(), Options{})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{Answers: []bool{true, false}}
	opts := Options{Title: "Close", Body: "Discard changes?"}

	res, err := rec.Show(context.Background(), opts)
	if err != nil {
		t.Fatalf("Show() failed: %v", err)
	}
	if !res.Accepted(opts) {
		t.Error("expected first scripted answer to accept")
	}

	res, _ = rec.Show(context.Background(), opts)
	if res.Accepted(opts) {
		t.Error("expected second scripted answer to decline")
	}

	// Exhausted answers decline
	res, _ = rec.Show(context.Background(), opts)
	if res.Accepted(opts) {
		t.Error("expected exhausted recorder to decline")
	}

	if len(rec.Prompts) != 3 {
		t.Errorf("expected 3 recorded prompts, got %d", len(rec.Prompts))
	}
	if rec.Prompts[0].Body != "Discard changes?" {
		t.Errorf("unexpected recorded prompt: %+v", rec.Prompts[0])
	}
}

func TestRecorder_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &Recorder{Answers: []bool{true}}
	_, err := rec.Show(ctx, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
