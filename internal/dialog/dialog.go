// Package dialog defines the confirmation prompt contract used by document
// lifecycle code. The shell provides the interactive implementation; this
// package carries the interface and scripted implementations for tests.
package dialog

import "context"

// Default button labels.
const (
	DefaultAccept  = "OK"
	DefaultDismiss = "Cancel"
)

// Options describes a confirmation prompt.
type Options struct {
	// Title is the prompt heading.
	Title string

	// Body is the prompt message.
	Body string

	// Accept is the affirmative button label. Defaults to "OK".
	Accept string

	// Dismiss is the negative button label. Defaults to "Cancel".
	Dismiss string
}

// withDefaults fills empty labels.
func (o Options) withDefaults() Options {
	if o.Accept == "" {
		o.Accept = DefaultAccept
	}
	if o.Dismiss == "" {
		o.Dismiss = DefaultDismiss
	}
	return o
}

// Result is the outcome of a shown dialog.
type Result struct {
	// Text is the label of the chosen button.
	Text string
}

// Accepted reports whether the result matches the prompt's affirmative label.
func (r Result) Accepted(opts Options) bool {
	return r.Text == opts.withDefaults().Accept
}

// Dialog presents a confirmation prompt and blocks until the user answers
// or ctx is cancelled.
type Dialog interface {
	Show(ctx context.Context, opts Options) (Result, error)
}

// Func is a function adapter for Dialog.
type Func func(ctx context.Context, opts Options) (Result, error)

// Show implements the Dialog interface.
func (f Func) Show(ctx context.Context, opts Options) (Result, error) {
	return f(ctx, opts)
}

// Accept answers every prompt affirmatively.
func Accept() Dialog {
	return Func(func(ctx context.Context, opts Options) (Result, error) {
		return Result{Text: opts.withDefaults().Accept}, nil
	})
}

// Decline answers every prompt negatively.
func Decline() Dialog {
	return Func(func(ctx context.Context, opts Options) (Result, error) {
		return Result{Text: opts.withDefaults().Dismiss}, nil
	})
}

// Fail fails every prompt with err.
func Fail(err error) Dialog {
	return Func(func(ctx context.Context, opts Options) (Result, error) {
		return Result{}, err
	})
}

// Recorder records prompts and replays scripted answers. Answers are
// consumed in order; once exhausted, prompts are declined.
type Recorder struct {
	// Prompts holds every Options value shown, in order.
	Prompts []Options

	// Answers are consumed one per Show call. True accepts the prompt.
	Answers []bool
}

// Show implements the Dialog interface.
func (r *Recorder) Show(ctx context.Context, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	r.Prompts = append(r.Prompts, opts)

	accept := false
	if len(r.Answers) > 0 {
		accept = r.Answers[0]
		r.Answers = r.Answers[1:]
	}

	opts = opts.withDefaults()
	if accept {
		return Result{Text: opts.Accept}, nil
	}
	return Result{Text: opts.Dismiss}, nil
}
