package script

import "errors"

var (
	// ErrNilEmitter indicates the runtime was constructed without an emitter.
	ErrNilEmitter = errors.New("nil event emitter")

	// ErrNilAssociator indicates the runtime was constructed without a
	// doc-type associator.
	ErrNilAssociator = errors.New("nil associator")

	// ErrRuntimeClosed is returned when operating on a closed runtime.
	ErrRuntimeClosed = errors.New("script runtime is closed")

	// ErrBudgetExhausted is returned when a script runs past its execution
	// budget.
	ErrBudgetExhausted = errors.New("script budget exhausted")
)

// ScriptError wraps an error raised by user script code, tagged with where
// it came from (a file name or the topic whose callback failed).
type ScriptError struct {
	Source string
	Err    error
}

func (e *ScriptError) Error() string {
	return "script " + e.Source + ": " + e.Err.Error()
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
