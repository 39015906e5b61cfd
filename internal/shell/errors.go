package shell

import "errors"

// Shell errors.
var (
	// ErrNilManager is returned by New when no contents manager is given.
	ErrNilManager = errors.New("nil contents manager")

	// ErrAlreadyRunning is returned by Run while the shell is running.
	ErrAlreadyRunning = errors.New("shell already running")

	// ErrScreenClosed is returned when the terminal goes away while a
	// prompt is waiting for input.
	ErrScreenClosed = errors.New("screen closed")

	// ErrHiddenPath is returned when opening a dot-prefixed path while
	// hidden files are disabled.
	ErrHiddenPath = errors.New("hidden files are disabled")
)

// InitError wraps a component initialization failure.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
