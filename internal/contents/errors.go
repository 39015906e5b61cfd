package contents

import (
	"errors"
	"fmt"
)

// Content manager errors.
var (
	// ErrNotFound indicates no content exists at the path.
	ErrNotFound = errors.New("content not found")

	// ErrExists indicates the destination path is already occupied.
	ErrExists = errors.New("content already exists")

	// ErrNotWritable indicates the content cannot be saved.
	ErrNotWritable = errors.New("content not writable")

	// ErrInvalidPath indicates the path is malformed or escapes the root.
	ErrInvalidPath = errors.New("invalid content path")

	// ErrUnsupportedFormat indicates the requested format does not apply
	// to the content (e.g. json for a plain file).
	ErrUnsupportedFormat = errors.New("unsupported content format")

	// ErrIsDirectory indicates a file operation was attempted on a directory.
	ErrIsDirectory = errors.New("content is a directory")

	// ErrCheckpointNotFound indicates no checkpoint exists with the given ID.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrCheckpointUnsupported indicates the backend has no checkpoint support.
	ErrCheckpointUnsupported = errors.New("checkpoints not supported")
)

// PathError wraps an error with the operation and path that produced it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error returns a formatted error message.
func (e *PathError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("contents %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("contents %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// pathErr builds a PathError.
func pathErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}
