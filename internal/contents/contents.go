package contents

import (
	"context"
	"mime"
	"path"
	"strings"
	"time"
)

// Type identifies the kind of content a model describes.
type Type string

// Content types.
const (
	// TypeFile is a regular document.
	TypeFile Type = "file"

	// TypeNotebook is a cell-structured JSON document.
	TypeNotebook Type = "notebook"

	// TypeDirectory is a listing container.
	TypeDirectory Type = "directory"
)

// Format identifies how Model.Content is encoded.
type Format string

// Content formats.
const (
	// FormatText is plain UTF-8 text.
	FormatText Format = "text"

	// FormatJSON is a JSON document serialized to a string.
	FormatJSON Format = "json"

	// FormatBase64 is arbitrary bytes encoded with standard base64.
	FormatBase64 Format = "base64"
)

// Model describes a single piece of content. It is a mutable record passed
// by reference; lifecycle code updates Path and Name in place on rename.
type Model struct {
	// Path locates the content relative to the backend root.
	Path string `json:"path"`

	// Name is the last path segment.
	Name string `json:"name"`

	// Type is the content type.
	Type Type `json:"type"`

	// Format describes the Content encoding. Empty when content is omitted.
	Format Format `json:"format,omitempty"`

	// Mimetype is the guessed MIME type, empty for directories.
	Mimetype string `json:"mimetype,omitempty"`

	// Content is the document body. Empty when fetched without content.
	Content string `json:"content,omitempty"`

	// Size is the content size in bytes.
	Size int64 `json:"size"`

	// Created is the creation timestamp.
	Created time.Time `json:"created"`

	// LastModified is the last modification timestamp.
	LastModified time.Time `json:"last_modified"`

	// Writable reports whether the backend will accept saves to this path.
	Writable bool `json:"writable"`
}

// FetchOptions controls Manager.Get.
type FetchOptions struct {
	// Type is the expected content type. Empty means infer from the path.
	Type Type

	// Format is the requested content encoding. Empty means infer.
	Format Format

	// IncludeContent requests the document body. Without it Get returns
	// a metadata-only model.
	IncludeContent bool
}

// DefaultFetchOptions is a plain-text file fetch including content.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{Type: TypeFile, Format: FormatText, IncludeContent: true}
}

// SaveOptions controls Manager.Save.
type SaveOptions struct {
	// Type is the content type being saved. Empty means infer from the path.
	Type Type

	// Format describes how Content is encoded. Empty means text.
	Format Format

	// Content is the document body to persist.
	Content string
}

// Manager is the content storage abstraction the document handler binds to.
// Implementations must be safe for concurrent use.
type Manager interface {
	// Get fetches the model at path. Returns ErrNotFound if nothing is there.
	Get(ctx context.Context, path string, opts FetchOptions) (*Model, error)

	// Save persists content at path, creating it if absent, and returns the
	// resulting model without content.
	Save(ctx context.Context, path string, opts SaveOptions) (*Model, error)

	// Rename moves content from oldPath to newPath and returns the updated
	// model. Returns ErrNotFound if oldPath is absent and ErrExists if
	// newPath is already occupied.
	Rename(ctx context.Context, oldPath, newPath string) (*Model, error)

	// Delete removes the content at path.
	Delete(ctx context.Context, path string) error

	// List returns metadata-only models for the entries of the directory,
	// sorted by name. Hidden entries (dot-prefixed) are omitted.
	List(ctx context.Context, dir string) ([]*Model, error)
}

// Checkpoint is a point-in-time snapshot reference.
type Checkpoint struct {
	// ID identifies the checkpoint. IDs are ULIDs, so they sort by creation time.
	ID string `json:"id"`

	// LastModified is when the checkpoint was taken.
	LastModified time.Time `json:"last_modified"`
}

// Checkpointer is an optional Manager capability for content snapshots.
type Checkpointer interface {
	// CreateCheckpoint snapshots the current content at path.
	CreateCheckpoint(ctx context.Context, path string) (Checkpoint, error)

	// ListCheckpoints returns the snapshots for path, oldest first.
	ListCheckpoints(ctx context.Context, path string) ([]Checkpoint, error)

	// RestoreCheckpoint replaces the content at path with the snapshot.
	RestoreCheckpoint(ctx context.Context, path, checkpointID string) error

	// DeleteCheckpoint removes a snapshot.
	DeleteCheckpoint(ctx context.Context, path, checkpointID string) error
}

// InferType guesses the content type for a path: notebooks by extension,
// everything else a file. Directories cannot be inferred from the name
// alone, so backends report those from their own metadata.
func InferType(p string) Type {
	if strings.EqualFold(path.Ext(p), ".ipynb") {
		return TypeNotebook
	}
	return TypeFile
}

// InferFormat guesses the content encoding for a type.
func InferFormat(t Type) Format {
	switch t {
	case TypeNotebook:
		return FormatJSON
	case TypeDirectory:
		return FormatJSON
	default:
		return FormatText
	}
}

// DetectMimetype guesses a MIME type from the path extension.
func DetectMimetype(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return "text/plain"
	}
	if strings.EqualFold(ext, ".ipynb") {
		return "application/x-ipynb+json"
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
