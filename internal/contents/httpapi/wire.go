package httpapi

import (
	"errors"
	"net/http"

	"github.com/quirelabs/quire/internal/contents"
)

// Route roots shared by Server and Client.
const (
	contentsRoot    = "/api/contents"
	checkpointsRoot = "/api/checkpoints"
)

// wireModel is a Model reply. Entries carries the directory listing when a
// directory is fetched with content requested.
type wireModel struct {
	contents.Model
	Entries []*contents.Model `json:"entries,omitempty"`
}

// saveRequest is the PUT body.
type saveRequest struct {
	Type    contents.Type   `json:"type,omitempty"`
	Format  contents.Format `json:"format,omitempty"`
	Content string          `json:"content"`
}

// renameRequest is the PATCH body.
type renameRequest struct {
	Path string `json:"path"`
}

// errorReply is the body of every non-2xx response. Code lets the client
// recover the backend sentinel; Error is for humans.
type errorReply struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Wire codes for backend sentinels.
const (
	codeNotFound              = "not_found"
	codeExists                = "exists"
	codeIsDirectory           = "is_directory"
	codeNotWritable           = "not_writable"
	codeInvalidPath           = "invalid_path"
	codeUnsupportedFormat     = "unsupported_format"
	codeCheckpointNotFound    = "checkpoint_not_found"
	codeCheckpointUnsupported = "checkpoint_unsupported"
)

var sentinelCodes = []struct {
	err    error
	code   string
	status int
}{
	{contents.ErrNotFound, codeNotFound, http.StatusNotFound},
	{contents.ErrCheckpointNotFound, codeCheckpointNotFound, http.StatusNotFound},
	{contents.ErrExists, codeExists, http.StatusConflict},
	{contents.ErrIsDirectory, codeIsDirectory, http.StatusBadRequest},
	{contents.ErrInvalidPath, codeInvalidPath, http.StatusBadRequest},
	{contents.ErrUnsupportedFormat, codeUnsupportedFormat, http.StatusBadRequest},
	{contents.ErrNotWritable, codeNotWritable, http.StatusForbidden},
	{contents.ErrCheckpointUnsupported, codeCheckpointUnsupported, http.StatusNotImplemented},
}

// codeFor maps a backend error to its wire code and HTTP status.
func codeFor(err error) (string, int) {
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code, sc.status
		}
	}
	return "", http.StatusInternalServerError
}

// sentinelFor maps a wire code back to the backend sentinel, nil for codes
// this build does not know.
func sentinelFor(code string) error {
	for _, sc := range sentinelCodes {
		if sc.code == code {
			return sc.err
		}
	}
	return nil
}
