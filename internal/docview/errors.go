package docview

import "errors"

var (
	// ErrWrongView indicates a delegate was handed a widget of another
	// view type.
	ErrWrongView = errors.New("docview: widget is not the expected view type")

	// ErrBadNotebook indicates content that is not a v4 notebook document.
	ErrBadNotebook = errors.New("docview: not a v4 notebook")

	// ErrBinaryContent indicates base64 content reached a text view.
	ErrBinaryContent = errors.New("docview: content is not text")
)
