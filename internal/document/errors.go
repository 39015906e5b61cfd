package document

import "errors"

// Document lifecycle errors.
var (
	// ErrNilManager indicates the handler was constructed without a
	// content manager.
	ErrNilManager = errors.New("document: nil content manager")

	// ErrNilDelegate indicates the handler was constructed without a delegate.
	ErrNilDelegate = errors.New("document: nil delegate")

	// ErrNilDialog indicates the handler was constructed without a dialog.
	ErrNilDialog = errors.New("document: nil dialog")

	// ErrClosedDuringLoad indicates the widget was closed while its content
	// fetch was in flight. No widget is returned alongside it.
	ErrClosedDuringLoad = errors.New("document: closed during load")

	// ErrHandlerNotFound indicates no handler is registered under the name.
	ErrHandlerNotFound = errors.New("document: handler not found")

	// ErrDuplicateHandler indicates the handler name is already registered.
	ErrDuplicateHandler = errors.New("document: handler already registered")

	// ErrNoDefaultHandler indicates the registry has no default handler
	// for unmatched paths.
	ErrNoDefaultHandler = errors.New("document: no default handler")
)
