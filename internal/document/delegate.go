package document

import (
	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/widget"
)

// Delegate supplies the document-type-specific behavior a Handler cannot
// know: how to build a widget, how to push content into it, and how to pull
// content back out for saving. Implementations must not call back into the
// Handler from these methods except through the widget's own callbacks.
type Delegate[W widget.Widget] interface {
	// CreateWidget builds a widget for a model that carries no content yet.
	// The handler assigns the title and close behavior afterwards.
	CreateWidget(model *contents.Model) (W, error)

	// Populate pushes fetched content into the widget. Called on open and
	// revert. Edits made by Populate itself must not leave the document
	// marked dirty; the handler clears the flag after Populate returns.
	Populate(w W, model *contents.Model) error

	// SaveOptions extracts the widget's current content as save options.
	SaveOptions(w W, model *contents.Model) (contents.SaveOptions, error)
}

// FetchOptionsProvider is an optional Delegate capability that customizes
// how content is fetched. Without it the handler uses a plain-text file
// fetch including content.
type FetchOptionsProvider interface {
	FetchOptions(path string) contents.FetchOptions
}

// TitleProvider is an optional Delegate capability that derives the widget
// title from the model. Without it the title is the model name.
type TitleProvider interface {
	WidgetTitle(model *contents.Model) string
}
