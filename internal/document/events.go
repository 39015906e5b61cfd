package document

import "github.com/quirelabs/quire/internal/event"

// Topics emitted by a Handler on its emitter.
const (
	// TopicCreated fires when a widget is created for a path, before any
	// content has been fetched.
	TopicCreated event.Topic = "document.created"

	// TopicPopulated fires after fetched content has been pushed into the
	// widget and the dirty flag cleared.
	TopicPopulated event.Topic = "document.populated"

	// TopicSaved fires after a successful save.
	TopicSaved event.Topic = "document.saved"

	// TopicReverted fires after content is re-fetched and repopulated.
	TopicReverted event.Topic = "document.reverted"

	// TopicRenamed fires after the handler re-keys a widget to a new path.
	TopicRenamed event.Topic = "document.renamed"

	// TopicDirty fires on every dirty flag transition.
	TopicDirty event.Topic = "document.dirty"

	// TopicClosed fires after a widget is removed and disposed.
	TopicClosed event.Topic = "document.closed"
)

// Created is the payload for TopicCreated.
type Created struct {
	Path     string
	WidgetID string
}

// Populated is the payload for TopicPopulated.
type Populated struct {
	Path     string
	WidgetID string
}

// Saved is the payload for TopicSaved.
type Saved struct {
	Path string
}

// Reverted is the payload for TopicReverted.
type Reverted struct {
	Path string
}

// Renamed is the payload for TopicRenamed.
type Renamed struct {
	OldPath string
	NewPath string
}

// DirtyChanged is the payload for TopicDirty.
type DirtyChanged struct {
	Path  string
	Dirty bool
}

// Closed is the payload for TopicClosed.
type Closed struct {
	Path     string
	WidgetID string
}
