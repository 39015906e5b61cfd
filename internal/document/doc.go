// Package document binds content storage to widgets and owns the document
// lifecycle: open, save, revert, rename, close.
//
// A Handler is generic over its widget type and stays out of rendering
// entirely. The widget-specific work is delegated:
//
//	type textDelegate struct{}
//
//	func (textDelegate) CreateWidget(m *contents.Model) (*TextView, error) { ... }
//	func (textDelegate) Populate(w *TextView, m *contents.Model) error     { ... }
//	func (textDelegate) SaveOptions(w *TextView, m *contents.Model) (contents.SaveOptions, error) { ... }
//
//	h, err := document.New[*TextView](manager, textDelegate{},
//		document.WithDialog[*TextView](shellDialog),
//		document.WithLogger[*TextView](logger))
//
// Opening is two-phase: the widget exists and "document.created" fires
// before the content fetch, and "document.populated" fires once content has
// landed. Callers that need the content wait for the second event or for
// Open to return.
//
// The handler installs itself as a close filter on every widget it creates,
// so closing through the widget's RequestClose runs the same dirty prompt
// and bookkeeping as Handler.Close. All lifecycle changes are published on
// the handler's emitter under the document.* topics.
//
// Blocking work (content I/O, the confirmation dialog, delegate calls) runs
// with no handler lock held. Operations re-check that the document is still
// open before adopting results, so a close that lands mid-fetch is detected
// rather than resurrecting state.
package document
