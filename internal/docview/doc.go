// Package docview provides the concrete document views the shell renders
// and the document.Delegate implementations that bind them to a handler.
//
// Three view types cover the registered document types: Text (plain text
// with minimal editing), Markdown (text plus YAML front matter and a
// heading outline) and Notebook (a read-only cell list over notebook JSON
// with structural edits). All embed widget.Base and satisfy the View
// contract the shell draws through.
//
// Delegates report content changes through their MarkDirty hook, which the
// shell wires to Handler.SetDirty after the handler is constructed.
package docview
