// Package contents defines the content manager abstraction: a uniform API
// for fetching, saving, renaming, and listing documents independent of where
// they live. Backends implement Manager over a local directory (Local), a
// map (Memory), a SQLite database (contents/sqlite), or a remote server
// (contents/httpapi).
//
// Documents are described by Model, a mutable descriptor carrying the path,
// type, format, and optionally the content itself. Paths are forward-slash,
// relative to the backend root; "" names the root directory.
//
// Backends that support point-in-time snapshots additionally implement
// Checkpointer. Callers discover the capability with a type assertion:
//
//	if cp, ok := mgr.(contents.Checkpointer); ok {
//	    cp.CreateCheckpoint(ctx, path)
//	}
package contents
