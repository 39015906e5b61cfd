// Package shell is the terminal front end: a tab bar of open documents, a
// body region the active view draws into, a status bar, and the keyboard
// loop driving the document lifecycle.
//
// The shell owns the tcell screen and runs all state changes on the Run
// goroutine. Document handlers publish lifecycle events on the shell's
// emitter; the shell subscribes for tab bookkeeping and status messages,
// and script hooks can subscribe to the same bus.
package shell
