// Package script runs user Lua hooks in a sandboxed gopher-lua state. The
// runtime loads an init script at startup and bridges document events into
// Lua callbacks registered through the quire module.
package script

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/quirelabs/quire/internal/contents"
	"github.com/quirelabs/quire/internal/document"
	"github.com/quirelabs/quire/internal/event"
	"github.com/quirelabs/quire/internal/logging"
)

// DefaultBudget bounds a single script execution. Enforcement is through
// the lua context hook, so a script is stopped at the next VM instruction
// after the deadline.
const DefaultBudget = 5 * time.Second

// Associator extends the doc-type registry from script code.
type Associator interface {
	Assoc(ext, name string) error
}

// Runtime owns one sandboxed Lua state.
//
// gopher-lua states are not goroutine-safe. All execution funnels through
// the runtime's mutex: loads are called by their owner, and event callbacks
// run during synchronous emitter delivery on the emitting goroutine.
type Runtime struct {
	mu      sync.Mutex
	L       *lua.LState
	emitter *event.Emitter
	assoc   Associator
	logger  *logging.Logger
	timeout time.Duration
	subs    []*event.Subscription
	closed  bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime's logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithBudget sets the per-execution time budget. Zero disables the limit.
func WithBudget(d time.Duration) Option {
	return func(r *Runtime) { r.timeout = d }
}

// New creates a Runtime wired to the given emitter and doc-type associator.
func New(emitter *event.Emitter, assoc Associator, opts ...Option) (*Runtime, error) {
	if emitter == nil {
		return nil, ErrNilEmitter
	}
	if assoc == nil {
		return nil, ErrNilAssociator
	}

	r := &Runtime{
		emitter: emitter,
		assoc:   assoc,
		logger:  logging.Nop(),
		timeout: DefaultBudget,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Nop()
	}
	r.logger = r.logger.WithComponent("script")

	r.L = newState()
	r.installQuire()
	return r, nil
}

// newState creates a Lua state with only the safe standard libraries.
// io, os, debug and package stay closed; without package there is no
// require, so scripts cannot pull modules from disk.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			panic(err)
		}
	}

	// Base brings loaders along; drop them so scripts cannot execute
	// arbitrary files or strings.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// installQuire registers the quire module: on, assoc and log.
func (r *Runtime) installQuire() {
	mod := r.L.NewTable()
	r.L.SetField(mod, "on", r.L.NewFunction(r.luaOn))
	r.L.SetField(mod, "assoc", r.L.NewFunction(r.luaAssoc))
	r.L.SetField(mod, "log", r.L.NewFunction(r.luaLog))
	r.L.SetGlobal("quire", mod)
}

// LoadFile executes a Lua file, typically the user's init.lua.
func (r *Runtime) LoadFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}

	if err := r.guarded(context.Background(), func() error { return r.L.DoFile(path) }); err != nil {
		return &ScriptError{Source: filepath.Base(path), Err: err}
	}
	return nil
}

// LoadString executes Lua source. name tags errors from the chunk.
func (r *Runtime) LoadString(name, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}

	if err := r.guarded(context.Background(), func() error { return r.L.DoString(code) }); err != nil {
		return &ScriptError{Source: name, Err: err}
	}
	return nil
}

// Global returns a global from the Lua state, LNil after Close.
func (r *Runtime) Global(name string) lua.LValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return lua.LNil
	}
	return r.L.GetGlobal(name)
}

// Close cancels all script subscriptions and releases the Lua state.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	for _, sub := range r.subs {
		_ = r.emitter.Unsubscribe(sub)
	}
	r.subs = nil
	r.L.Close()
	r.closed = true
	return nil
}

// guarded runs fn with the execution budget applied and panics converted to
// errors. Callers hold r.mu.
func (r *Runtime) guarded(ctx context.Context, fn func() error) (err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	err = fn()
	if err != nil && ctx.Err() != nil {
		err = ErrBudgetExhausted
	}
	return err
}

// luaOn implements quire.on(topic, fn). The pattern may use emitter
// wildcards ("document.*").
func (r *Runtime) luaOn(L *lua.LState) int {
	pattern := event.Topic(L.CheckString(1))
	fn := L.CheckFunction(2)

	sub, err := r.emitter.Subscribe(pattern, event.HandlerFunc(
		func(ctx context.Context, evt event.Event) error {
			return r.invoke(ctx, evt, fn)
		},
	), event.WithPriority(event.PriorityLow))
	if err != nil {
		L.RaiseError("quire.on %q: %s", string(pattern), err.Error())
		return 0
	}
	r.subs = append(r.subs, sub)
	return 0
}

// luaAssoc implements quire.assoc(ext, doctype).
func (r *Runtime) luaAssoc(L *lua.LState) int {
	ext := L.CheckString(1)
	name := L.CheckString(2)
	if err := r.assoc.Assoc(ext, name); err != nil {
		L.RaiseError("quire.assoc %q: %s", ext, err.Error())
		return 0
	}
	return 0
}

// luaLog implements quire.log(msg).
func (r *Runtime) luaLog(L *lua.LState) int {
	r.logger.Info("%s", L.CheckString(1))
	return 0
}

// invoke delivers one event to a Lua callback. Errors are logged and
// reported to the emitter; they never escape as panics.
func (r *Runtime) invoke(ctx context.Context, evt event.Event, fn *lua.LFunction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}

	err := r.guarded(ctx, func() error {
		r.L.Push(fn)
		r.L.Push(r.payloadTable(evt))
		return r.L.PCall(1, 0, nil)
	})
	if err != nil {
		serr := &ScriptError{Source: string(evt.Topic), Err: err}
		r.logger.Warn("%v", serr)
		return serr
	}
	return nil
}

// payloadTable bridges a document event into a Lua table. Every payload
// carries topic; path-bearing payloads add path and name.
func (r *Runtime) payloadTable(evt event.Event) *lua.LTable {
	t := r.L.NewTable()
	t.RawSetString("topic", lua.LString(string(evt.Topic)))

	setPath := func(p string) {
		t.RawSetString("path", lua.LString(p))
		t.RawSetString("name", lua.LString(contents.BaseName(p)))
	}

	switch p := evt.Payload.(type) {
	case document.Created:
		setPath(p.Path)
		t.RawSetString("widget_id", lua.LString(p.WidgetID))
	case document.Populated:
		setPath(p.Path)
		t.RawSetString("widget_id", lua.LString(p.WidgetID))
	case document.Saved:
		setPath(p.Path)
	case document.Reverted:
		setPath(p.Path)
	case document.Renamed:
		setPath(p.NewPath)
		t.RawSetString("old_path", lua.LString(p.OldPath))
	case document.DirtyChanged:
		setPath(p.Path)
		t.RawSetString("dirty", lua.LBool(p.Dirty))
	case document.Closed:
		setPath(p.Path)
		t.RawSetString("widget_id", lua.LString(p.WidgetID))
	}
	return t
}
