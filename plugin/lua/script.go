package lua

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/hollow-app/hollow-api/event"
	"github.com/hollow-app/hollow-api/plugin"
	"github.com/hollow-app/hollow-api/store"
)

// Script is a card plugin implemented in Lua. It satisfies plugin.Plugin.
//
// Every entry into the Lua state is serialized behind a mutex. Bus
// listeners registered by the script run inline when the state is free;
// when the state is busy (most commonly because the script itself emitted
// on a channel it listens to) the delivery is deferred until the current
// call finishes, and the listener contributes no return value to that
// emission.
type Script struct {
	mu sync.Mutex
	L  *lua.LState

	name   string
	logger *zap.Logger
	closed bool

	// Deferred listener deliveries, guarded separately so they can be
	// queued while mu is held by another caller.
	pendingMu sync.Mutex
	pending   []func(L *lua.LState)

	// Bus subscriptions per card instance, removed on unload.
	subs map[string][]subRef
}

type subRef struct {
	bus *event.Bus
	sub *event.Subscription
}

// Option configures a Script.
type Option func(*Script)

// WithLogger sets the script's logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Script) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScript loads the manifest's main Lua file into a fresh sandboxed
// state and returns the plugin it defines.
func NewScript(manifest *plugin.Manifest, opts ...Option) (*Script, error) {
	if manifest == nil {
		return nil, plugin.ErrNilManifest
	}
	if manifest.Main == "" {
		return nil, ErrNoMain
	}

	s := &Script{
		name:   manifest.Name,
		logger: zap.NewNop(),
		subs:   make(map[string][]subRef),
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	s.L = L

	if err := L.DoFile(manifest.MainPath()); err != nil {
		L.Close()
		return nil, fmt.Errorf("lua: load %s: %w", manifest.MainPath(), err)
	}
	return s, nil
}

// openSafeLibraries opens only safe Lua standard libraries. io, os,
// debug, and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// Name returns the plugin name the script was loaded for.
func (s *Script) Name() string {
	return s.name
}

// Close releases the Lua state. Further lifecycle calls fail.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}

// OnCreate implements plugin.Plugin.
func (s *Script) OnCreate(name string, st *store.Store) error {
	return s.enter(func(L *lua.LState) error {
		return s.call(L, "on_create", 0, lua.LString(name), s.storeTable(L, st))
	})
}

// OnDelete implements plugin.Plugin.
func (s *Script) OnDelete(name string, st *store.Store) error {
	return s.enter(func(L *lua.LState) error {
		return s.call(L, "on_delete", 0, lua.LString(name), s.storeTable(L, st))
	})
}

// OnLoad implements plugin.Plugin.
func (s *Script) OnLoad(card *plugin.Card, bus *event.Bus) error {
	return s.enter(func(L *lua.LState) error {
		return s.call(L, "on_load", 0, s.cardTable(L, card), s.busTable(L, card.ID, bus))
	})
}

// OnUnload implements plugin.Plugin.
func (s *Script) OnUnload(id string) error {
	s.mu.Lock()
	refs := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()
	for _, ref := range refs {
		ref.bus.Off(ref.sub)
	}

	return s.enter(func(L *lua.LState) error {
		return s.call(L, "on_unload", 0, lua.LString(id))
	})
}

// enter runs fn with the state locked, then drains deferred deliveries.
func (s *Script) enter(fn func(L *lua.LState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	err := fn(s.L)
	s.drain()
	return err
}

// drain runs queued listener deliveries. Deliveries may queue more work;
// loop until quiet. Caller holds s.mu.
func (s *Script) drain() {
	for {
		s.pendingMu.Lock()
		if len(s.pending) == 0 {
			s.pendingMu.Unlock()
			return
		}
		batch := s.pending
		s.pending = nil
		s.pendingMu.Unlock()

		for _, fn := range batch {
			fn(s.L)
		}
	}
}

// call invokes an optional global function. A missing or non-function
// global is skipped, matching the optional lifecycle hooks.
func (s *Script) call(L *lua.LState, name string, nret int, args ...lua.LValue) error {
	fn := L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		return fmt.Errorf("lua: %s.%s: %w", s.name, name, err)
	}
	return nil
}

// pcallValue calls a Lua function value with one argument and returns its
// single result. Errors are logged, not raised; a failing listener must
// not break the emission.
func (s *Script) pcallValue(L *lua.LState, fn *lua.LFunction, arg lua.LValue) lua.LValue {
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, arg); err != nil {
		s.logger.Warn("lua listener failed",
			zap.String("plugin", s.name),
			zap.Error(err),
		)
		return lua.LNil
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret
}

// storeTable exposes a scoped store to Lua: put/get/delete/all/clear.
// Values round-trip through the store's JSON representation.
func (s *Script) storeTable(L *lua.LState, st *store.Store) lua.LValue {
	if st == nil {
		return lua.LNil
	}
	ctx := context.Background()
	t := L.NewTable()

	L.SetField(t, "put", L.NewFunction(func(L *lua.LState) int {
		ok := st.Put(ctx, L.CheckString(1), L.CheckString(2), toGo(L.Get(3)))
		L.Push(lua.LBool(ok))
		return 1
	}))
	L.SetField(t, "get", L.NewFunction(func(L *lua.LState) int {
		raw, err := st.Get(ctx, L.CheckString(1), L.CheckString(2))
		if err != nil || raw == nil {
			L.Push(lua.LNil)
			return 1
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLua(L, v))
		return 1
	}))
	L.SetField(t, "delete", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(st.Delete(ctx, L.CheckString(1), L.CheckString(2))))
		return 1
	}))
	L.SetField(t, "all", L.NewFunction(func(L *lua.LState) int {
		values, err := st.All(ctx, L.CheckString(1))
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		out := L.NewTable()
		for i, raw := range values {
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				out.RawSetInt(i+1, toLua(L, v))
			}
		}
		L.Push(out)
		return 1
	}))
	L.SetField(t, "clear", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(st.Clear(ctx, L.CheckString(1))))
		return 1
	}))
	return t
}

// busTable exposes a bus scope to Lua: emit/on/data/toggle.
func (s *Script) busTable(L *lua.LState, cardID string, bus *event.Bus) lua.LValue {
	t := L.NewTable()

	L.SetField(t, "emit", L.NewFunction(func(L *lua.LState) int {
		result := bus.Emit(L.CheckString(1), toGo(L.Get(2)))
		L.Push(toLua(L, result))
		return 1
	}))
	L.SetField(t, "on", L.NewFunction(func(L *lua.LState) int {
		channel := L.CheckString(1)
		fn := L.CheckFunction(2)
		sub := bus.On(channel, s.luaListener(fn))
		s.track(cardID, bus, sub)
		return 0
	}))
	L.SetField(t, "data", L.NewFunction(func(L *lua.LState) int {
		L.Push(toLua(L, bus.Data(L.CheckString(1))))
		return 1
	}))
	L.SetField(t, "toggle", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(bus.Toggle(L.CheckString(1))))
		return 1
	}))
	return t
}

// cardTable mirrors the Go Card context for Lua scripts.
func (s *Script) cardTable(L *lua.LState, card *plugin.Card) lua.LValue {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(card.ID))
	L.SetField(t, "name", lua.LString(card.Name))
	L.SetField(t, "container", lua.LString(card.Container))
	L.SetField(t, "store", s.storeTable(L, card.Store))
	L.SetField(t, "bus", s.busTable(L, card.ID, card.ToolBus))

	L.SetField(t, "notify", L.NewFunction(func(L *lua.LState) int {
		card.Notify(plugin.NotifyKind(L.CheckString(1)), L.CheckString(2), L.CheckString(3))
		return 0
	}))
	L.SetField(t, "elevate", L.NewFunction(func(L *lua.LState) int {
		card.SetElevated(L.CheckBool(1))
		return 0
	}))
	return t
}

// luaListener wraps a Lua function as a bus listener. Inline when the
// state is free; deferred (with no return value) when it is busy.
func (s *Script) luaListener(fn *lua.LFunction) event.Listener {
	return event.ListenerFunc(func(data any) any {
		if s.mu.TryLock() {
			defer s.mu.Unlock()
			if s.closed {
				return nil
			}
			ret := s.pcallValue(s.L, fn, toLua(s.L, data))
			s.drain()
			return toGo(ret)
		}

		// State busy: the emission came from inside a Lua call (or a
		// concurrent lifecycle call owns the state). Queue the delivery;
		// whoever holds the lock drains it before releasing.
		s.pendingMu.Lock()
		s.pending = append(s.pending, func(L *lua.LState) {
			s.pcallValue(L, fn, toLua(L, data))
		})
		s.pendingMu.Unlock()
		return nil
	})
}

// track records a subscription for removal when the card unloads.
func (s *Script) track(cardID string, bus *event.Bus, sub *event.Subscription) {
	// Called from inside a locked Lua entry; subs is only touched under
	// s.mu or from OnUnload before entering the state.
	s.subs[cardID] = append(s.subs[cardID], subRef{bus: bus, sub: sub})
}
