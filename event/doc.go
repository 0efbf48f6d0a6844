// Package event provides the named-channel event bus shared by the host
// and its card plugins.
//
// The bus is the communication backbone between independently authored
// plugins and the host: a plugin emits on a named channel, every listener
// registered on that channel observes the value, and any listener may hand
// a value back to the emitter. Each channel also caches the last emitted
// value so plugins loaded after an event already fired can recover current
// state without re-triggering side effects.
//
// # Channels
//
// Channels are identified by name and created implicitly on first use.
// There is no registration step and no error for touching an unknown name:
//
//	bus := event.NewBus()
//	bus.On("theme", event.ListenerFunc(func(data any) any {
//		applyTheme(data.(string))
//		return nil
//	}))
//	bus.Emit("theme", "dark")
//	bus.Data("theme") // "dark"
//
// # Delivery
//
// Emit is synchronous and ordered: listeners run in registration order, in
// the caller's goroutine, before Emit returns. Every listener runs on every
// emission; a panicking listener is isolated so the ones after it still
// run. Emit returns the first non-nil value produced by any listener,
// preferring the listener nearest the front of the registration order.
// There is no short-circuit: later listeners run even after an earlier
// one has produced a result, since their side effects may be relied upon.
//
// # Scoping
//
// A Bus carries no global state. The host owns one app-wide instance and
// one instance per tool group, and passes each explicitly into the card
// contexts it builds; two Bus values never share channels.
package event
