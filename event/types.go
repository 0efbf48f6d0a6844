package event

// Listener is the interface for channel listeners.
// Notify receives the emitted value and may return a value to the emitter;
// return nil to contribute nothing.
type Listener interface {
	Notify(data any) any
}

// ListenerFunc is a function adapter for Listener.
type ListenerFunc func(data any) any

// Notify implements the Listener interface.
func (f ListenerFunc) Notify(data any) any {
	return f(data)
}

// Sink wraps a receive-only function as a Listener that never returns a
// value. Use it for listeners that only observe.
func Sink(fn func(data any)) Listener {
	return ListenerFunc(func(data any) any {
		fn(data)
		return nil
	})
}

// TypedListenerFunc is a listener whose payload type is resolved at the
// call site. Emissions whose payload is not a T are skipped silently.
type TypedListenerFunc[T any] func(data T) any

// AsListener converts a TypedListenerFunc to a generic Listener.
func AsListener[T any](fn TypedListenerFunc[T]) Listener {
	return ListenerFunc(func(data any) any {
		if v, ok := data.(T); ok {
			return fn(v)
		}
		return nil
	})
}

// Stats contains bus counters.
type Stats struct {
	// Emits is the total number of Emit calls, including Toggle re-emissions.
	Emits uint64

	// Deliveries is the total number of listener invocations.
	Deliveries uint64

	// Panics is the number of listener invocations that panicked.
	Panics uint64

	// Channels is the current number of channels.
	Channels int

	// Listeners is the current number of registrations across all channels.
	Listeners int
}
