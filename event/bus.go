package event

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// channel is a named slot holding the cached last value and the ordered
// listener list. A channel is exclusively owned by its Bus.
type channel struct {
	name      string
	lastValue any
	subs      []*Subscription
}

// Bus is a registry of named event channels. It is safe for concurrent use.
// The zero value is not usable; construct with NewBus.
type Bus struct {
	mu       sync.RWMutex
	channels map[string]*channel
	logger   *zap.Logger

	emits      atomic.Uint64
	deliveries atomic.Uint64
	panics     atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report listener panics.
// The default logger discards everything.
func WithLogger(logger *zap.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		channels: make(map[string]*channel),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// channelLocked returns the channel for name, creating it if needed.
// The caller must hold b.mu for writing.
func (b *Bus) channelLocked(name string) *channel {
	ch, ok := b.channels[name]
	if !ok {
		ch = &channel{name: name}
		b.channels[name] = ch
	}
	return ch
}

// On registers listener for every subsequent emission on the named channel
// and returns the subscription handle used to remove it. Registration never
// fails; a nil listener yields an inert subscription.
func (b *Bus) On(name string, listener Listener, opts ...SubscriptionOption) *Subscription {
	sub := &Subscription{
		id:       generateID(),
		channel:  name,
		listener: listener,
	}
	for _, opt := range opts {
		opt(sub)
	}
	if listener == nil {
		sub.cancelled.Store(true)
		return sub
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ch := b.channelLocked(name)
	ch.subs = append(ch.subs, sub)
	return sub
}

// OnFunc registers a plain function listener.
func (b *Bus) OnFunc(name string, fn func(data any) any, opts ...SubscriptionOption) *Subscription {
	return b.On(name, ListenerFunc(fn), opts...)
}

// Off removes the subscription. Removing a nil, foreign, or already removed
// subscription is a no-op, not an error.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.cancelled.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[sub.channel]
	if !ok {
		return
	}
	for i, s := range ch.subs {
		if s.id == sub.id {
			ch.subs = append(ch.subs[:i], ch.subs[i+1:]...)
			break
		}
	}
}

// Emit stores data as the channel's current value, then invokes every
// registered listener synchronously in registration order. It returns the
// first non-nil value produced by any listener, favoring the listener
// nearest the front of the order; nil when no listener returns a value.
// All listeners run on every emission, even after a result is found.
func (b *Bus) Emit(name string, data any) any {
	b.mu.Lock()
	ch := b.channelLocked(name)
	ch.lastValue = data
	subs := snapshot(ch.subs)
	b.mu.Unlock()

	return b.dispatch(name, subs, data)
}

// Data returns the channel's current cached value without side effects.
// It is nil for channels never emitted on.
func (b *Bus) Data(name string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.channels[name]
	if !ok {
		return nil
	}
	return ch.lastValue
}

// CurrentData is an alias for Data, kept for late subscribers that read the
// cache before registering.
func (b *Bus) CurrentData(name string) any {
	return b.Data(name)
}

// Clear removes all listeners from the named channel. The cached value is
// left intact so late readers still observe it.
func (b *Bus) Clear(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[name]
	if !ok {
		return
	}
	for _, s := range ch.subs {
		s.cancelled.Store(true)
	}
	ch.subs = nil
}

// Toggle flips the channel's cached value and re-emits it to all current
// listeners exactly as Emit would, but only when the cached value is
// strictly a boolean. Any other value makes Toggle a no-op. It reports
// whether a flip happened.
func (b *Bus) Toggle(name string) bool {
	b.mu.Lock()
	ch, ok := b.channels[name]
	if !ok {
		b.mu.Unlock()
		return false
	}
	v, ok := ch.lastValue.(bool)
	if !ok {
		b.mu.Unlock()
		return false
	}
	flipped := !v
	ch.lastValue = flipped
	subs := snapshot(ch.subs)
	b.mu.Unlock()

	b.dispatch(name, subs, flipped)
	return true
}

// Reverse is an alias for Toggle.
func (b *Bus) Reverse(name string) bool {
	return b.Toggle(name)
}

// ListenerCount returns the number of registrations on the named channel.
func (b *Bus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.channels[name]
	if !ok {
		return 0
	}
	return len(ch.subs)
}

// Names returns the names of all channels the bus has seen.
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.channels) == 0 {
		return nil
	}
	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	return names
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	listeners := 0
	for _, ch := range b.channels {
		listeners += len(ch.subs)
	}
	channels := len(b.channels)
	b.mu.RUnlock()

	return Stats{
		Emits:      b.emits.Load(),
		Deliveries: b.deliveries.Load(),
		Panics:     b.panics.Load(),
		Channels:   channels,
		Listeners:  listeners,
	}
}

// dispatch delivers data to the snapshot of subscriptions and selects the
// first non-nil result in order.
func (b *Bus) dispatch(name string, subs []*Subscription, data any) any {
	b.emits.Add(1)

	var result any
	for _, sub := range subs {
		// Skip subscriptions removed mid-emission by an earlier listener.
		if !sub.IsActive() {
			continue
		}
		v := b.invoke(name, sub, data)
		if sub.once {
			b.Off(sub)
		}
		if result == nil && v != nil {
			result = v
		}
	}
	return result
}

// invoke runs a single listener with panic isolation. A panicking listener
// contributes no result and must not prevent later listeners from running.
func (b *Bus) invoke(name string, sub *Subscription, data any) (result any) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.logger.Error("listener panic",
				zap.String("channel", name),
				zap.String("subscription", sub.id),
				zap.Any("recovered", r),
			)
			result = nil
		}
	}()

	b.deliveries.Add(1)
	return sub.listener.Notify(data)
}

// snapshot copies the listener list so delivery happens outside the lock.
func snapshot(subs []*Subscription) []*Subscription {
	if len(subs) == 0 {
		return nil
	}
	out := make([]*Subscription, len(subs))
	copy(out, subs)
	return out
}

// Listen registers a typed listener; emissions whose payload is not a T are
// skipped. The payload type is resolved at the call site.
func Listen[T any](b *Bus, name string, fn TypedListenerFunc[T], opts ...SubscriptionOption) *Subscription {
	return b.On(name, AsListener(fn), opts...)
}

// DataAs returns the channel's cached value as a T. ok is false when the
// channel was never emitted on or holds a different type.
func DataAs[T any](b *Bus, name string) (T, bool) {
	v, ok := b.Data(name).(T)
	return v, ok
}
