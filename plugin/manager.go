package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hollow-app/hollow-api/event"
	"github.com/hollow-app/hollow-api/store"
)

// Manager owns the runtime plumbing between the host and its plugins: the
// app-wide bus, one tool bus per plugin group, and one scoped store per
// plugin. It drives every lifecycle call and never lets a plugin reach a
// resource it was not handed.
type Manager struct {
	mu sync.RWMutex

	config  ManagerConfig
	logger  *zap.Logger
	fetcher Fetcher

	appBus    *event.Bus
	toolBuses map[string]*event.Bus

	entries   map[string]*entry
	loadOrder []string
}

// entry tracks one registered plugin.
type entry struct {
	plugin   Plugin
	manifest *Manifest
	store    *store.Store
	cards    map[string]*Card
	state    State
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager's logger. The default discards
// everything.
func WithManagerLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithFetcher sets the HTTP capability handed to cards.
func WithFetcher(f Fetcher) ManagerOption {
	return func(m *Manager) {
		m.fetcher = f
	}
}

// NewManager creates a manager with its own app-wide bus.
func NewManager(config ManagerConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		config:    config,
		logger:    zap.NewNop(),
		toolBuses: make(map[string]*event.Bus),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.appBus = event.NewBus(event.WithLogger(m.logger))
	return m
}

// AppBus returns the app-wide event bus.
func (m *Manager) AppBus() *event.Bus {
	return m.appBus
}

// ToolBus returns the bus shared by cards of the given plugin group,
// creating it on first use.
func (m *Manager) ToolBus(group string) *event.Bus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toolBusLocked(group)
}

func (m *Manager) toolBusLocked(group string) *event.Bus {
	bus, ok := m.toolBuses[group]
	if !ok {
		bus = event.NewBus(event.WithLogger(m.logger))
		m.toolBuses[group] = bus
	}
	return bus
}

// Register installs a plugin under its manifest, provisions its scoped
// store, and runs OnCreate.
func (m *Manager) Register(ctx context.Context, manifest *Manifest, p Plugin) error {
	if manifest == nil {
		return ErrNilManifest
	}
	if p == nil {
		return ErrNilPlugin
	}
	if err := manifest.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.entries[manifest.Name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginExists, manifest.Name)
	}

	var st *store.Store
	if manifest.Persist {
		opts := []store.Option{
			store.WithVersion(manifest.SchemaVersion),
			store.WithLogger(m.logger),
		}
		if len(manifest.Stores) > 0 {
			opts = append(opts, store.WithStores(manifest.Stores...))
		}
		st = store.New(m.config.DataDir, manifest.Name, opts...)
	}

	e := &entry{
		plugin:   p,
		manifest: manifest.Clone(),
		store:    st,
		cards:    make(map[string]*Card),
		state:    StateRegistered,
	}
	m.entries[manifest.Name] = e
	m.loadOrder = append(m.loadOrder, manifest.Name)
	m.mu.Unlock()

	if err := p.OnCreate(manifest.Name, st); err != nil {
		m.setState(manifest.Name, StateError)
		m.announce(LifecycleEvent{Type: EventFailed, Plugin: manifest.Name, Err: err.Error()})
		return fmt.Errorf("plugin %s: OnCreate: %w", manifest.Name, err)
	}

	m.logger.Info("plugin registered",
		zap.String("plugin", manifest.Name),
		zap.String("version", manifest.Version),
	)
	m.announce(LifecycleEvent{Type: EventRegistered, Plugin: manifest.Name})
	return nil
}

// Remove uninstalls a plugin: unloads its remaining cards, runs OnDelete,
// and destroys its database.
func (m *Manager) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	cards := make([]*Card, 0, len(e.cards))
	for _, c := range e.cards {
		cards = append(cards, c)
	}
	m.mu.Unlock()

	for _, c := range cards {
		if err := m.UnloadCard(name, c.ID); err != nil {
			m.logger.Warn("card unload during removal failed",
				zap.String("plugin", name),
				zap.String("card", c.ID),
				zap.Error(err),
			)
		}
	}

	if err := e.plugin.OnDelete(name, e.store); err != nil {
		// Removal proceeds; the plugin forfeits its cleanup.
		m.logger.Warn("OnDelete failed",
			zap.String("plugin", name),
			zap.Error(err),
		)
	}

	if e.store != nil && !e.store.DeleteDatabase(ctx) {
		m.logger.Warn("database removal failed", zap.String("plugin", name))
	}

	m.mu.Lock()
	delete(m.entries, name)
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.logger.Info("plugin removed", zap.String("plugin", name))
	m.announce(LifecycleEvent{Type: EventRemoved, Plugin: name})
	return nil
}

// LoadCard creates a card instance for a plugin and runs OnLoad. The card
// gets the app bus, the plugin group's tool bus, and the plugin's store.
func (m *Manager) LoadCard(pluginName, cardName, container string) (*Card, error) {
	m.mu.Lock()
	e, ok := m.entries[pluginName]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginName)
	}

	card := &Card{
		ID:        uuid.NewString(),
		Name:      cardName,
		Container: container,
		AppBus:    m.appBus,
		ToolBus:   m.toolBusLocked(e.manifest.Group),
		Store:     e.store,
		fetcher:   m.fetcher,
	}
	e.cards[card.ID] = card
	e.state = StateActive
	m.mu.Unlock()

	if err := e.plugin.OnLoad(card, m.appBus); err != nil {
		m.mu.Lock()
		delete(e.cards, card.ID)
		if len(e.cards) == 0 {
			e.state = StateError
		}
		m.mu.Unlock()
		m.announce(LifecycleEvent{Type: EventFailed, Plugin: pluginName, CardID: card.ID, Err: err.Error()})
		return nil, fmt.Errorf("plugin %s: OnLoad: %w", pluginName, err)
	}

	m.logger.Debug("card loaded",
		zap.String("plugin", pluginName),
		zap.String("card", card.ID),
		zap.String("container", container),
	)
	m.announce(LifecycleEvent{Type: EventCardLoaded, Plugin: pluginName, CardID: card.ID})
	return card, nil
}

// UnloadCard removes a card instance and runs OnUnload.
func (m *Manager) UnloadCard(pluginName, cardID string) error {
	m.mu.Lock()
	e, ok := m.entries[pluginName]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, pluginName)
	}
	if _, ok := e.cards[cardID]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}
	delete(e.cards, cardID)
	if len(e.cards) == 0 {
		e.state = StateRegistered
	}
	m.mu.Unlock()

	if err := e.plugin.OnUnload(cardID); err != nil {
		m.announce(LifecycleEvent{Type: EventFailed, Plugin: pluginName, CardID: cardID, Err: err.Error()})
		return fmt.Errorf("plugin %s: OnUnload: %w", pluginName, err)
	}

	m.announce(LifecycleEvent{Type: EventCardUnloaded, Plugin: pluginName, CardID: cardID})
	return nil
}

// Store returns a plugin's scoped store, nil when the plugin declared no
// persistence.
func (m *Manager) Store(pluginName string) (*store.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[pluginName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginName)
	}
	return e.store, nil
}

// Plugins returns registered plugin names in registration order.
func (m *Manager) Plugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.loadOrder))
	copy(out, m.loadOrder)
	return out
}

// PluginState returns a plugin's lifecycle state.
func (m *Manager) PluginState(name string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return StateRegistered, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return e.state, nil
}

// CardCount returns the number of live cards for a plugin.
func (m *Manager) CardCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return 0
	}
	return len(e.cards)
}

// Close releases every plugin store handle. Plugins stay registered.
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var firstErr error
	for name, e := range m.entries {
		if e.store == nil {
			continue
		}
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store for %s: %w", name, err)
		}
	}
	return firstErr
}

func (m *Manager) setState(name string, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		e.state = s
	}
}

// announce publishes a lifecycle event on the app bus.
func (m *Manager) announce(ev LifecycleEvent) {
	m.appBus.Emit(ChannelPluginState, ev)
}
