package plugin

import (
	"github.com/hollow-app/hollow-api/event"
	"github.com/hollow-app/hollow-api/store"
)

// Plugin is the lifecycle contract every card plugin implements.
// The host calls these methods; a plugin never calls them itself.
type Plugin interface {
	// OnCreate runs once when the plugin is installed. The store is the
	// plugin's own scoped persistence; it may be used to seed defaults.
	OnCreate(name string, st *store.Store) error

	// OnDelete runs when the plugin is uninstalled, before its database
	// is destroyed. Last chance to export or clean up external state.
	OnDelete(name string, st *store.Store) error

	// OnLoad runs for every card instance placed on the canvas. The bus
	// is the app-wide event bus; the card carries both bus scopes and
	// the plugin's store.
	OnLoad(card *Card, bus *event.Bus) error

	// OnUnload runs when the card instance with the given ID is removed.
	OnUnload(id string) error
}

// State represents the lifecycle state of a registered plugin.
type State int

const (
	// StateRegistered - the plugin is installed but has no live cards.
	StateRegistered State = iota

	// StateActive - at least one card instance is loaded.
	StateActive

	// StateError - a lifecycle call failed.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
