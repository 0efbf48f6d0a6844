package plugin

import "errors"

// Sentinel errors for the plugin manager.
var (
	// ErrNilPlugin is returned when a nil plugin is registered.
	ErrNilPlugin = errors.New("plugin cannot be nil")

	// ErrNilManifest is returned when a nil manifest is provided.
	ErrNilManifest = errors.New("manifest cannot be nil")

	// ErrPluginExists is returned when registering a name already taken.
	ErrPluginExists = errors.New("plugin already registered")

	// ErrPluginNotFound is returned when operating on an unknown plugin.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrCardNotFound is returned when unloading an unknown card instance.
	ErrCardNotFound = errors.New("card not found")
)
