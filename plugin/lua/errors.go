package lua

import "errors"

// Sentinel errors for script plugins.
var (
	// ErrClosed is returned when a lifecycle call reaches a closed script.
	ErrClosed = errors.New("lua: script is closed")

	// ErrNoMain is returned when the manifest declares no script entry.
	ErrNoMain = errors.New("lua: manifest has no main script")
)
