package plugin

// Well-known channel names on the app-wide bus. Plugins may define their
// own channels freely; these are the ones the host itself emits on or
// listens to.
const (
	// ChannelTheme carries the active theme name as a string.
	ChannelTheme = "theme"

	// ChannelNetwork carries the host's online state as a bool, so a
	// Toggle flips it.
	ChannelNetwork = "network-status"

	// ChannelNotify carries Notification payloads.
	ChannelNotify = "notify"

	// ChannelAlert carries AlertRequest payloads; the listener that owns
	// the alert surface returns an AlertHandle to the emitter.
	ChannelAlert = "alert"

	// ChannelModal carries ModalRequest payloads; the listener that owns
	// the modal surface returns a ModalHandle to the emitter.
	ChannelModal = "modal"

	// ChannelElevation carries ElevationChange payloads when a card
	// toggles above the canvas viewport.
	ChannelElevation = "card-elevation"

	// ChannelContextMenu carries ContextMenuItem payloads contributed by
	// plugins.
	ChannelContextMenu = "context-menu"

	// ChannelPluginState carries LifecycleEvent payloads emitted by the
	// Manager as plugins register, load cards, and unload.
	ChannelPluginState = "plugin-state"
)
