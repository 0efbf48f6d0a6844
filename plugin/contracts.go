package plugin

// Payload shapes crossing the bus. These carry no behavior; the host owns
// whatever rendering or routing happens on the other side.

// NotifyKind classifies a notification.
type NotifyKind string

// Notification kinds.
const (
	NotifyInfo    NotifyKind = "info"
	NotifySuccess NotifyKind = "success"
	NotifyWarning NotifyKind = "warning"
	NotifyError   NotifyKind = "error"
)

// Notification is a transient, non-blocking message to the user.
type Notification struct {
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Kind    NotifyKind `json:"kind"`
	Source  string     `json:"source"` // emitting card or plugin name
}

// AlertRequest asks the host to show a blocking confirmation.
type AlertRequest struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	AcceptLabel string `json:"acceptLabel"`
	CancelLabel string `json:"cancelLabel"`
	// ReplyChannel is where the host emits the user's bool choice.
	ReplyChannel string `json:"replyChannel"`
}

// AlertHandle is returned to the emitter of an AlertRequest.
type AlertHandle struct {
	ID string `json:"id"`
}

// ModalRequest asks the host to open a modal surface for a card.
type ModalRequest struct {
	CardID  string `json:"cardId"`
	Title   string `json:"title"`
	Content any    `json:"content"`
	// CloseChannel is emitted on when the modal is dismissed.
	CloseChannel string `json:"closeChannel"`
}

// ModalHandle is returned to the emitter of a ModalRequest so it can
// close the modal programmatically.
type ModalHandle struct {
	ID    string `json:"id"`
	Close func() `json:"-"`
}

// SettingsFieldType enumerates the input shapes a settings form may use.
type SettingsFieldType string

// Settings field types.
const (
	FieldText   SettingsFieldType = "text"
	FieldNumber SettingsFieldType = "number"
	FieldToggle SettingsFieldType = "toggle"
	FieldSelect SettingsFieldType = "select"
	FieldColor  SettingsFieldType = "color"
)

// SettingsField is one entry in a plugin's settings form.
type SettingsField struct {
	Key     string            `json:"key"`
	Label   string            `json:"label"`
	Type    SettingsFieldType `json:"type"`
	Default any               `json:"default,omitempty"`
	Options []string          `json:"options,omitempty"` // for FieldSelect
}

// SettingsForm describes a plugin's settings surface. Validation of the
// submitted values is the host's concern.
type SettingsForm struct {
	Title  string          `json:"title"`
	Fields []SettingsField `json:"fields"`
}

// ContextMenuItem is a menu entry a plugin contributes. Selecting it
// makes the host emit on EmitChannel with the item's ID.
type ContextMenuItem struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	EmitChannel string            `json:"emitChannel"`
	Children    []ContextMenuItem `json:"children,omitempty"`
}

// Grid is a card's placement on the canvas in grid units.
type Grid struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Transform is a card's full geometry state.
type Transform struct {
	Grid   Grid `json:"grid"`
	Z      int  `json:"z"`
	Locked bool `json:"locked"`
}

// ElevationChange reports a card toggling above the canvas viewport.
type ElevationChange struct {
	CardID   string `json:"cardId"`
	Elevated bool   `json:"elevated"`
}

// LifecycleEvent is emitted on ChannelPluginState by the Manager.
type LifecycleEvent struct {
	Type   LifecycleEventType `json:"type"`
	Plugin string             `json:"plugin"`
	CardID string             `json:"cardId,omitempty"`
	Err    string             `json:"error,omitempty"`
}

// LifecycleEventType is the type of manager lifecycle event.
type LifecycleEventType int

const (
	// EventRegistered is emitted when a plugin is registered.
	EventRegistered LifecycleEventType = iota
	// EventRemoved is emitted when a plugin is removed.
	EventRemoved
	// EventCardLoaded is emitted when a card instance loads.
	EventCardLoaded
	// EventCardUnloaded is emitted when a card instance unloads.
	EventCardUnloaded
	// EventFailed is emitted when a lifecycle call fails.
	EventFailed
)

// String returns a string representation of the event type.
func (t LifecycleEventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventRemoved:
		return "removed"
	case EventCardLoaded:
		return "card-loaded"
	case EventCardUnloaded:
		return "card-unloaded"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}
