package plugin

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/hollow-app/hollow-api/event"
	"github.com/hollow-app/hollow-api/store"
)

// Fetcher is the HTTP capability handed to cards. *http.Client satisfies
// it; hosts may wrap it to enforce policy.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Card is the context object a plugin receives for each placed instance.
// All references are scoped by construction: the buses and store are the
// exact instances the host decided this card may touch.
type Card struct {
	// ID uniquely identifies this card instance.
	ID string

	// Name is the card's display name.
	Name string

	// Container identifies the canvas container the card lives in.
	Container string

	// AppBus is the app-wide event bus shared by everything.
	AppBus *event.Bus

	// ToolBus is shared only by cards of the same plugin group.
	ToolBus *event.Bus

	// Store is the owning plugin's scoped persistence, nil when the
	// plugin declared no persistence.
	Store *store.Store

	fetcher  Fetcher
	elevated atomic.Bool
}

// Elevated reports whether the card is raised above the canvas viewport.
func (c *Card) Elevated() bool {
	return c.elevated.Load()
}

// SetElevated raises or lowers the card above the canvas viewport and
// announces the change on the app bus.
func (c *Card) SetElevated(elevated bool) {
	if c.elevated.Swap(elevated) == elevated {
		return
	}
	if c.AppBus != nil {
		c.AppBus.Emit(ChannelElevation, ElevationChange{
			CardID:   c.ID,
			Elevated: elevated,
		})
	}
}

// Fetch performs an HTTP request through the card's fetch capability.
func (c *Card) Fetch(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	f := c.fetcher
	if f == nil {
		f = http.DefaultClient
	}
	return f.Do(req)
}

// Notify emits a notification on the app bus on the card's behalf.
func (c *Card) Notify(kind NotifyKind, title, message string) {
	if c.AppBus == nil {
		return
	}
	c.AppBus.Emit(ChannelNotify, Notification{
		Title:   title,
		Message: message,
		Kind:    kind,
		Source:  c.Name,
	})
}
