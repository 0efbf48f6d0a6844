// Package plugin defines the contract between the host and independently
// authored card plugins, and the manager that drives it.
//
// A plugin extends the host without compile-time coupling: the host calls
// the plugin's lifecycle methods, and the plugin talks back exclusively
// through the two runtime services handed into those calls: the event
// bus (package event) and its scoped store (package store).
//
// # Lifecycle
//
//	OnCreate(name, store)  - the plugin was installed; seed initial data
//	OnLoad(card, bus)      - a card instance was placed on the canvas
//	OnUnload(id)           - a card instance was removed
//	OnDelete(name, store)  - the plugin is being uninstalled
//
// The Manager provisions one scoped store per plugin and two bus scopes:
// the app-wide bus shared by everything, and a tool bus shared only by
// cards of the same plugin group. Both are passed explicitly into each
// Card; nothing is reachable through ambient lookup.
//
// # Data contracts
//
// The payload types in this package (Notification, ModalRequest,
// SettingsForm, ContextMenuItem, ...) carry no behavior. They are the
// shapes plugins and the host exchange over the bus; rendering and
// routing of these payloads belong to the host, not to this module.
package plugin
