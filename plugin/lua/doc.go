// Package lua adapts Lua scripts into card plugins.
//
// A Script satisfies the plugin.Plugin contract by dispatching lifecycle
// calls to functions the script defines:
//
//	function on_create(name, store)  -- optional
//	function on_delete(name, store)  -- optional
//	function on_load(card, bus)      -- optional
//	function on_unload(id)           -- optional
//
// The card table handed to on_load mirrors the Go Card context: emit/on/
// data over the tool bus, put/get/delete over the plugin's store, notify
// and elevate helpers. The bus table is the app-wide bus.
//
// The Lua state runs base, table, string, and math libraries only; io,
// os, debug, and package stay closed. gopher-lua states are not
// goroutine-safe, so every entry into the state, including bus listeners
// firing from Go, is serialized behind the Script's mutex.
package lua
