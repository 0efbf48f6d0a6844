package lua

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hollow-app/hollow-api/event"
	"github.com/hollow-app/hollow-api/plugin"
	"github.com/hollow-app/hollow-api/store"
)

const testScript = `
function on_create(name, store)
    store.put(name, "installed", {version = 1, name = name})
end

function on_delete(name, store)
    store.put(name, "deleted", true)
end

function on_load(card, bus)
    card.store.put("lua-notes", card.id, card.name)

    card.bus.on("color", function(data)
        return data .. "-ack"
    end)

    -- Self-emission: the script listens and emits on the same channel.
    card.bus.on("self", function(data)
        card.store.put("lua-notes", "self-seen", data)
    end)
    card.bus.emit("self", "from-lua")

    bus.on("meaning", function(data)
        return 42
    end)
end

function on_unload(id)
    -- nothing to clean up; subscriptions are removed by the host
end
`

func loadTestScript(t *testing.T, src string) (*Script, *plugin.Manifest) {
	t.Helper()
	dir := t.TempDir()
	manifest := `{"name": "lua-notes", "version": "1.0.0", "main": "init.lua", "persist": true}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := plugin.LoadManifestFromDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestFromDir() failed: %v", err)
	}
	s, err := NewScript(m)
	if err != nil {
		t.Fatalf("NewScript() failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s, m
}

func testCard(t *testing.T) *plugin.Card {
	t.Helper()
	st := store.New(t.TempDir(), "lua-notes")
	t.Cleanup(func() { st.Close() })
	return &plugin.Card{
		ID:        "card-1",
		Name:      "my notes",
		Container: "main",
		AppBus:    event.NewBus(),
		ToolBus:   event.NewBus(),
		Store:     st,
	}
}

func TestNewScript_Validation(t *testing.T) {
	if _, err := NewScript(nil); err == nil {
		t.Error("NewScript(nil) must fail")
	}

	m := plugin.NewManifest("no-main", "1.0.0")
	if _, err := NewScript(m); err != ErrNoMain {
		t.Errorf("NewScript() without main = %v, want ErrNoMain", err)
	}
}

func TestNewScript_BadSource(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(`{"name": "bad", "version": "1.0.0", "main": "init.lua"}`), 0o644)
	os.WriteFile(filepath.Join(dir, "init.lua"), []byte(`function broken(`), 0o644)

	m, err := plugin.LoadManifestFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewScript(m); err == nil {
		t.Error("NewScript() with a syntax error must fail")
	}
}

func TestScript_OnCreate(t *testing.T) {
	ctx := context.Background()
	s, _ := loadTestScript(t, testScript)

	st := store.New(t.TempDir(), "lua-notes")
	defer st.Close()

	if err := s.OnCreate("lua-notes", st); err != nil {
		t.Fatalf("OnCreate() failed: %v", err)
	}

	raw, err := st.Get(ctx, "lua-notes", "installed")
	if err != nil || raw == nil {
		t.Fatalf("seed row missing: %q, %v", raw, err)
	}
	var seed struct {
		Version int    `json:"version"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(raw, &seed); err != nil {
		t.Fatalf("seed is not JSON: %v", err)
	}
	if seed.Version != 1 || seed.Name != "lua-notes" {
		t.Errorf("seed = %+v", seed)
	}
}

func TestScript_OnCreate_NilStore(t *testing.T) {
	s, _ := loadTestScript(t, `
function on_create(name, store)
    if store ~= nil then
        error("expected nil store")
    end
end
`)
	if err := s.OnCreate("lua-notes", nil); err != nil {
		t.Errorf("OnCreate() with nil store failed: %v", err)
	}
}

func TestScript_OnLoad(t *testing.T) {
	ctx := context.Background()
	s, _ := loadTestScript(t, testScript)
	card := testCard(t)

	if err := s.OnLoad(card, card.AppBus); err != nil {
		t.Fatalf("OnLoad() failed: %v", err)
	}

	// The script wrote the card name under its instance ID.
	var name string
	raw, err := card.Store.Get(ctx, "lua-notes", "card-1")
	if err != nil || raw == nil {
		t.Fatalf("card row missing: %q, %v", raw, err)
	}
	if json.Unmarshal(raw, &name); name != "my notes" {
		t.Errorf("card row = %q, want %q", name, "my notes")
	}

	// A Lua listener returns a value to the Go emitter.
	if got := card.ToolBus.Emit("color", "red"); got != "red-ack" {
		t.Errorf("Emit(color) = %v, want red-ack", got)
	}

	// Listeners on the app bus work the same way; Lua numbers come back
	// as int64.
	if got := card.AppBus.Emit("meaning", nil); got != int64(42) {
		t.Errorf("Emit(meaning) = %v (%T), want int64 42", got, got)
	}
}

func TestScript_SelfEmission(t *testing.T) {
	ctx := context.Background()
	s, _ := loadTestScript(t, testScript)
	card := testCard(t)

	if err := s.OnLoad(card, card.AppBus); err != nil {
		t.Fatalf("OnLoad() failed: %v", err)
	}

	// The script emitted on a channel it also listens to; the deferred
	// delivery must have run before OnLoad returned.
	var seen string
	raw, err := card.Store.Get(ctx, "lua-notes", "self-seen")
	if err != nil || raw == nil {
		t.Fatalf("self-emission was not delivered: %q, %v", raw, err)
	}
	if json.Unmarshal(raw, &seen); seen != "from-lua" {
		t.Errorf("self-seen = %q, want from-lua", seen)
	}
}

func TestScript_OnUnload_RemovesListeners(t *testing.T) {
	s, _ := loadTestScript(t, testScript)
	card := testCard(t)

	if err := s.OnLoad(card, card.AppBus); err != nil {
		t.Fatal(err)
	}
	if err := s.OnUnload(card.ID); err != nil {
		t.Fatalf("OnUnload() failed: %v", err)
	}

	if got := card.ToolBus.Emit("color", "red"); got != nil {
		t.Errorf("Emit() after unload = %v, want nil (listener removed)", got)
	}
}

func TestScript_MissingHooksAreOptional(t *testing.T) {
	s, _ := loadTestScript(t, `-- defines no lifecycle functions`)

	if err := s.OnCreate("lua-notes", nil); err != nil {
		t.Errorf("OnCreate() = %v, want nil for missing hook", err)
	}
	if err := s.OnUnload("card-1"); err != nil {
		t.Errorf("OnUnload() = %v, want nil for missing hook", err)
	}
}

func TestScript_FailingListenerIsIsolated(t *testing.T) {
	s, _ := loadTestScript(t, `
function on_load(card, bus)
    card.bus.on("boom", function(data)
        error("listener failure")
    end)
end
`)
	card := testCard(t)
	if err := s.OnLoad(card, card.AppBus); err != nil {
		t.Fatal(err)
	}

	after := 0
	card.ToolBus.OnFunc("boom", func(data any) any {
		after++
		return nil
	})

	// The failing Lua listener contributes nothing and must not break
	// the emission for listeners registered after it.
	if got := card.ToolBus.Emit("boom", nil); got != nil {
		t.Errorf("Emit() = %v, want nil", got)
	}
	if after != 1 {
		t.Errorf("later listener ran %d times, want 1", after)
	}
}

func TestScript_Closed(t *testing.T) {
	s, _ := loadTestScript(t, testScript)
	s.Close()

	if err := s.OnCreate("lua-notes", nil); err != ErrClosed {
		t.Errorf("OnCreate() on closed script = %v, want ErrClosed", err)
	}
	s.Close() // double close is safe
}

func TestScript_ValueBridge(t *testing.T) {
	s, _ := loadTestScript(t, `
function on_load(card, bus)
    card.bus.on("echo", function(data)
        return data
    end)
end
`)
	card := testCard(t)
	if err := s.OnLoad(card, card.AppBus); err != nil {
		t.Fatal(err)
	}

	in := map[string]any{
		"title": "roadmap",
		"count": int64(3),
		"tags":  []any{"a", "b"},
		"done":  true,
	}
	out, ok := card.ToolBus.Emit("echo", in).(map[string]any)
	if !ok {
		t.Fatalf("Emit(echo) returned %T, want map", out)
	}
	if out["title"] != "roadmap" || out["count"] != int64(3) || out["done"] != true {
		t.Errorf("round-tripped map = %#v", out)
	}
	tags, ok := out["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "a" {
		t.Errorf("round-tripped tags = %#v", out["tags"])
	}
}
