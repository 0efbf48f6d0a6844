package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"
)

type note struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Pins  int    `json:"pins"`
}

func testStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(t.TempDir(), "notes-card", opts...)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_DatabaseName(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "kanban")
	defer s.Close()

	want := dir + string(os.PathSeparator) + "kanban-db"
	if s.Path() != want {
		t.Errorf("Path() = %q, want %q", s.Path(), want)
	}
	if s.Plugin() != "kanban" {
		t.Errorf("Plugin() = %q, want %q", s.Plugin(), "kanban")
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	in := note{Title: "hello", Body: "world", Pins: 3}
	if !s.Put(ctx, "notes-card", "n1", in) {
		t.Fatal("Put() = false, want true")
	}

	out, ok, err := Load[note](ctx, s, "notes-card", "n1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !ok {
		t.Fatal("Load() ok = false, want true")
	}
	if out != in {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	raw, err := s.Get(ctx, "notes-card", "ghost")
	if err != nil {
		t.Fatalf("Get() on missing key must not error, got %v", err)
	}
	if raw != nil {
		t.Errorf("Get() = %q, want nil for absent key", raw)
	}
}

func TestStore_GetUnknownPartition(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	// An undeclared partition is an engine error, not absence.
	if _, err := s.Get(ctx, "ghost-store", "k"); err == nil {
		t.Error("Get() on unknown partition must return an error")
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	s.Put(ctx, "notes-card", "n1", "v")
	if !s.Delete(ctx, "notes-card", "n1") {
		t.Fatal("Delete() = false, want true")
	}

	raw, err := s.Get(ctx, "notes-card", "n1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if raw != nil {
		t.Errorf("Get() after delete = %q, want nil", raw)
	}

	// Deleting a key that never existed is still success.
	if !s.Delete(ctx, "notes-card", "never-there") {
		t.Error("Delete() on absent key = false, want true")
	}
}

func TestStore_All(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	for _, k := range []string{"a", "b", "c"} {
		s.Put(ctx, "notes-card", k, k+"-value")
	}

	values, err := s.All(ctx, "notes-card")
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("All() returned %d values, want 3", len(values))
	}

	seen := make(map[string]bool)
	for _, raw := range values {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("stored value is not JSON: %v", err)
		}
		seen[v] = true
	}
	for _, want := range []string{"a-value", "b-value", "c-value"} {
		if !seen[want] {
			t.Errorf("All() missing %q", want)
		}
	}
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	s.Put(ctx, "notes-card", "k1", 1)
	s.Put(ctx, "notes-card", "k2", 2)

	keys, err := s.Keys(ctx, "notes-card")
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys() = %v, want 2 keys", keys)
	}
}

func TestStore_ClearLeavesOtherPartitions(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, WithVersion(1), WithStores("drafts", "published"))

	for i := 0; i < 5; i++ {
		s.Put(ctx, "drafts", string(rune('a'+i)), i)
	}
	s.Put(ctx, "published", "p1", "kept")

	if !s.Clear(ctx, "drafts") {
		t.Fatal("Clear() = false, want true")
	}

	values, err := s.All(ctx, "drafts")
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("cleared partition holds %d values, want 0", len(values))
	}

	raw, err := s.Get(ctx, "published", "p1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if raw == nil {
		t.Error("Clear() on one partition wiped another")
	}
}

func TestStore_UpgradeCreatesPartition(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// Fresh database opened straight at version 2: the version-2 partition
	// must exist before any put/get against it succeeds.
	s := New(dir, "board", WithVersion(2), WithStores("board", "archive"))
	defer s.Close()

	if !s.Put(ctx, "archive", "old", "entry") {
		t.Fatal("Put() into version-2 partition = false, want true")
	}
	raw, err := s.Get(ctx, "archive", "old")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if raw == nil {
		t.Fatal("Get() = nil, want stored value")
	}
}

func TestStore_UpgradePreservesData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1 := New(dir, "board", WithVersion(1), WithStores("board"))
	s1.Put(ctx, "board", "col", "todo")
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s2 := New(dir, "board", WithVersion(2), WithStores("board", "archive"))
	defer s2.Close()

	raw, err := s2.Get(ctx, "board", "col")
	if err != nil {
		t.Fatalf("Get() after upgrade failed: %v", err)
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil || v != "todo" {
		t.Errorf("value after upgrade = %q (%v), want %q", raw, err, "todo")
	}
}

func TestStore_DeleteDatabaseThenPut(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	s.Put(ctx, "notes-card", "k", "v")
	if !s.DeleteDatabase(ctx) {
		t.Fatal("DeleteDatabase() = false, want true")
	}

	// A later write transparently recreates the database from scratch.
	if !s.Put(ctx, "notes-card", "k2", "v2") {
		t.Fatal("Put() after DeleteDatabase() = false, want true")
	}
	raw, err := s.Get(ctx, "notes-card", "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if raw != nil {
		t.Error("data from before DeleteDatabase() survived")
	}
}

func TestStore_PathHelpers(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	s.Put(ctx, "notes-card", "doc", map[string]any{
		"title": "roadmap",
		"meta":  map[string]any{"pins": 2},
	})

	res, err := s.GetPath(ctx, "notes-card", "doc", "meta.pins")
	if err != nil {
		t.Fatalf("GetPath() failed: %v", err)
	}
	if !res.Exists() || res.Int() != 2 {
		t.Errorf("GetPath() = %v, want 2", res)
	}

	if !s.PutPath(ctx, "notes-card", "doc", "meta.pins", 5) {
		t.Fatal("PutPath() = false, want true")
	}
	res, err = s.GetPath(ctx, "notes-card", "doc", "meta.pins")
	if err != nil {
		t.Fatalf("GetPath() failed: %v", err)
	}
	if res.Int() != 5 {
		t.Errorf("GetPath() after PutPath() = %v, want 5", res)
	}

	// PutPath on an absent key creates the document.
	if !s.PutPath(ctx, "notes-card", "fresh", "a.b", "c") {
		t.Fatal("PutPath() on absent key = false, want true")
	}
	res, err = s.GetPath(ctx, "notes-card", "fresh", "a.b")
	if err != nil {
		t.Fatalf("GetPath() failed: %v", err)
	}
	if res.String() != "c" {
		t.Errorf("GetPath() = %q, want %q", res.String(), "c")
	}

	// Absent key: no error, result does not exist.
	res, err = s.GetPath(ctx, "notes-card", "ghost", "x")
	if err != nil {
		t.Fatalf("GetPath() on absent key must not error, got %v", err)
	}
	if res.Exists() {
		t.Error("GetPath() on absent key reports existing result")
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := testStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if s.Put(ctx, "notes-card", "k", "v") {
		t.Error("Put() with cancelled context = true, want false")
	}
	if _, err := s.Get(ctx, "notes-card", "k"); err == nil {
		t.Error("Get() with cancelled context must return an error")
	}
}
