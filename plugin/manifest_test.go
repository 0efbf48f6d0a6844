package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validManifest() *Manifest {
	m := &Manifest{
		Name:    "kanban-card",
		Version: "1.2.0",
		Persist: true,
	}
	m.applyDefaults()
	return m
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Manifest)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(m *Manifest) {},
		},
		{
			name:    "missing name",
			mutate:  func(m *Manifest) { m.Name = "" },
			wantErr: ErrMissingName,
		},
		{
			name:    "uppercase name",
			mutate:  func(m *Manifest) { m.Name = "Kanban" },
			wantErr: ErrInvalidName,
		},
		{
			name:    "trailing hyphen",
			mutate:  func(m *Manifest) { m.Name = "kanban-" },
			wantErr: ErrInvalidName,
		},
		{
			name:   "single letter name",
			mutate: func(m *Manifest) { m.Name = "k" },
		},
		{
			name:    "bad version",
			mutate:  func(m *Manifest) { m.Version = "1.2" },
			wantErr: ErrInvalidVersion,
		},
		{
			name:   "prerelease version",
			mutate: func(m *Manifest) { m.Version = "1.2.0-beta.1" },
		},
		{
			name:    "non-lua main",
			mutate:  func(m *Manifest) { m.Main = "init.js" },
			wantErr: ErrInvalidMain,
		},
		{
			name:   "lua main",
			mutate: func(m *Manifest) { m.Main = "init.lua" },
		},
		{
			name:    "zero schema version",
			mutate:  func(m *Manifest) { m.SchemaVersion = -1 },
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "empty store name",
			mutate:  func(m *Manifest) { m.Stores = []string{"ok", ""} },
			wantErr: ErrEmptyStoreName,
		},
		{
			name: "bad settings field type",
			mutate: func(m *Manifest) {
				m.Settings = &SettingsForm{Fields: []SettingsField{{Key: "x", Type: "slider"}}}
			},
			wantErr: ErrInvalidFieldType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validManifest()
			tt.mutate(m)

			err := m.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifest_Defaults(t *testing.T) {
	m := &Manifest{Name: "notes"}
	m.applyDefaults()

	if m.Version != "0.0.0" {
		t.Errorf("default version = %q, want 0.0.0", m.Version)
	}
	if m.Group != "notes" {
		t.Errorf("default group = %q, want plugin name", m.Group)
	}
	if m.SchemaVersion != 1 {
		t.Errorf("default schemaVersion = %d, want 1", m.SchemaVersion)
	}
	if m.Card.Width == 0 || m.Card.Height == 0 {
		t.Error("card defaults not applied")
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.json")
	data := `{
		"name": "timer-card",
		"version": "2.0.1",
		"displayName": "Timer",
		"group": "widgets",
		"schemaVersion": 2,
		"stores": ["timers", "history"],
		"persist": true
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifestFromDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestFromDir() failed: %v", err)
	}
	if m.Name != "timer-card" || m.Version != "2.0.1" {
		t.Errorf("loaded %s, want timer-card v2.0.1", m)
	}
	if m.Group != "widgets" {
		t.Errorf("group = %q, want widgets", m.Group)
	}
	if m.SchemaVersion != 2 || len(m.Stores) != 2 {
		t.Errorf("schema = v%d %v, want v2 with 2 stores", m.SchemaVersion, m.Stores)
	}
	if m.Path() != dir {
		t.Errorf("Path() = %q, want %q", m.Path(), dir)
	}
}

func TestLoadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.json")
	if err := os.WriteFile(path, []byte(`{"name": "BAD NAME", "version": "1.0.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadManifest(path); !errors.Is(err, ErrInvalidName) {
		t.Errorf("LoadManifest() = %v, want ErrInvalidName", err)
	}
}

func TestLoadManifest_Missing(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "plugin.json")); err == nil {
		t.Error("LoadManifest() on missing file must return an error")
	}
}

func TestManifest_Clone(t *testing.T) {
	m := validManifest()
	m.Stores = []string{"a"}
	m.Settings = &SettingsForm{Fields: []SettingsField{{Key: "x", Type: FieldText}}}

	clone := m.Clone()
	clone.Stores[0] = "mutated"
	clone.Settings.Fields[0].Key = "mutated"

	if m.Stores[0] != "a" {
		t.Error("Clone() shares the stores slice")
	}
	if m.Settings.Fields[0].Key != "x" {
		t.Error("Clone() shares the settings fields")
	}
}
