package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Manifest describes a plugin's identity and requirements.
type Manifest struct {
	// Identity
	Name        string `json:"name"`        // Unique identifier (e.g., "kanban-card")
	Version     string `json:"version"`     // Semver (e.g., "1.2.0")
	DisplayName string `json:"displayName"` // Human-readable name
	Description string `json:"description"` // Short description
	Author      string `json:"author"`      // Author name or org
	License     string `json:"license"`     // SPDX license identifier

	// Entry point for script plugins; empty for compiled-in plugins.
	Main string `json:"main"`

	// Group names the tool bus the plugin's cards share. Defaults to
	// the plugin name, giving each plugin its own tool scope.
	Group string `json:"group"`

	// Persistence schema. SchemaVersion must be raised to add stores to
	// an existing installation; Stores defaults to a single partition
	// named after the plugin.
	SchemaVersion int      `json:"schemaVersion"`
	Stores        []string `json:"stores"`

	// Persist controls whether the plugin gets a scoped store at all.
	Persist bool `json:"persist"`

	// Card defaults for new instances.
	Card CardDefaults `json:"card"`

	// Settings is the plugin's settings-form shape, if any.
	Settings *SettingsForm `json:"settings,omitempty"`

	// Internal: directory the manifest was loaded from.
	path string
}

// CardDefaults is the default geometry for new card instances.
type CardDefaults struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Resizable bool `json:"resizable"`
}

// Validation errors.
var (
	ErrMissingName      = errors.New("manifest: name is required")
	ErrInvalidName      = errors.New("manifest: name must be alphanumeric with hyphens")
	ErrMissingVersion   = errors.New("manifest: version is required")
	ErrInvalidVersion   = errors.New("manifest: version must be valid semver")
	ErrInvalidMain      = errors.New("manifest: main must be a .lua file")
	ErrInvalidSchema    = errors.New("manifest: schemaVersion must be at least 1")
	ErrEmptyStoreName   = errors.New("manifest: store names must be non-empty")
	ErrInvalidFieldType = errors.New("manifest: invalid settings field type")
)

// namePattern validates plugin names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// validFieldTypes are the allowed settings field types.
var validFieldTypes = map[SettingsFieldType]bool{
	FieldText:   true,
	FieldNumber: true,
	FieldToggle: true,
	FieldSelect: true,
	FieldColor:  true,
}

// LoadManifest loads and validates a plugin manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads a manifest from a plugin directory.
// Looks for plugin.json in the directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, "plugin.json"))
}

// NewManifest creates a minimal valid manifest for a compiled-in plugin.
func NewManifest(name, version string) *Manifest {
	m := &Manifest{
		Name:    name,
		Version: version,
		Persist: true,
	}
	m.applyDefaults()
	return m
}

// applyDefaults sets default values for optional fields.
func (m *Manifest) applyDefaults() {
	if m.Version == "" {
		m.Version = "0.0.0"
	}
	if m.Group == "" {
		m.Group = m.Name
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = 1
	}
	if m.Card.Width == 0 {
		m.Card.Width = 4
	}
	if m.Card.Height == 0 {
		m.Card.Height = 3
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if m.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.Main != "" && filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	if m.SchemaVersion < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSchema, m.SchemaVersion)
	}
	for _, name := range m.Stores {
		if name == "" {
			return ErrEmptyStoreName
		}
	}

	if m.Settings != nil {
		for _, f := range m.Settings.Fields {
			if f.Type != "" && !validFieldTypes[f.Type] {
				return fmt.Errorf("%w: %s.%s has type %q", ErrInvalidFieldType, m.Name, f.Key, f.Type)
			}
		}
	}

	return nil
}

// Path returns the directory the manifest was loaded from.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main script file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Name
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}

// Clone creates a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	clone := *m

	if m.Stores != nil {
		clone.Stores = make([]string, len(m.Stores))
		copy(clone.Stores, m.Stores)
	}
	if m.Settings != nil {
		settings := *m.Settings
		settings.Fields = make([]SettingsField, len(m.Settings.Fields))
		copy(settings.Fields, m.Settings.Fields)
		clone.Settings = &settings
	}

	return &clone
}
