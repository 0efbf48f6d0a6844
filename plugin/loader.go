package plugin

import (
	"os"
	"path/filepath"
	"sort"
)

// Loader discovers plugin manifests on the filesystem.
type Loader struct {
	// Search paths for plugins (checked in order)
	paths []string

	// Discovered plugins cache
	discovered map[string]*Info
}

// Info contains discovery information about a plugin.
type Info struct {
	Name     string
	Path     string
	Manifest *Manifest
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*Info),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 2)

	// User plugins: ~/.config/hollow/plugins/
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "hollow", "plugins"))
	}

	// Project plugins: .hollow/plugins/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".hollow", "plugins"))
	}

	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath adds a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover finds all plugins in the search paths, sorted by name.
// A directory whose manifest fails to parse is still reported, with its
// Error set, so callers can surface the problem instead of silently
// skipping the plugin.
func (l *Loader) Discover() []*Info {
	l.discovered = make(map[string]*Info)

	for _, basePath := range l.paths {
		l.discoverInPath(basePath)
	}

	plugins := make([]*Info, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name < plugins[j].Name
	})
	return plugins
}

// discoverInPath finds plugins in a single directory. Missing search
// paths are skipped, not errors.
func (l *Loader) discoverInPath(basePath string) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(basePath, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "plugin.json")); err != nil {
			continue
		}

		info := &Info{Name: entry.Name(), Path: dir}
		manifest, err := LoadManifestFromDir(dir)
		if err != nil {
			info.Error = err
		} else {
			info.Name = manifest.Name
			info.Manifest = manifest
		}

		// First discovery of a name wins; later paths cannot shadow it.
		if _, seen := l.discovered[info.Name]; !seen {
			l.discovered[info.Name] = info
		}
	}
}

// Get returns a discovered plugin by name.
func (l *Loader) Get(name string) (*Info, bool) {
	info, ok := l.discovered[name]
	return info, ok
}
