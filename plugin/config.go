package plugin

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManagerConfig configures the plugin manager.
type ManagerConfig struct {
	// DataDir holds one database file per plugin.
	DataDir string `yaml:"data_dir"`

	// PluginDirs are directories searched for plugin manifests.
	PluginDirs []string `yaml:"plugin_dirs"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultManagerConfig returns sensible default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DataDir:    "data",
		PluginDirs: DefaultPluginPaths(),
		LogLevel:   "info",
	}
}

// LoadConfig reads a ManagerConfig from a YAML file, filling unset fields
// with defaults.
func LoadConfig(path string) (ManagerConfig, error) {
	cfg := DefaultManagerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}
