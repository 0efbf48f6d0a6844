// Package main is a reference host: it discovers script plugins, wires
// them to a manager, and keeps them running until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hollow-app/hollow-api/event"
	"github.com/hollow-app/hollow-api/plugin"
	"github.com/hollow-app/hollow-api/plugin/lua"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to host config YAML")
	dataDir := flag.String("data", "", "override the plugin data directory")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hollowd %s (%s)\n", version, commit)
		return 0
	}

	cfg := plugin.DefaultManagerConfig()
	if *configPath != "" {
		loaded, err := plugin.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx := context.Background()
	manager := plugin.NewManager(cfg, plugin.WithManagerLogger(logger))
	defer manager.Close()

	// Log plugin lifecycle traffic on the app bus.
	event.Listen(manager.AppBus(), plugin.ChannelPluginState, func(ev plugin.LifecycleEvent) any {
		logger.Info("lifecycle",
			zap.Stringer("type", ev.Type),
			zap.String("plugin", ev.Plugin),
			zap.String("card", ev.CardID),
		)
		return nil
	})

	loader := plugin.NewLoader(plugin.WithPaths(cfg.PluginDirs...))
	for _, info := range loader.Discover() {
		if info.Error != nil {
			logger.Warn("skipping plugin",
				zap.String("plugin", info.Name),
				zap.Error(info.Error),
			)
			continue
		}
		if info.Manifest.Main == "" {
			logger.Warn("skipping plugin without a script entry",
				zap.String("plugin", info.Name),
			)
			continue
		}

		script, err := lua.NewScript(info.Manifest, lua.WithLogger(logger))
		if err != nil {
			logger.Error("failed to load script",
				zap.String("plugin", info.Name),
				zap.Error(err),
			)
			continue
		}
		if err := manager.Register(ctx, info.Manifest, script); err != nil {
			logger.Error("failed to register plugin",
				zap.String("plugin", info.Name),
				zap.Error(err),
			)
			script.Close()
			continue
		}
		if _, err := manager.LoadCard(info.Manifest.Name, info.Manifest.Name, "main"); err != nil {
			logger.Error("failed to load card",
				zap.String("plugin", info.Manifest.Name),
				zap.Error(err),
			)
		}
	}

	logger.Info("host running",
		zap.Strings("plugins", manager.Plugins()),
		zap.String("data_dir", cfg.DataDir),
	)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	logger.Info("shutting down")
	return 0
}

// newLogger builds a production zap logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
