// Package commands implements the simple-weather command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/xdy-forks/foundry-simple-weather/internal/config"
	"github.com/xdy-forks/foundry-simple-weather/internal/kvstore"
	"github.com/xdy-forks/foundry-simple-weather/internal/settings"
)

// Global is shared by every subcommand.
type Global struct {
	Out      io.Writer
	Logger   *slog.Logger
	LogLevel *slog.LevelVar
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"simple-weather.yaml" env:"SIMPLE_WEATHER_CONFIG"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text or json)" default:"text" enum:"text,json"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" help:"Run a simple-weather process"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Check    CheckCmd    `cmd:"" help:"Check configuration and the calendar dependency version"`
	Settings SettingsCmd `cmd:"" help:"List, read and write module settings"`
	Show     VersionCmd  `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing and sets up logging once.
func (c *CLI) AfterApply(g *Global) error {
	level := new(slog.LevelVar)
	if c.Verbose {
		level.Set(slog.LevelDebug)
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.NormalizeLogFormat(c.LogFormat) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	g.Logger = slog.New(handler)
	g.LogLevel = level
	slog.SetDefault(g.Logger)
	return nil
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// loadConfig loads path. A missing file at the default location falls back
// to environment and defaults.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Warn("Configuration file not found; using environment and defaults", slog.String("path", path))
		return config.Load("")
	}
	return config.Load(path)
}

// openStore opens the backends named by cfg and returns a store with every
// setting registered. The returned function closes the backends.
func openStore(cfg *config.Config) (*settings.Store, func(), error) {
	world, err := kvstore.Open(kvstore.Options{
		Driver:     cfg.Store.Driver,
		Namespace:  cfg.Module.ID,
		ClientID:   cfg.Session.ClientID,
		SQLitePath: cfg.Store.SQLitePath,
		NATSURL:    cfg.Store.NATS.URL,
		Bucket:     cfg.Store.NATS.Bucket,
	})
	if err != nil {
		return nil, nil, err
	}
	closers := []kvstore.Backend{world}

	var opts []settings.Option
	if cfg.Store.ClientPath != "" {
		client, err := kvstore.Open(kvstore.Options{
			Driver:     kvstore.DriverSQLite,
			Namespace:  cfg.Module.ID,
			SQLitePath: cfg.Store.ClientPath,
		})
		if err != nil {
			_ = world.Close()
			return nil, nil, err
		}
		closers = append(closers, client)
		opts = append(opts, settings.WithClientBackend(client))
	}

	store := settings.NewStore(cfg.Module.ID, world, opts...)
	if err := store.RegisterAll(settings.Definitions()); err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, nil, err
	}
	return store, func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}, nil
}

func cmdContext() context.Context {
	return context.Background()
}
