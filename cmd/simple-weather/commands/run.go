package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/xdy-forks/foundry-simple-weather/internal/config"
	"github.com/xdy-forks/foundry-simple-weather/internal/daemon"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Role   string `help:"Session role override (gm or observer)"`
	Listen string `help:"Display server listen address override"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if r.Role != "" {
		cfg.Session.Role = r.Role
	}
	if r.Listen != "" {
		cfg.Display.Listen = r.Listen
	}
	if g.LogLevel != nil && !root.Verbose {
		g.LogLevel.Set(cfg.Logging.Level.SlogLevel())
	}
	return RunDaemon(cfg, root.Config, g)
}

// RunDaemon runs a daemon until SIGINT or SIGTERM.
func RunDaemon(cfg *config.Config, configPath string, g *Global) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.NewDaemon(cfg, daemon.Options{
		ConfigPath: configPath,
		LogLevel:   g.LogLevel,
		Logger:     g.Logger,
	})
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return err
	}
	return <-errChan
}
