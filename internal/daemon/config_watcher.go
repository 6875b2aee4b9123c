package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xdy-forks/foundry-simple-weather/internal/config"
	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
)

// ConfigWatcher monitors the configuration file and applies the settings
// that can change while running: the session role and the log level.
type ConfigWatcher struct {
	configPath   string
	daemon       *Daemon
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	stopOnce     sync.Once
	reloadChan   chan struct{}
	debounceTime time.Duration
}

func NewConfigWatcher(configPath string, daemon *Daemon) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath:   absPath,
		daemon:       daemon,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 500 * time.Millisecond,
	}, nil
}

// Start watches the directory holding the config file; editors often
// replace the file instead of writing it in place.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}
	slog.Info("Starting configuration watcher", slog.String("config_path", cw.configPath))

	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)
	return nil
}

func (cw *ConfigWatcher) Stop() error {
	cw.stopOnce.Do(func() { close(cw.stopChan) })
	return cw.watcher.Close()
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)
	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", slog.String("file", event.Name), slog.String("op", event.Op.String()))
				cw.triggerReload()
			case event.Has(fsnotify.Remove):
				slog.Warn("Config file removed", slog.String("file", event.Name))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer
	stopTimer := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}
	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-cw.stopChan:
			stopTimer()
			return
		case <-cw.reloadChan:
			stopTimer()
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				if err := cw.performReload(ctx); err != nil {
					slog.Error("Failed to reload configuration", logfields.Error(err))
				}
			})
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	slog.Info("Reloading configuration", slog.String("config_path", cw.configPath))
	newConfig, err := config.Load(cw.configPath)
	if err != nil {
		return err
	}
	return cw.daemon.ReloadConfig(ctx, newConfig)
}

// ReloadConfig applies the hot-reloadable subset of newConfig. A role change
// goes through the event loop; the log level is applied directly. Other
// changes need a restart and are only logged.
func (d *Daemon) ReloadConfig(ctx context.Context, newConfig *config.Config) error {
	d.mu.Lock()
	old := d.config
	d.config = newConfig
	d.mu.Unlock()

	if d.opts.LogLevel != nil && newConfig.Logging.Level != old.Logging.Level {
		d.opts.LogLevel.Set(newConfig.Logging.Level.SlogLevel())
		d.logger.Info("Log level changed", slog.String("level", string(newConfig.Logging.Level)))
	}
	if newConfig.Store.Driver != old.Store.Driver || newConfig.Display.Listen != old.Display.Listen {
		d.logger.Warn("Store and display changes take effect after a restart")
	}
	if newConfig.Session.Role != old.Session.Role {
		return d.bus.Publish(ctx, events.RoleChanged{Role: newConfig.Session.Role})
	}
	return nil
}
