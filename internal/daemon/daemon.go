// Package daemon runs one simple-weather process: it owns the settings
// store, the synchronizer, the bridge and the display hub, and drives them
// from a single event loop.
package daemon

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/xdy-forks/foundry-simple-weather/internal/authority"
	"github.com/xdy-forks/foundry-simple-weather/internal/bridge"
	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/config"
	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/display"
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/i18n"
	"github.com/xdy-forks/foundry-simple-weather/internal/kvstore"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
	"github.com/xdy-forks/foundry-simple-weather/internal/metrics"
	"github.com/xdy-forks/foundry-simple-weather/internal/settings"
	"github.com/xdy-forks/foundry-simple-weather/internal/synchronizer"
	"github.com/xdy-forks/foundry-simple-weather/internal/versiongate"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusDisabled Status = "disabled"
	StatusStopping Status = "stopping"
)

// loopBuffer is the capacity of the event loop's subscription.
const loopBuffer = 64

// Options overrides collaborators NewDaemon would otherwise build from the
// configuration. Every field is optional.
type Options struct {
	// ConfigPath enables the configuration watcher.
	ConfigPath string
	// World and Client replace the backends opened from cfg.Store. The
	// daemon does not close injected backends.
	World  kvstore.Backend
	Client kvstore.Backend
	// Generator replaces the stub weather generator.
	Generator weather.Generator
	// Notifier receives version gate notifications in addition to the
	// display hub and the log.
	Notifier versiongate.Notifier
	// Chat receives chat messages in addition to the display hub.
	Chat synchronizer.Chat
	// LogLevel is adjusted when a reloaded configuration changes the level.
	LogLevel *slog.LevelVar
	Logger   *slog.Logger
}

// Daemon is one process of a session.
type Daemon struct {
	config   *config.Config
	opts     Options
	clientID string
	logger   *slog.Logger
	status   atomic.Value // Status
	mu       sync.RWMutex

	bus      *events.Bus
	hooks    *events.Hooks
	session  *authority.Session
	store    *settings.Store
	syncer   *synchronizer.Synchronizer
	bridge   *bridge.Bridge
	hub      *display.Hub
	display  display.Display
	chat     chatSet
	notifier notifierSet
	clock    *calendar.Clock
	bundle   *i18n.Bundle
	catalog  *i18n.Catalog
	recorder metrics.Recorder
	registry *prom.Registry

	natsConn      *nats.Conn
	relay         *calendar.Relay
	httpServer    *HTTPServer
	configWatcher *ConfigWatcher
	closers       []io.Closer

	runCtx    context.Context
	gate      versiongate.Result
	activated bool
	stopChan  chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewDaemon builds every component of a process from cfg. Nothing runs until
// Start.
func NewDaemon(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.ConfigError("configuration is required").Build()
	}
	role, err := authority.ParseRole(cfg.Session.Role)
	if err != nil {
		return nil, err
	}

	clientID := cfg.Session.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(logfields.ClientID(clientID))

	d := &Daemon{
		config:   cfg,
		opts:     opts,
		clientID: clientID,
		logger:   logger,
		bus:      events.NewBus(),
		hooks:    events.NewHooks(),
		session:  authority.NewSession(role),
		recorder: metrics.NoopRecorder{},
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	d.status.Store(StatusStopped)

	if cfg.Metrics.Enabled {
		d.registry = prom.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	if d.bundle, err = i18n.Load(cfg.Localization.Dir); err != nil {
		return nil, err
	}
	d.catalog = d.bundle.Catalog(cfg.Localization.Locale)

	world, client, err := d.openBackends()
	if err != nil {
		d.closeOwned()
		return nil, err
	}
	d.store = settings.NewStore(cfg.Module.ID, world,
		settings.WithBus(d.bus),
		settings.WithClientBackend(client),
		settings.WithRecorder(d.recorder),
		settings.WithLogger(logger))

	d.buildDisplay()

	if d.clock, err = calendar.NewClock(calendar.ClockOptions{
		Start:    cfg.Calendar.StartTime(),
		Interval: cfg.Calendar.Tick,
		Step:     cfg.Calendar.Step,
	}, &busSink{bus: d.bus}); err != nil {
		d.closeOwned()
		return nil, errors.CalendarError("failed to create calendar clock").WithCause(err).Build()
	}

	generator := opts.Generator
	if generator == nil {
		seed := cfg.Generator.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		generator = weather.NewStubGenerator(seed)
	}

	d.syncer = synchronizer.New(synchronizer.Options{
		Settings:  d.store,
		Authority: d.session,
		Calendar:  d.clock,
		Display:   d.display,
		Generator: generator,
		Chat:      d.chat,
		Recorder:  d.recorder,
		Logger:    logger,
	})
	d.bridge = bridge.New(d.store.FullyQualified(settings.KeyLastWeatherData),
		d.syncer, d.display, d.store, d.syncer, logger).
		WithChat(bridge.ChatReport{Authority: d.session, Preferences: d.store, Chat: d.chat})

	if cfg.Display.Listen != "" {
		d.httpServer = NewHTTPServer(cfg, d)
	}
	if opts.ConfigPath != "" {
		if d.configWatcher, err = NewConfigWatcher(opts.ConfigPath, d); err != nil {
			logger.Warn("Config watcher unavailable", logfields.Error(err))
		}
	}

	d.hooks.Once(events.NameProcessStart, d.onProcessStart)
	d.hooks.Once(events.NameLocalizationReady, d.onLocalizationReady)
	d.hooks.Once(events.NameDependencyReady, d.onDependencyReady)
	return d, nil
}

// openBackends returns the world and client backends, opening the ones not
// injected through Options.
func (d *Daemon) openBackends() (kvstore.Backend, kvstore.Backend, error) {
	cfg := d.config
	world := d.opts.World
	if world == nil {
		b, err := kvstore.Open(kvstore.Options{
			Driver:     cfg.Store.Driver,
			Namespace:  cfg.Module.ID,
			ClientID:   d.clientID,
			SQLitePath: cfg.Store.SQLitePath,
			NATSURL:    cfg.Store.NATS.URL,
			Bucket:     cfg.Store.NATS.Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		d.closers = append(d.closers, b)
		world = b
	}

	client := d.opts.Client
	if client == nil && cfg.Store.ClientPath != "" {
		b, err := kvstore.Open(kvstore.Options{
			Driver:     kvstore.DriverSQLite,
			Namespace:  cfg.Module.ID,
			SQLitePath: cfg.Store.ClientPath,
		})
		if err != nil {
			return nil, nil, err
		}
		d.closers = append(d.closers, b)
		client = b
	}
	return world, client, nil
}

func (d *Daemon) buildDisplay() {
	cfg := d.config
	d.hub = display.NewHub(display.HubOptions{
		Source:      d.store,
		Positions:   d.store,
		Celsius:     d.useCelsius,
		Authority:   d.session,
		OnMoved:     d.publishMove,
		CheckOrigin: originChecker(cfg.Display.AllowedOrigins),
		Recorder:    d.recorder,
		Logger:      d.logger,
	})
	displays := display.Multi{d.hub}
	d.chat = chatSet{d.hub}
	d.notifier = notifierSet{d.hub, display.LogNotifier{Logger: d.logger}}
	if cfg.Display.Console {
		displays = append(displays, display.NewLogDisplay(d.store, d.useCelsius, d.logger))
		d.chat = append(d.chat, display.LogChat{Logger: d.logger})
	}
	if d.opts.Notifier != nil {
		d.notifier = append(d.notifier, d.opts.Notifier)
	}
	if d.opts.Chat != nil {
		d.chat = append(d.chat, d.opts.Chat)
	}
	d.display = displays
}

func (d *Daemon) useCelsius(ctx context.Context) bool {
	v, err := d.store.Bool(ctx, settings.KeyUseCelsius)
	return err == nil && v
}

// Start runs the process until ctx is done or Stop is called. It starts the
// HTTP server and config watcher, announces the startup signals and then
// serves the event loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.GetStatus() != StatusStopped {
		d.mu.Unlock()
		return errors.RuntimeError("daemon is not in stopped state").
			WithContext("status", string(d.GetStatus())).Build()
	}
	d.status.Store(StatusStarting)

	if d.httpServer != nil {
		if err := d.httpServer.Start(); err != nil {
			d.status.Store(StatusStopped)
			d.mu.Unlock()
			return err
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	d.runCtx = ctx
	evts, unsubscribe := events.Subscribe[events.Event](d.bus, loopBuffer)
	if d.configWatcher != nil {
		if err := d.configWatcher.Start(ctx); err != nil {
			d.logger.Error("Failed to start config watcher", logfields.Error(err))
		}
	}
	d.status.Store(StatusRunning)
	d.mu.Unlock()

	d.logger.Info("Simple weather daemon started",
		logfields.Role(d.session.Role().String()),
		slog.String("store", d.config.Store.Driver))

	go d.announce(ctx)
	d.mainLoop(ctx, evts)
	cancel()
	unsubscribe()

	d.status.Store(StatusStopping)
	d.shutdown()
	d.status.Store(StatusStopped)
	close(d.done)
	return nil
}

// announce publishes the startup signals in order. The version gate needs
// the string table, so localization comes before the dependency check.
func (d *Daemon) announce(ctx context.Context) {
	startup := []events.Event{
		events.ProcessStarted{ClientID: d.clientID, StartedAt: time.Now()},
		events.LocalizationReady{Locale: d.config.Localization.Locale},
		events.DependencyReady{},
	}
	for _, evt := range startup {
		if err := d.bus.Publish(ctx, evt); err != nil {
			d.logger.Warn("Startup signal not delivered", logfields.Event(evt.EventName()), logfields.Error(err))
			return
		}
	}
}

// Stop ends the event loop and waits for Start to finish shutting down.
func (d *Daemon) Stop(ctx context.Context) error {
	if d.GetStatus() == StatusStopped {
		return nil
	}
	d.stopOnce.Do(func() { close(d.stopChan) })
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return errors.WrapError(ctx.Err(), errors.CategoryRuntime, "daemon stop timed out").Build()
	}
}

func (d *Daemon) shutdown() {
	if d.configWatcher != nil {
		_ = d.configWatcher.Stop()
	}
	if d.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.httpServer.Stop(ctx); err != nil {
			d.logger.Warn("HTTP server shutdown", logfields.Error(err))
		}
		cancel()
	}
	if err := d.clock.Stop(); err != nil {
		d.logger.Debug("Calendar clock shutdown", logfields.Error(err))
	}
	if d.relay != nil {
		_ = d.relay.Close()
	}
	d.store.Stop()
	d.hub.Close()
	d.bus.Close()
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	d.closeOwned()
	d.logger.Info("Simple weather daemon stopped")
}

func (d *Daemon) closeOwned() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.logger.Warn("Failed to close backend", logfields.Error(err))
		}
	}
	d.closers = nil
}

// context returns the context of the running loop, or Background before
// Start.
func (d *Daemon) context() context.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.runCtx == nil {
		return context.Background()
	}
	return d.runCtx
}

// GetStatus returns the lifecycle status. A process whose version gate
// failed reports StatusDisabled while it keeps running.
func (d *Daemon) GetStatus() Status {
	return d.status.Load().(Status)
}

func (d *Daemon) ClientID() string { return d.clientID }

func (d *Daemon) Settings() *settings.Store { return d.store }

func (d *Daemon) Synchronizer() *synchronizer.Synchronizer { return d.syncer }

func (d *Daemon) Session() *authority.Session { return d.session }

func (d *Daemon) Hooks() *events.Hooks { return d.hooks }

func (d *Daemon) Bus() *events.Bus { return d.bus }

func (d *Daemon) Clock() *calendar.Clock { return d.clock }

func (d *Daemon) Hub() *display.Hub { return d.hub }

// Gate returns the version gate outcome; zero until dependency-ready ran.
func (d *Daemon) Gate() versiongate.Result {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.gate
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}
