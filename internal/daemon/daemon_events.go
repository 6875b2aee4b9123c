package daemon

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/xdy-forks/foundry-simple-weather/internal/authority"
	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/config"
	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
	"github.com/xdy-forks/foundry-simple-weather/internal/settings"
	"github.com/xdy-forks/foundry-simple-weather/internal/versiongate"
)

func (d *Daemon) onProcessStart(_ context.Context, evt events.Event) error {
	e, _ := evt.(events.ProcessStarted)
	d.logger.Info("Process started",
		logfields.Role(d.session.Role().String()),
		slog.Time("started_at", e.StartedAt))
	return nil
}

func (d *Daemon) onLocalizationReady(_ context.Context, evt events.Event) error {
	e, _ := evt.(events.LocalizationReady)
	locale := e.Locale
	if locale == "" {
		locale = d.GetConfig().Localization.Locale
	}
	catalog := d.bundle.Catalog(locale)
	d.mu.Lock()
	d.catalog = catalog
	d.mu.Unlock()
	d.logger.Info("Localization loaded", logfields.Locale(catalog.Locale()))
	return nil
}

// onDependencyReady runs the version gate. When it fails the process stays
// up without registering settings or attaching any domain handler.
func (d *Daemon) onDependencyReady(ctx context.Context, _ events.Event) error {
	d.mu.RLock()
	catalog := d.catalog
	d.mu.RUnlock()

	gate := versiongate.Gate{
		Dependency: d.GetConfig().Module.CalendarDependency,
		Minimum:    d.GetConfig().Module.MinimumCalendarVersion,
		Registry:   versiongate.StaticRegistry(d.GetConfig().Dependencies),
		Notifier:   d.notifier,
		Localizer:  catalog,
		Logger:     d.logger,
	}
	res := gate.Run()
	d.recorder.SetVersionGate(res.Passed)

	d.mu.Lock()
	d.gate = res
	d.mu.Unlock()
	if !res.Passed {
		d.status.Store(StatusDisabled)
		return nil
	}
	return d.activate(ctx)
}

// activate registers the settings, loads the synchronizer, attaches the
// domain handlers and starts the calendar.
func (d *Daemon) activate(ctx context.Context) error {
	if d.activated {
		return nil
	}
	if err := d.store.RegisterAll(settings.Definitions()); err != nil {
		return err
	}
	if err := d.store.Start(ctx); err != nil {
		return err
	}
	if err := d.syncer.Load(ctx); err != nil {
		return err
	}

	d.hooks.On(events.NameCalendarReady, d.onCalendarReady)
	d.hooks.On(events.NameDateChanged, d.onDateChanged)
	d.hooks.On(events.NameSettingChanged, d.onSettingChanged)
	d.hooks.On(events.NameRenderComplete, d.onRenderComplete)
	d.hooks.On(events.NameWindowMoved, d.onWindowMoved)
	d.hooks.On(events.NameResetPosition, d.onResetPosition)
	d.hooks.On(events.NameRoleChanged, d.onRoleChanged)
	d.display.OnRenderComplete(func() { d.publish(events.RenderComplete{}) })
	d.activated = true

	if err := d.startRelay(); err != nil {
		d.logger.Warn("Calendar relay unavailable", logfields.Error(err))
	}
	go func() {
		if err := d.clock.Start(ctx); err != nil {
			d.logger.Error("Calendar clock failed to start", logfields.Error(err))
		}
	}()
	return nil
}

func (d *Daemon) startRelay() error {
	mode := d.GetConfig().Calendar.Relay
	if mode == config.RelayOff || mode == "" {
		return nil
	}
	conn, err := nats.Connect(d.GetConfig().Store.NATS.URL, nats.Name("simple-weather-calendar-"+d.clientID))
	if err != nil {
		return errors.NetworkError("failed to connect calendar relay").WithCause(err).Build()
	}
	d.natsConn = conn
	d.relay = calendar.NewRelay(conn, d.GetConfig().Store.NATS.CalendarSubject)
	if mode == config.RelayLead {
		d.relay.Lead(d.clock)
		return nil
	}
	return d.relay.Follow(d.context(), d.clock)
}

func (d *Daemon) onCalendarReady(ctx context.Context, _ events.Event) error {
	return d.syncer.OnCalendarReady(ctx)
}

func (d *Daemon) onDateChanged(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.DateChanged)
	if !ok {
		return nil
	}
	return d.syncer.OnDateChanged(ctx, e.Date)
}

func (d *Daemon) onSettingChanged(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.SettingChanged)
	if !ok {
		return nil
	}
	return d.bridge.OnSettingChanged(ctx, e)
}

func (d *Daemon) onRenderComplete(ctx context.Context, _ events.Event) error {
	return d.syncer.OnRenderComplete(ctx)
}

func (d *Daemon) onWindowMoved(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.WindowMoved)
	if !ok {
		return nil
	}
	return d.store.SetWindowPosition(ctx, &settings.WindowPosition{
		Top:    e.Top,
		Left:   e.Left,
		Width:  e.Width,
		Height: e.Height,
	})
}

// onResetPosition clears the saved window position when this process shows
// the display.
func (d *Daemon) onResetPosition(ctx context.Context, _ events.Event) error {
	enabled, err := d.syncer.DisplayEnabled(ctx)
	if err != nil || !enabled {
		return err
	}
	d.hub.ResetPosition()
	return d.store.SetWindowPosition(ctx, nil)
}

func (d *Daemon) onRoleChanged(_ context.Context, evt events.Event) error {
	e, ok := evt.(events.RoleChanged)
	if !ok {
		return nil
	}
	role, err := authority.ParseRole(e.Role)
	if err != nil {
		return err
	}
	if role != d.session.Role() {
		d.session.SetRole(role)
		d.logger.Info("Session role changed", logfields.Role(role.String()))
	}
	return nil
}

// publish hands evt to the event loop from a collaborator goroutine.
func (d *Daemon) publish(evt events.Event) {
	if err := d.bus.Publish(d.context(), evt); err != nil {
		d.logger.Debug("Event not published", logfields.Event(evt.EventName()), logfields.Error(err))
	}
}

func (d *Daemon) publishMove(pos settings.WindowPosition) {
	d.publish(events.WindowMoved{Top: pos.Top, Left: pos.Left, Width: pos.Width, Height: pos.Height})
}

// busSink turns the calendar clock's signals into bus events.
type busSink struct {
	bus *events.Bus
}

func (s *busSink) CalendarReady(ctx context.Context) error {
	return s.bus.Publish(ctx, events.CalendarReady{})
}

func (s *busSink) DateChanged(ctx context.Context, date calendar.DateData) error {
	return s.bus.Publish(ctx, events.DateChanged{Date: date})
}
