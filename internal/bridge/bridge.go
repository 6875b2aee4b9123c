// Package bridge turns setting-changed notifications for the persisted
// weather into display reloads on every process. Processes that did not
// write the weather also repeat a public weather report in their own chat.
package bridge

import (
	"context"
	"log/slog"

	"github.com/xdy-forks/foundry-simple-weather/internal/authority"
	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/display"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
	"github.com/xdy-forks/foundry-simple-weather/internal/settings"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// Gate reports whether this process shows the weather window.
type Gate interface {
	DisplayEnabled(ctx context.Context) (bool, error)
}

// Adopter receives the weather persisted by another process.
type Adopter interface {
	Adopt(w *weather.Data)
}

// Source reads the persisted weather.
type Source interface {
	LastWeatherData(ctx context.Context) (*weather.Data, error)
}

// Preferences reads the chat settings.
type Preferences interface {
	Bool(ctx context.Context, key settings.Key) (bool, error)
}

// Chat posts messages to this process's chat log.
type Chat interface {
	Post(ctx context.Context, msg display.ChatMessage) error
}

// ChatReport configures the relay of public weather reports. The process
// that generated the weather posts its own report; every other process
// posts it here when outputWeatherToChat and publicChat are both on.
type ChatReport struct {
	Authority   authority.Resolver
	Preferences Preferences
	Chat        Chat
}

// Bridge reacts to changes of one fully-qualified key. It never generates
// weather.
type Bridge struct {
	key     string
	gate    Gate
	display display.Display
	source  Source
	adopter Adopter
	report  *ChatReport
	logger  *slog.Logger
}

// New returns a bridge for weatherKey, the fully-qualified lastWeatherData
// key. source and adopter may be nil; with both set the bridge also hands
// the new weather to adopter.
func New(weatherKey string, gate Gate, d display.Display, source Source, adopter Adopter, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{key: weatherKey, gate: gate, display: d, source: source, adopter: adopter, logger: logger}
}

// WithChat enables chat reports on processes that did not write the
// weather. It needs a source.
func (b *Bridge) WithChat(r ChatReport) *Bridge {
	b.report = &r
	return b
}

// Key returns the key the bridge listens for.
func (b *Bridge) Key() string { return b.key }

// OnSettingChanged handles one notification. Other keys are ignored.
func (b *Bridge) OnSettingChanged(ctx context.Context, evt events.SettingChanged) error {
	if evt.Key != b.key {
		return nil
	}

	if b.source != nil && (b.adopter != nil || b.report != nil) {
		w, err := b.source.LastWeatherData(ctx)
		if err != nil {
			return err
		}
		if b.adopter != nil {
			b.adopter.Adopt(w)
		}
		b.reportChat(ctx, w)
	}

	enabled, err := b.gate.DisplayEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		b.logger.Debug("Weather changed; display disabled", logfields.SettingKey(evt.Key))
		return nil
	}
	b.logger.Debug("Weather changed; reloading display", logfields.SettingKey(evt.Key))
	return b.display.ReloadWeather(ctx)
}

// reportChat repeats a public weather report on a process that did not
// generate w. Failures are logged; the display reload still runs.
func (b *Bridge) reportChat(ctx context.Context, w *weather.Data) {
	r := b.report
	if r == nil || w == nil || r.Chat == nil || r.Preferences == nil {
		return
	}
	if r.Authority != nil && r.Authority.IsAuthoritative() {
		return
	}
	for _, key := range []settings.Key{settings.KeyOutputWeatherToChat, settings.KeyPublicChat} {
		on, err := r.Preferences.Bool(ctx, key)
		if err != nil {
			b.logger.Warn("Chat report skipped", logfields.SettingKey(string(key)), logfields.Error(err))
			return
		}
		if !on {
			return
		}
	}
	celsius, err := r.Preferences.Bool(ctx, settings.KeyUseCelsius)
	if err != nil {
		b.logger.Warn("Chat report skipped", logfields.Error(err))
		return
	}
	if err := r.Chat.Post(ctx, display.ChatMessage{Text: w.Summary(celsius)}); err != nil {
		b.logger.Warn("Chat report failed", logfields.Error(err))
	}
}

// Handler adapts the bridge to the event loop's hook registry.
func (b *Bridge) Handler() events.Handler {
	return func(ctx context.Context, evt events.Event) error {
		sc, ok := evt.(events.SettingChanged)
		if !ok {
			return nil
		}
		return b.OnSettingChanged(ctx, sc)
	}
}
