// Package synchronizer keeps this process's weather in step with the
// calendar. The authoritative process generates weather on a date change and
// persists it; every process shows the date and, through the bridge, the
// persisted weather.
package synchronizer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xdy-forks/foundry-simple-weather/internal/authority"
	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/display"
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
	"github.com/xdy-forks/foundry-simple-weather/internal/metrics"
	"github.com/xdy-forks/foundry-simple-weather/internal/settings"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// State is the lifecycle stage of a Synchronizer.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Settings is the part of the settings store the synchronizer uses.
type Settings interface {
	LastWeatherData(ctx context.Context) (*weather.Data, error)
	SetLastWeatherData(ctx context.Context, d *weather.Data) error
	Bool(ctx context.Context, key settings.Key) (bool, error)
	String(ctx context.Context, key settings.Key) (string, error)
	Number(ctx context.Context, key settings.Key) (float64, error)
}

// Chat posts weather reports to the chat log.
type Chat interface {
	Post(ctx context.Context, msg display.ChatMessage) error
}

// Options wires a Synchronizer. Settings, Authority, Calendar, Display and
// Generator are required.
type Options struct {
	Settings  Settings
	Authority authority.Resolver
	Calendar  calendar.Provider
	Display   display.Display
	Generator weather.Generator
	Chat      Chat
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

// Synchronizer is driven by the event loop; its handlers are not meant to run
// concurrently, the mutex only guards readers such as status endpoints.
type Synchronizer struct {
	opts     Options
	recorder metrics.Recorder
	logger   *slog.Logger

	mu       sync.RWMutex
	state    State
	current  *weather.Data
	lastDate *calendar.DateData
}

func New(opts Options) *Synchronizer {
	s := &Synchronizer{opts: opts, recorder: metrics.Or(opts.Recorder), logger: opts.Logger}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// State returns the current lifecycle stage.
func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the weather this process currently holds, or nil.
func (s *Synchronizer) Current() *weather.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LastDate returns the last date the synchronizer acted on, or nil.
func (s *Synchronizer) LastDate() *calendar.DateData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastDate == nil {
		return nil
	}
	d := *s.lastDate
	return &d
}

// Load seeds the in-memory weather and last known date from the persisted
// weather. It runs once; later calls do nothing. Nothing is written.
func (s *Synchronizer) Load(ctx context.Context) error {
	if s.State() != Uninitialized {
		s.logger.Debug("Synchronizer already loaded", logfields.State(s.State().String()))
		return nil
	}
	w, err := s.opts.Settings.LastWeatherData(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = w
	if w != nil {
		d := w.Date()
		s.lastDate = &d
	}
	s.state = Loading
	s.mu.Unlock()

	if w != nil {
		s.logger.Info("Loaded saved weather", logfields.Date(w.Date().String()))
	} else {
		s.logger.Info("No saved weather")
	}
	return nil
}

// OnCalendarReady moves Loading to Ready and, when this process shows the
// display, pushes the calendar's current date.
func (s *Synchronizer) OnCalendarReady(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Uninitialized:
		s.mu.Unlock()
		s.logger.Debug("Calendar ready before load; ignored")
		return nil
	case Ready:
		s.mu.Unlock()
		return nil
	}
	s.state = Ready
	s.mu.Unlock()
	s.logger.Info("Synchronizer ready", logfields.State(Ready.String()))

	enabled, err := s.displayEnabled(ctx)
	if err != nil || !enabled {
		return err
	}
	date := s.opts.Calendar.TimestampToDate(s.opts.Calendar.Timestamp())
	return s.pushDate(ctx, date)
}

// OnDateChanged reacts to a calendar date change. A change of day on the
// authoritative process generates and persists new weather; a same-day
// change only refreshes the displayed date.
func (s *Synchronizer) OnDateChanged(ctx context.Context, date calendar.DateData) error {
	if s.State() != Ready {
		s.recorder.IncDateChange(metrics.DateIgnored)
		s.logger.Debug("Date change before ready; ignored", logfields.Date(date.String()))
		return nil
	}

	enabled, err := s.displayEnabled(ctx)
	if err != nil {
		return err
	}

	if !calendar.HasChanged(s.LastDate(), date) {
		s.recorder.IncDateChange(metrics.DateUnchanged)
		if enabled {
			return s.pushDate(ctx, date)
		}
		return nil
	}

	if !s.opts.Authority.IsAuthoritative() {
		s.mu.Lock()
		d := date
		s.lastDate = &d
		s.mu.Unlock()
		s.recorder.IncDateChange(metrics.DateObserved)
		if enabled {
			return s.pushDate(ctx, date)
		}
		return nil
	}

	w, err := s.regenerate(ctx, date)
	if err != nil {
		return err
	}
	s.recorder.IncDateChange(metrics.DateRegenerated)
	s.postChat(ctx, w)

	if !enabled {
		return nil
	}
	if err := s.pushDate(ctx, date); err != nil {
		return err
	}
	return s.pushWeather(ctx, w)
}

// regenerate produces weather for date and persists it. State is only
// updated after the write succeeded.
func (s *Synchronizer) regenerate(ctx context.Context, date calendar.DateData) (*weather.Data, error) {
	start := time.Now()
	in, err := s.generatorInput(ctx, date)
	if err != nil {
		return nil, err
	}

	w, err := s.opts.Generator.Generate(ctx, in)
	if err == nil && w == nil {
		err = errors.GenerationError("generator returned no weather").Build()
	}
	if err != nil {
		s.recorder.ObserveGenerationDuration(time.Since(start), false)
		return nil, errors.GenerationError("weather generation failed").
			WithCause(err).WithContext("date", date.String()).Build()
	}

	if err := s.opts.Settings.SetLastWeatherData(ctx, w); err != nil {
		s.recorder.ObserveGenerationDuration(time.Since(start), false)
		return nil, err
	}
	s.recorder.ObserveGenerationDuration(time.Since(start), true)

	s.mu.Lock()
	s.current = w
	d := date
	s.lastDate = &d
	s.mu.Unlock()

	s.logger.Info("Generated weather",
		logfields.Date(date.String()),
		slog.Int("hex_flower_cell", w.HexFlowerCell()),
		slog.Float64("temperature", w.Temperature()))
	return w, nil
}

func (s *Synchronizer) generatorInput(ctx context.Context, date calendar.DateData) (weather.Input, error) {
	in := weather.Input{Date: date, Previous: s.Current()}

	seasonName, err := s.opts.Settings.String(ctx, settings.KeySeason)
	if err != nil {
		return in, err
	}
	if in.Season, err = weather.ParseSeason(seasonName); err != nil {
		s.logger.Warn("Unknown season setting; using spring", slog.String("season", seasonName))
		in.Season = weather.Spring
	}
	if in.Biome, err = s.opts.Settings.String(ctx, settings.KeyBiome); err != nil {
		return in, err
	}
	climate, err := s.opts.Settings.Number(ctx, settings.KeyClimate)
	if err != nil {
		return in, err
	}
	humidity, err := s.opts.Settings.Number(ctx, settings.KeyHumidity)
	if err != nil {
		return in, err
	}
	in.Climate = weather.Climate(int(climate))
	in.Humidity = weather.Humidity(int(humidity))
	return in, nil
}

// OnRenderComplete pushes the calendar's current date and the held weather
// once the display finished its first render.
func (s *Synchronizer) OnRenderComplete(ctx context.Context) error {
	if s.State() == Uninitialized {
		return nil
	}
	date := s.opts.Calendar.TimestampToDate(s.opts.Calendar.Timestamp())
	if err := s.pushDate(ctx, date); err != nil {
		return err
	}
	if w := s.Current(); w != nil {
		return s.pushWeather(ctx, w)
	}
	return nil
}

// Adopt replaces the held weather with one persisted by another process.
func (s *Synchronizer) Adopt(w *weather.Data) {
	if w == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = w
	d := w.Date()
	s.lastDate = &d
}

// DisplayEnabled reports whether this process shows the weather window: the
// authoritative process always does, others when dialogDisplay is on.
func (s *Synchronizer) DisplayEnabled(ctx context.Context) (bool, error) {
	return s.displayEnabled(ctx)
}

func (s *Synchronizer) displayEnabled(ctx context.Context) (bool, error) {
	if s.opts.Authority.IsAuthoritative() {
		return true, nil
	}
	return s.opts.Settings.Bool(ctx, settings.KeyDialogDisplay)
}

func (s *Synchronizer) pushDate(ctx context.Context, date calendar.DateData) error {
	if err := s.opts.Display.PushDate(ctx, date); err != nil {
		return errors.DisplayError("display rejected date").WithCause(err).Build()
	}
	return nil
}

func (s *Synchronizer) pushWeather(ctx context.Context, w *weather.Data) error {
	if err := s.opts.Display.PushWeather(ctx, w); err != nil {
		return errors.DisplayError("display rejected weather").WithCause(err).Build()
	}
	return nil
}

// postChat reports new weather to chat when outputWeatherToChat is on.
// Failures are logged; the weather is already persisted.
func (s *Synchronizer) postChat(ctx context.Context, w *weather.Data) {
	if s.opts.Chat == nil {
		return
	}
	enabled, err := s.opts.Settings.Bool(ctx, settings.KeyOutputWeatherToChat)
	if err != nil || !enabled {
		return
	}
	public, err := s.opts.Settings.Bool(ctx, settings.KeyPublicChat)
	if err != nil {
		s.logger.Warn("Chat output skipped", logfields.Error(err))
		return
	}
	celsius, err := s.opts.Settings.Bool(ctx, settings.KeyUseCelsius)
	if err != nil {
		s.logger.Warn("Chat output skipped", logfields.Error(err))
		return
	}
	msg := display.ChatMessage{Text: w.Summary(celsius), Whisper: !public}
	if err := s.opts.Chat.Post(ctx, msg); err != nil {
		s.logger.Warn("Chat output failed", logfields.Error(err))
	}
}
