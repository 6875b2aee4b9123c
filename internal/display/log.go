package display

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// LogDisplay writes the weather window to a logger. Its first push counts as
// the first render.
type LogDisplay struct {
	source  WeatherSource
	celsius func(ctx context.Context) bool
	logger  *slog.Logger

	mu       sync.Mutex
	rendered bool
	onRender []func()
}

// NewLogDisplay returns a LogDisplay reading persisted weather from source.
// celsius may be nil.
func NewLogDisplay(source WeatherSource, celsius func(ctx context.Context) bool, logger *slog.Logger) *LogDisplay {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDisplay{source: source, celsius: celsius, logger: logger}
}

func (d *LogDisplay) PushDate(_ context.Context, date calendar.DateData) error {
	d.logger.Info("Weather window date", logfields.Date(date.String()))
	d.renderedOnce()
	return nil
}

func (d *LogDisplay) PushWeather(ctx context.Context, w *weather.Data) error {
	if w == nil {
		d.logger.Info("Weather window cleared")
	} else {
		d.logger.Info("Weather window updated", slog.String("weather", w.Summary(d.useCelsius(ctx))))
	}
	d.renderedOnce()
	return nil
}

func (d *LogDisplay) ReloadWeather(ctx context.Context) error {
	if d.source == nil {
		return nil
	}
	w, err := d.source.LastWeatherData(ctx)
	if err != nil {
		return err
	}
	return d.PushWeather(ctx, w)
}

func (d *LogDisplay) OnRenderComplete(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rendered {
		go fn()
		return
	}
	d.onRender = append(d.onRender, fn)
}

func (d *LogDisplay) useCelsius(ctx context.Context) bool {
	return d.celsius != nil && d.celsius(ctx)
}

// renderedOnce runs the render callbacks after the first push. They run on
// their own goroutine because pushes happen inside event handlers.
func (d *LogDisplay) renderedOnce() {
	d.mu.Lock()
	if d.rendered {
		d.mu.Unlock()
		return
	}
	d.rendered = true
	fns := d.onRender
	d.onRender = nil
	d.mu.Unlock()
	for _, fn := range fns {
		go fn()
	}
}

// LogNotifier logs user notifications.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Error(msg string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg)
}

// LogChat logs chat messages.
type LogChat struct {
	Logger *slog.Logger
}

func (c LogChat) Post(_ context.Context, msg ChatMessage) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Chat", slog.String("text", msg.Text), slog.Bool("whisper", msg.Whisper))
	return nil
}
