// Package display renders the weather window. The synchronizer and bridge
// only talk to the Display interface; Hub serves it to browser viewers over
// websockets and LogDisplay writes it to the log for headless processes.
package display

import (
	"context"
	"errors"
	"sync"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// Display is the weather window of one process.
type Display interface {
	// PushDate shows the current calendar date.
	PushDate(ctx context.Context, date calendar.DateData) error
	// PushWeather shows w. A nil w clears the weather panel.
	PushWeather(ctx context.Context, w *weather.Data) error
	// ReloadWeather re-reads the persisted weather and shows it.
	ReloadWeather(ctx context.Context) error
	// OnRenderComplete registers fn to run once after the first render.
	OnRenderComplete(fn func())
}

// WeatherSource supplies the persisted weather for ReloadWeather.
type WeatherSource interface {
	LastWeatherData(ctx context.Context) (*weather.Data, error)
}

// ChatMessage is a weather report for the chat log.
type ChatMessage struct {
	Text string `json:"text"`
	// Whisper restricts the message to the GM.
	Whisper bool `json:"whisper"`
}

// Multi fans every call out to several displays.
type Multi []Display

func (m Multi) PushDate(ctx context.Context, date calendar.DateData) error {
	var errs []error
	for _, d := range m {
		errs = append(errs, d.PushDate(ctx, date))
	}
	return errors.Join(errs...)
}

func (m Multi) PushWeather(ctx context.Context, w *weather.Data) error {
	var errs []error
	for _, d := range m {
		errs = append(errs, d.PushWeather(ctx, w))
	}
	return errors.Join(errs...)
}

func (m Multi) ReloadWeather(ctx context.Context) error {
	var errs []error
	for _, d := range m {
		errs = append(errs, d.ReloadWeather(ctx))
	}
	return errors.Join(errs...)
}

// OnRenderComplete registers fn on every display; it still runs only once.
func (m Multi) OnRenderComplete(fn func()) {
	var once sync.Once
	for _, d := range m {
		d.OnRenderComplete(func() { once.Do(fn) })
	}
}
