package events

import (
	"encoding/json"
	"time"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
)

// Names of the signals the event loop dispatches.
const (
	NameProcessStart      = "process-start"
	NameDependencyReady   = "dependency-ready"
	NameLocalizationReady = "localization-ready"
	NameCalendarReady     = "calendar-ready"
	NameDateChanged       = "date-changed"
	NameSettingChanged    = "setting-changed"
	NameRenderComplete    = "render-complete"
	NameWindowMoved       = "window-moved"
	NameResetPosition     = "reset-position"
	NameRoleChanged       = "role-changed"
)

// Event is implemented by every signal published on the bus.
type Event interface {
	EventName() string
}

// ProcessStarted is the first signal of a process.
type ProcessStarted struct {
	ClientID  string
	StartedAt time.Time
}

// DependencyReady is raised once the host has loaded every module; the
// version gate runs in response.
type DependencyReady struct{}

// LocalizationReady asks for the string table to be loaded.
type LocalizationReady struct {
	Locale string
}

// CalendarReady is raised by the calendar collaborator once it can answer
// timestamp queries.
type CalendarReady struct{}

// DateChanged carries the calendar's new date.
type DateChanged struct {
	Date calendar.DateData
}

// SettingChanged is raised on every process after any setting write, the
// writer included. Key is fully qualified ("<namespace>.<key>").
type SettingChanged struct {
	Key   string
	Value json.RawMessage
}

// RenderComplete is raised once, after the display finished its first render.
type RenderComplete struct{}

// WindowMoved reports a new window position from a display viewer.
type WindowMoved struct {
	Top    float64
	Left   float64
	Width  *float64
	Height *float64
}

// ResetPosition asks the display to forget its saved window position.
type ResetPosition struct{}

// RoleChanged reports a new session role after a configuration reload.
type RoleChanged struct {
	Role string
}

func (ProcessStarted) EventName() string { return NameProcessStart }
func (DependencyReady) EventName() string { return NameDependencyReady }
func (LocalizationReady) EventName() string { return NameLocalizationReady }
func (CalendarReady) EventName() string { return NameCalendarReady }
func (DateChanged) EventName() string { return NameDateChanged }
func (SettingChanged) EventName() string { return NameSettingChanged }
func (RenderComplete) EventName() string { return NameRenderComplete }
func (WindowMoved) EventName() string { return NameWindowMoved }
func (ResetPosition) EventName() string { return NameResetPosition }
func (RoleChanged) EventName() string { return NameRoleChanged }
