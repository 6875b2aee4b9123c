// Package calendar models the calendar collaborator: the date records it emits,
// the provider interface the synchronizer calls and a local clock that stands
// in for the external calendar module.
package calendar

import (
	"fmt"
	"time"
)

// DateData is the date record carried by date-changed events. Fields are
// pointers because the calendar module may omit any of them.
type DateData struct {
	Year   *int `json:"year,omitempty"`
	Month  *int `json:"month,omitempty"`
	Day    *int `json:"day,omitempty"`
	Hour   *int `json:"hour,omitempty"`
	Minute *int `json:"minute,omitempty"`
	Second *int `json:"second,omitempty"`
}

// NewDate builds a complete record.
func NewDate(year, month, day, hour, minute, second int) DateData {
	return DateData{
		Year:   &year,
		Month:  &month,
		Day:    &day,
		Hour:   &hour,
		Minute: &minute,
		Second: &second,
	}
}

// FromTime builds a complete record from t in UTC.
func FromTime(t time.Time) DateData {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// Complete reports whether every field is present.
func (d DateData) Complete() bool {
	return d.Year != nil && d.Month != nil && d.Day != nil &&
		d.Hour != nil && d.Minute != nil && d.Second != nil
}

// SameDay reports whether both records are complete and fall on the same
// year, month and day. Any missing field makes the answer false.
func (d DateData) SameDay(other DateData) bool {
	if !d.Complete() || !other.Complete() {
		return false
	}
	return *d.Year == *other.Year && *d.Month == *other.Month && *d.Day == *other.Day
}

// HasChanged decides whether next is a different date than prev. A nil prev,
// an incomplete next or a different year/month/day all count as a change.
func HasChanged(prev *DateData, next DateData) bool {
	if prev == nil {
		return true
	}
	return !prev.SameDay(next)
}

func (d DateData) String() string {
	return fmt.Sprintf("%s-%s-%s %s:%s:%s",
		field(d.Year, 4), field(d.Month, 2), field(d.Day, 2),
		field(d.Hour, 2), field(d.Minute, 2), field(d.Second, 2))
}

func field(v *int, width int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%0*d", width, *v)
}
