package weather

import (
	"fmt"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
)

// Data is one generated weather state. It is immutable; every read from
// storage builds a new instance through FromRecord.
type Data struct {
	date          calendar.DateData
	season        Season
	humidity      Humidity
	climate       Climate
	hexFlowerCell int
	temperature   float64
}

// Record is the plain structural form stored in the settings backend.
type Record struct {
	Date          *calendar.DateData `json:"date,omitempty"`
	Season        Season             `json:"season"`
	Humidity      Humidity           `json:"humidity"`
	Climate       Climate            `json:"climate"`
	HexFlowerCell int                `json:"hexFlowerCell"`
	Temperature   float64            `json:"temperature"`
}

// New builds a Data value. Temperature is in degrees Fahrenheit.
func New(date calendar.DateData, season Season, humidity Humidity, climate Climate, hexFlowerCell int, temperature float64) *Data {
	return &Data{
		date:          date,
		season:        season,
		humidity:      humidity,
		climate:       climate,
		hexFlowerCell: hexFlowerCell,
		temperature:   temperature,
	}
}

// FromRecord reconstructs a Data value from its stored form. A nil record
// yields nil.
func FromRecord(rec *Record) *Data {
	if rec == nil {
		return nil
	}
	var date calendar.DateData
	if rec.Date != nil {
		date = *rec.Date
	}
	return New(date, rec.Season, rec.Humidity, rec.Climate, rec.HexFlowerCell, rec.Temperature)
}

// Record returns the structural form of d for persistence.
func (d *Data) Record() Record {
	date := d.date
	return Record{
		Date:          &date,
		Season:        d.season,
		Humidity:      d.humidity,
		Climate:       d.climate,
		HexFlowerCell: d.hexFlowerCell,
		Temperature:   d.temperature,
	}
}

func (d *Data) Date() calendar.DateData { return d.date }
func (d *Data) Season() Season { return d.season }
func (d *Data) Humidity() Humidity { return d.humidity }
func (d *Data) Climate() Climate { return d.climate }
func (d *Data) HexFlowerCell() int { return d.hexFlowerCell }
func (d *Data) Temperature() float64 { return d.temperature }

// TemperatureIn returns the temperature in Celsius when celsius is set,
// Fahrenheit otherwise.
func (d *Data) TemperatureIn(celsius bool) float64 {
	if celsius {
		return (d.temperature - 32) * 5 / 9
	}
	return d.temperature
}

// Summary is the one-line text used for chat output.
func (d *Data) Summary(celsius bool) string {
	unit := "°F"
	if celsius {
		unit = "°C"
	}
	return fmt.Sprintf("%s: %.0f%s, %s %s, %s", d.date.String(), d.TemperatureIn(celsius), unit,
		d.climate, d.season, d.humidity)
}
