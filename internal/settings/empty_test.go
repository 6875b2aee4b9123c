package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

func TestIsEmpty(t *testing.T) {
	date := calendar.NewDate(1, 1, 1, 0, 0, 0)
	var nilData *weather.Data
	var nilRecord *weather.Record
	var nilPos *WindowPosition

	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"typed nil data", nilData, true},
		{"typed nil record", nilRecord, true},
		{"typed nil position", nilPos, true},
		{"json null", json.RawMessage("null"), true},
		{"empty raw", json.RawMessage(""), true},
		{"empty object", json.RawMessage("{}"), true},
		{"zero record", weather.Record{}, false},
		{"zero record pointer", &weather.Record{}, false},
		{"zero position", WindowPosition{}, false},
		{"zero position pointer", &WindowPosition{}, false},
		{"empty struct", struct{}{}, true},
		{"struct with omitted fields", struct {
			Top *float64 `json:"top,omitempty"`
		}{}, true},
		{"empty map", map[string]any{}, true},
		{"object with field", json.RawMessage(`{"temperature":0}`), false},
		{"record with date", weather.Record{Date: &date}, false},
		{"data", sampleWeather(), false},
		{"map with field", map[string]any{"top": 1}, false},
		{"bool", false, false},
		{"string", "", false},
		{"number", 0, false},
		{"raw string", json.RawMessage(`"x"`), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsEmpty(tc.value))
		})
	}
}

func TestIsEmpty_RecordsAgreeWithStoredForm(t *testing.T) {
	width := 300.0
	values := []any{
		weather.Record{},
		weather.Record{HexFlowerCell: 4},
		WindowPosition{},
		WindowPosition{Top: 10, Width: &width},
	}
	for _, v := range values {
		raw, err := json.Marshal(v)
		assert.NoError(t, err)
		assert.Equal(t, IsEmpty(json.RawMessage(raw)), IsEmpty(v), string(raw))
	}
}
