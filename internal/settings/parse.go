package settings

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// ParseValue converts command-line text into a value Set accepts for t.
// Structured types take JSON; "null" clears them.
func ParseValue(t ValueType, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch t {
	case TypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, ErrInvalidValue.WithContext("type", t.String()).WithContext("value", raw)
		}
		return b, nil
	case TypeString:
		return raw, nil
	case TypeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, ErrInvalidValue.WithContext("type", t.String()).WithContext("value", raw)
		}
		return f, nil
	case TypeWeatherData:
		if raw == "" || raw == "null" {
			return nil, nil
		}
		var rec weather.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, ErrInvalidValue.Wrap(err).WithContext("type", t.String())
		}
		return rec, nil
	case TypeWindowPosition:
		if raw == "" || raw == "null" {
			return nil, nil
		}
		var pos WindowPosition
		if err := json.Unmarshal([]byte(raw), &pos); err != nil {
			return nil, ErrInvalidValue.Wrap(err).WithContext("type", t.String())
		}
		return pos, nil
	default:
		return nil, ErrInvalidDefinition.WithContext("type", t.String())
	}
}
