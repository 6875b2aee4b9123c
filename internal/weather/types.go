// Package weather holds the weather value object that is persisted as the
// lastWeatherData setting, and the generator contract used to produce it.
package weather

import (
	"fmt"
	"strings"
)

type Season int

const (
	Spring Season = iota
	Summer
	Fall
	Winter
)

var seasonNames = []string{"spring", "summer", "fall", "winter"}

func (s Season) String() string {
	if s < 0 || int(s) >= len(seasonNames) {
		return fmt.Sprintf("season(%d)", int(s))
	}
	return seasonNames[s]
}

// ParseSeason accepts a season name, case-insensitively. Empty input maps to Spring.
func ParseSeason(name string) (Season, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Spring, nil
	}
	for i, n := range seasonNames {
		if n == name {
			return Season(i), nil
		}
	}
	if name == "autumn" {
		return Fall, nil
	}
	return Spring, fmt.Errorf("unknown season %q", name)
}

type Climate int

const (
	Cold Climate = iota
	Temperate
	Hot
)

func (c Climate) String() string {
	switch c {
	case Cold:
		return "cold"
	case Temperate:
		return "temperate"
	case Hot:
		return "hot"
	}
	return fmt.Sprintf("climate(%d)", int(c))
}

type Humidity int

const (
	Barren Humidity = iota
	Modest
	Verdant
)

func (h Humidity) String() string {
	switch h {
	case Barren:
		return "barren"
	case Modest:
		return "modest"
	case Verdant:
		return "verdant"
	}
	return fmt.Sprintf("humidity(%d)", int(h))
}
