package config

import (
	"strings"
	"time"

	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
)

// ValidateConfig checks the configuration after defaults have been applied.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateModule(); err != nil {
		return err
	}
	if err := cv.validateSession(); err != nil {
		return err
	}
	if err := cv.validateStore(); err != nil {
		return err
	}
	if err := cv.validateCalendar(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validateModule() error {
	if strings.ContainsAny(cv.config.Module.ID, ". ") {
		return errors.ValidationError("module id must not contain dots or spaces").
			WithContext("id", cv.config.Module.ID).Build()
	}
	return nil
}

func (cv *configurationValidator) validateSession() error {
	switch strings.ToLower(cv.config.Session.Role) {
	case "gm", "observer", "player":
		return nil
	default:
		return errors.ValidationError("session role must be gm or observer").
			WithContext("role", cv.config.Session.Role).Build()
	}
}

func (cv *configurationValidator) validateStore() error {
	s := cv.config.Store
	switch s.Driver {
	case "memory", "sqlite":
	case "nats":
		if s.NATS.URL == "" {
			return errors.ValidationError("store.nats.url is required for the nats driver").Build()
		}
	default:
		return errors.ValidationError("unknown store driver").
			WithContext("driver", s.Driver).
			WithContext("valid", "memory, sqlite, nats").Build()
	}
	return nil
}

func (cv *configurationValidator) validateCalendar() error {
	c := cv.config.Calendar
	if c.Start != "" {
		if _, err := time.Parse(time.RFC3339, c.Start); err != nil {
			return errors.ValidationError("calendar.start must be an RFC 3339 time").
				WithCause(err).WithContext("start", c.Start).Build()
		}
	}
	if c.Tick < 0 || c.Step < 0 {
		return errors.ValidationError("calendar tick and step must not be negative").Build()
	}
	switch c.Relay {
	case RelayOff:
	case RelayLead, RelayFollow:
		if cv.config.Store.NATS.URL == "" {
			return errors.ValidationError("calendar relay requires store.nats.url").
				WithContext("relay", c.Relay).Build()
		}
	default:
		return errors.ValidationError("calendar relay must be off, lead or follow").
			WithContext("relay", c.Relay).Build()
	}
	return nil
}

// StartTime returns the parsed calendar start, or the zero time when unset.
func (c CalendarConfig) StartTime() time.Time {
	t, err := time.Parse(time.RFC3339, c.Start)
	if err != nil {
		return time.Time{}
	}
	return t
}
