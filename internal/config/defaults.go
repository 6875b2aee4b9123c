package config

import (
	"fmt"
	"time"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/versiongate"
)

const (
	DefaultModuleID               = "simple-weather"
	DefaultCalendarDependency     = calendar.DependencyID
	DefaultMinimumCalendarVersion = versiongate.DefaultMinimum
	DefaultListen                 = "127.0.0.1:30001"
	DefaultSQLitePath             = "simple-weather.db"
	DefaultBucket                 = "simple-weather"
	DefaultCalendarSubject        = "simple-weather.calendar"
	DefaultLocale                 = "en"
	DefaultMetricsPath            = "/metrics"
)

// Relay modes.
const (
	RelayOff    = "off"
	RelayLead   = "lead"
	RelayFollow = "follow"
)

// ConfigDefaultApplier fills unset fields of one configuration domain.
type ConfigDefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier applies defaults across all configuration domains.
type CompositeDefaultApplier struct {
	appliers []ConfigDefaultApplier
}

// NewDefaultApplier creates a composite default applier with all domain appliers.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []ConfigDefaultApplier{
			&ModuleDefaultApplier{},
			&SessionDefaultApplier{},
			&StoreDefaultApplier{},
			&CalendarDefaultApplier{},
			&DisplayDefaultApplier{},
			&LocalizationDefaultApplier{},
			&LoggingDefaultApplier{},
			&MetricsDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// GetApplierByDomain returns a specific domain applier.
func (c *CompositeDefaultApplier) GetApplierByDomain(domain string) ConfigDefaultApplier {
	for _, applier := range c.appliers {
		if applier.Domain() == domain {
			return applier
		}
	}
	return nil
}

type ModuleDefaultApplier struct{}

func (m *ModuleDefaultApplier) Domain() string { return "module" }

func (m *ModuleDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Module.ID == "" {
		cfg.Module.ID = DefaultModuleID
	}
	if cfg.Module.CalendarDependency == "" {
		cfg.Module.CalendarDependency = DefaultCalendarDependency
	}
	if cfg.Module.MinimumCalendarVersion == "" {
		cfg.Module.MinimumCalendarVersion = DefaultMinimumCalendarVersion
	}
	return nil
}

type SessionDefaultApplier struct{}

func (s *SessionDefaultApplier) Domain() string { return "session" }

func (s *SessionDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Session.Role == "" {
		cfg.Session.Role = "observer"
	}
	return nil
}

type StoreDefaultApplier struct{}

func (s *StoreDefaultApplier) Domain() string { return "store" }

func (s *StoreDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = DefaultSQLitePath
	}
	if cfg.Store.NATS.Bucket == "" {
		cfg.Store.NATS.Bucket = DefaultBucket
	}
	if cfg.Store.NATS.CalendarSubject == "" {
		cfg.Store.NATS.CalendarSubject = DefaultCalendarSubject
	}
	return nil
}

type CalendarDefaultApplier struct{}

func (c *CalendarDefaultApplier) Domain() string { return "calendar" }

func (c *CalendarDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Calendar.Step == 0 {
		cfg.Calendar.Step = time.Hour
	}
	if cfg.Calendar.Relay == "" {
		cfg.Calendar.Relay = RelayOff
	}
	return nil
}

type DisplayDefaultApplier struct{}

func (d *DisplayDefaultApplier) Domain() string { return "display" }

func (d *DisplayDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Display.Listen == "" {
		cfg.Display.Listen = DefaultListen
	}
	return nil
}

type LocalizationDefaultApplier struct{}

func (l *LocalizationDefaultApplier) Domain() string { return "localization" }

func (l *LocalizationDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Localization.Locale == "" {
		cfg.Localization.Locale = DefaultLocale
	}
	return nil
}

type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

type MetricsDefaultApplier struct{}

func (m *MetricsDefaultApplier) Domain() string { return "metrics" }

func (m *MetricsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	return nil
}
