// Package config loads the runtime configuration: a YAML file with ${VAR}
// expansion, .env files, SIMPLE_WEATHER_* environment overrides, then
// per-domain defaults and validation.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIMPLE_WEATHER_"

// Config is the complete runtime configuration of one process.
type Config struct {
	Module       ModuleConfig       `yaml:"module" envPrefix:"MODULE_"`
	Session      SessionConfig      `yaml:"session"`
	Store        StoreConfig        `yaml:"store" envPrefix:"STORE_"`
	Calendar     CalendarConfig     `yaml:"calendar" envPrefix:"CALENDAR_"`
	Display      DisplayConfig      `yaml:"display" envPrefix:"DISPLAY_"`
	Generator    GeneratorConfig    `yaml:"generator" envPrefix:"GENERATOR_"`
	Localization LocalizationConfig `yaml:"localization"`
	Logging      LoggingConfig      `yaml:"logging" envPrefix:"LOG_"`
	Metrics      MetricsConfig      `yaml:"metrics" envPrefix:"METRICS_"`
	// Dependencies maps installed host module ids to their versions. The
	// version gate looks the calendar module up here.
	Dependencies map[string]string  `yaml:"dependencies,omitempty"`
}

// ModuleConfig identifies the settings namespace and the calendar dependency.
type ModuleConfig struct {
	ID                     string `yaml:"id" env:"ID"`
	CalendarDependency     string `yaml:"calendar_dependency" env:"CALENDAR_DEPENDENCY"`
	MinimumCalendarVersion string `yaml:"minimum_calendar_version" env:"MINIMUM_CALENDAR_VERSION"`
}

// SessionConfig describes this process within the shared session.
type SessionConfig struct {
	// Role is "gm" for the authoritative process, "observer" otherwise.
	Role     string `yaml:"role" env:"ROLE"`
	ClientID string `yaml:"client_id,omitempty" env:"CLIENT_ID"`
}

// StoreConfig selects the settings backends.
type StoreConfig struct {
	Driver     string     `yaml:"driver" env:"DRIVER"`
	SQLitePath string     `yaml:"sqlite_path,omitempty" env:"SQLITE_PATH"`
	ClientPath string     `yaml:"client_path,omitempty" env:"CLIENT_PATH"`
	NATS       NATSConfig `yaml:"nats" envPrefix:"NATS_"`
}

// NATSConfig configures the JetStream bucket and the calendar relay subject.
type NATSConfig struct {
	URL             string `yaml:"url,omitempty" env:"URL"`
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	CalendarSubject string `yaml:"calendar_subject" env:"CALENDAR_SUBJECT"`
}

// CalendarConfig configures the built-in calendar clock.
type CalendarConfig struct {
	// Start is the RFC 3339 in-world time of a fresh clock.
	Start string `yaml:"start,omitempty" env:"START"`
	// Tick is the real-time interval between automatic advances; 0 disables them.
	Tick time.Duration `yaml:"tick" env:"TICK"`
	// Step is how far in-world time moves per tick.
	Step time.Duration `yaml:"step" env:"STEP"`
	// Relay is "off", "lead" or "follow".
	Relay string `yaml:"relay" env:"RELAY"`
}

// DisplayConfig configures the display hub HTTP server.
type DisplayConfig struct {
	Listen         string   `yaml:"listen" env:"LISTEN"`
	Console        bool     `yaml:"console" env:"CONSOLE"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// GeneratorConfig seeds the weather generator. Zero picks a random seed.
type GeneratorConfig struct {
	Seed uint64 `yaml:"seed,omitempty" env:"SEED"`
}

// LocalizationConfig selects the language of user-visible text.
type LocalizationConfig struct {
	Locale string `yaml:"locale" env:"LOCALE"`
	Dir    string `yaml:"dir,omitempty" env:"LOCALIZATION_DIR"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" env:"LEVEL"`
	Format LogFormat `yaml:"format" env:"FORMAT"`
}

// MetricsConfig enables the Prometheus endpoint on the display server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// Load reads configPath and returns the effective configuration. An empty
// configPath skips the file and uses the environment and defaults only.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").WithContext("path", configPath).Build()
		}
		if err != nil {
			return nil, errors.ConfigError("failed to read config file").WithCause(err).WithContext("path", configPath).Build()
		}
		if err := decode(data, cfg); err != nil {
			return nil, errors.ConfigError("failed to parse config file").WithCause(err).WithContext("path", configPath).Build()
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.ConfigError("invalid environment override").WithCause(err).Build()
	}
	if err := NewDefaultApplier().ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode expands ${VAR} references and rejects unknown fields.
func decode(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Init writes an example configuration file to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return errors.InternalError("failed to marshal config").WithCause(err).Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.ConfigError("failed to write config file").WithCause(err).WithContext("path", configPath).Build()
	}
	return nil
}

// Example returns the configuration Init writes: a GM process persisting to
// SQLite with the display hub and metrics enabled.
func Example() *Config {
	cfg := &Config{
		Session:  SessionConfig{Role: "gm"},
		Store:    StoreConfig{Driver: "sqlite", SQLitePath: "./simple-weather.db"},
		Calendar: CalendarConfig{Tick: time.Minute, Step: time.Hour},
		Display:  DisplayConfig{Console: true},
		Metrics:  MetricsConfig{Enabled: true},
		Dependencies: map[string]string{
			DefaultCalendarDependency: "2.4.18",
		},
	}
	_ = NewDefaultApplier().ApplyDefaults(cfg)
	return cfg
}
