package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultModuleID, cfg.Module.ID)
	assert.Equal(t, "foundryvtt-simple-calendar", cfg.Module.CalendarDependency)
	assert.Equal(t, "2.4.0", cfg.Module.MinimumCalendarVersion)
	assert.Equal(t, "observer", cfg.Session.Role)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, DefaultBucket, cfg.Store.NATS.Bucket)
	assert.Equal(t, time.Hour, cfg.Calendar.Step)
	assert.Equal(t, RelayOff, cfg.Calendar.Relay)
	assert.Equal(t, DefaultListen, cfg.Display.Listen)
	assert.Equal(t, DefaultLocale, cfg.Localization.Locale)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := writeConfig(t, `
session:
  role: gm
store:
  driver: sqlite
calendar:
  start: "2024-06-01T08:00:00Z"
  tick: 30s
  step: 2h
logging:
  level: WARNING
  format: json
dependencies:
  foundryvtt-simple-calendar: 2.4.18
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gm", cfg.Session.Role)
	assert.Equal(t, DefaultSQLitePath, cfg.Store.SQLitePath)
	assert.Equal(t, 30*time.Second, cfg.Calendar.Tick)
	assert.Equal(t, 2*time.Hour, cfg.Calendar.Step)
	assert.Equal(t, 2024, cfg.Calendar.StartTime().Year())
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, "2.4.18", cfg.Dependencies["foundryvtt-simple-calendar"])
}

func TestLoad_ExpandsVariablesInFile(t *testing.T) {
	t.Setenv("TEST_NATS_URL", "nats://example:4222")
	path := writeConfig(t, "store:\n  driver: nats\n  nats:\n    url: ${TEST_NATS_URL}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://example:4222", cfg.Store.NATS.URL)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("SIMPLE_WEATHER_ROLE", "gm")
	t.Setenv("SIMPLE_WEATHER_DISPLAY_LISTEN", ":9999")
	t.Setenv("SIMPLE_WEATHER_CALENDAR_TICK", "5s")
	t.Setenv("SIMPLE_WEATHER_DISPLAY_ALLOWED_ORIGINS", "http://a,http://b")
	path := writeConfig(t, "session:\n  role: observer\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gm", cfg.Session.Role)
	assert.Equal(t, ":9999", cfg.Display.Listen)
	assert.Equal(t, 5*time.Second, cfg.Calendar.Tick)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Display.AllowedOrigins)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "sesion:\n  role: gm\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"unknown role", func(c *Config) { c.Session.Role = "dm" }, "session role"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, "unknown store driver"},
		{"nats without url", func(c *Config) { c.Store.Driver = "nats" }, "store.nats.url"},
		{"relay without url", func(c *Config) { c.Calendar.Relay = RelayLead }, "calendar relay requires"},
		{"bad relay", func(c *Config) { c.Calendar.Relay = "mirror" }, "off, lead or follow"},
		{"bad start", func(c *Config) { c.Calendar.Start = "yesterday" }, "RFC 3339"},
		{"dotted module id", func(c *Config) { c.Module.ID = "simple.weather" }, "module id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			require.NoError(t, NewDefaultApplier().ApplyDefaults(cfg))
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, Init(path, false))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gm", cfg.Session.Role)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "2.4.18", cfg.Dependencies[DefaultCalendarDependency])

	err = Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.NoError(t, Init(path, true))
}

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestGetApplierByDomain(t *testing.T) {
	c := NewDefaultApplier()
	assert.NotNil(t, c.GetApplierByDomain("store"))
	assert.Nil(t, c.GetApplierByDomain("chat"))
}
