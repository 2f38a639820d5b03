// Package daemon manages the Comrade daemon lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/comrade-fit/comrade/internal/app/gamification"
)

var validate = validator.New()

// Config holds all daemon configuration.
type Config struct {
	API         APIConfig                 `toml:"api"`
	Calendar    CalendarConfig            `toml:"calendar"`
	Catalog     CatalogConfig             `toml:"catalog"`
	Notify      gamification.NotifyPolicy `toml:"notify"`
	Logging     LoggingConfig             `toml:"logging"`
	Telemetry   TelemetryConfig           `toml:"telemetry"`
	Maintenance MaintenanceConfig         `toml:"maintenance"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host           string `toml:"host" validate:"required"`
	Port           int    `toml:"port" validate:"min=1,max=65535"`
	RequestTimeout string `toml:"request_timeout"`
}

// CalendarConfig sets the location whose civil days streaks and challenge
// windows are counted in.
type CalendarConfig struct {
	Timezone string `toml:"timezone" validate:"required"`
}

// CatalogConfig points at an achievement catalog file. Empty uses the
// built-in catalog.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// TelemetryConfig controls the /metrics endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// MaintenanceConfig sets the background loop intervals.
type MaintenanceConfig struct {
	HealthInterval   string `toml:"health_interval"`
	ChallengeCleanup string `toml:"challenge_cleanup"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8420,
			RequestTimeout: "30s",
		},
		Calendar: CalendarConfig{
			Timezone: "UTC",
		},
		Notify: gamification.DefaultNotifyPolicy(),
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Maintenance: MaintenanceConfig{
			HealthInterval:   "60s",
			ChallengeCleanup: "1h",
		},
	}
}

// LoadConfig reads $COMRADE_HOME/config.toml, falling back to defaults.
// .env files in the working directory and in the home directory are loaded
// into the environment first; variables already set win.
func LoadConfig() (Config, error) {
	loadDotEnv()
	return LoadConfigFile(filepath.Join(comradeHome(), "config.toml"))
}

// LoadConfigFile reads config from path. A missing file yields defaults.
// COMRADE_TIMEZONE and COMRADE_LOG_LEVEL override the file.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if tz := os.Getenv("COMRADE_TIMEZONE"); tz != "" {
		cfg.Calendar.Timezone = tz
	}
	if lvl := os.Getenv("COMRADE_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks struct tags, the timezone name and the duration strings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid config: calendar timezone: %w", err)
	}
	for name, v := range map[string]string{
		"api.request_timeout":           c.API.RequestTimeout,
		"maintenance.health_interval":   c.Maintenance.HealthInterval,
		"maintenance.challenge_cleanup": c.Maintenance.ChallengeCleanup,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("invalid config: %s must be a positive duration, got %q", name, v)
		}
	}
	return nil
}

// Location returns the calendar location. Call after Validate.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SaveConfig writes the config to $COMRADE_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(comradeHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

func loadDotEnv() {
	for _, path := range []string{".env", filepath.Join(comradeHome(), ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// comradeHome returns the Comrade data directory.
func comradeHome() string {
	if env := os.Getenv("COMRADE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".comrade")
}

// Home is exported for use by other packages.
func Home() string {
	return comradeHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
