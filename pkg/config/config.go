// Package config loads service settings from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting of the lead service. DATABASE_URL selects
// PostgreSQL; without it submissions go to the SQLite file at SQLITE_PATH.
type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"leads.sqlite"`

	DBMaxConns        int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBConnectAttempts int   `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`

	NATSURL           string `env:"NATS_URL"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"leads.submitted"`

	NotifyEmail string `env:"LEAD_NOTIFY_EMAIL"`
	NotifyFrom  string `env:"LEAD_NOTIFY_FROM" envDefault:"no-reply@leadwizard.local"`
	SMTPAddr    string `env:"SMTP_ADDR"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	VariantsPath       string   `env:"FORM_VARIANTS_PATH"`

	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	MaxSessions     int           `env:"MAX_SESSIONS" envDefault:"10000"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"15s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config and checks it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("DISPATCH_TIMEOUT must be positive, got %s", c.DispatchTimeout)
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DatabaseURL == "" && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("either DATABASE_URL or SQLITE_PATH is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LOG_LEVEL onto a slog level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
