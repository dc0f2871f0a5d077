// Package config loads the retire settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// BackendURL is the retirement service base URL. Empty means offline: the
	// household only lives locally.
	BackendURL   string        `env:"RETIREMENT_BACKEND_API_URL"`
	UserID       string        `env:"RETIREMENT_USER_ID" envDefault:"default-user"`
	Timeout      time.Duration `env:"RETIREMENT_TIMEOUT" envDefault:"10s"`
	SnapshotPath string        `env:"RETIREMENT_SNAPSHOT_PATH"`
	OtelEndpoint string        `env:"RETIREMENT_OTEL_ENDPOINT"`
	Currency     string        `env:"RETIREMENT_CURRENCY" envDefault:"USD"`
	Verbose      bool          `env:"RETIREMENT_VERBOSE"`
	// Today pins the current day (YYYY-MM-DD), for reproducible reports.
	Today string `env:"RETIREMENT_TODAY"`
}

// Offline reports whether no backend is configured.
func (c Config) Offline() bool { return c.BackendURL == "" }

// Load reads the optional .env files (default ".env") and then parses the environment.
// Variables already set in the environment take precedence over .env ones.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		log.Println("No .env file found, using the environment only.")
	}
	return Parse()
}

// Parse parses the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
