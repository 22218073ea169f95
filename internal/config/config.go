// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings. Command-line flags override these.
type Config struct {
	DBPath    string `env:"ACHADOS_DB" envDefault:"achados.sqlite3"`
	Addr      string `env:"ACHADOS_ADDR" envDefault:":8080"`
	AdminUser string `env:"ACHADOS_ADMIN_USER" envDefault:"admin"`
	LogPath   string `env:"ACHADOS_LOG"`
	SeedPath  string `env:"ACHADOS_SEED"`

	LoginRate  float64 `env:"ACHADOS_LOGIN_RATE" envDefault:"0.5"`
	LoginBurst int     `env:"ACHADOS_LOGIN_BURST" envDefault:"5"`

	ShutdownTimeout time.Duration `env:"ACHADOS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads an optional .env file from dotenvPath and then parses the
// environment. Variables already set in the environment win over the file.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", dotenvPath, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that env parsing cannot.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("database path required")
	}
	if c.LoginRate <= 0 {
		return fmt.Errorf("login rate must be positive, got %v", c.LoginRate)
	}
	if c.LoginBurst < 1 {
		return fmt.Errorf("login burst must be at least 1, got %d", c.LoginBurst)
	}
	return nil
}
