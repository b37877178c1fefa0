// Package config loads engine configuration from environment variables.
package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `env:",prefix=SERVER_"`
	Store  StoreConfig  `env:",prefix=STORE_"`
	App    AppConfig    `env:",prefix=APP_"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `env:"HOST,default=0.0.0.0"`
	Port         string `env:"PORT,default=8080"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=15"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=15"` // seconds
}

// StoreConfig selects and configures the usage store backend.
type StoreConfig struct {
	// Backend is one of "memory", "sqlite", "postgres".
	Backend string `env:"BACKEND,default=sqlite"`

	// SQLitePath is the database file for the sqlite backend.
	// ":memory:" gives an in-process throwaway database.
	SQLitePath string `env:"SQLITE_PATH,default=perks.db"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN  string `env:"POSTGRES_DSN"`
	PostgresMax  int    `env:"POSTGRES_MAX_CONNS,default=25"`
	PostgresIdle int    `env:"POSTGRES_IDLE_CONNS,default=5"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *StoreConfig) validate() error {
	switch c.Backend {
	case "memory", "sqlite":
		return nil
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("STORE_POSTGRES_DSN is required for the postgres backend")
		}
		return nil
	}
	return fmt.Errorf("unknown store backend %q", c.Backend)
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsProduction reports whether the engine runs with production hardening;
// the administrative reset endpoint is mounted only when it does not.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
