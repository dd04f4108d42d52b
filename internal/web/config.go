package web

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/evcraddock/folio/internal/realtime"
)

// Config holds server settings read from the environment.
type Config struct {
	Port         int           `env:"FOLIO_PORT"          envDefault:"8080"`
	DBPath       string        `env:"FOLIO_DB_PATH"`
	DBBusy       time.Duration `env:"FOLIO_DB_BUSY_TIMEOUT" envDefault:"5s"`
	DevMode      bool          `env:"FOLIO_DEV_MODE"`
	PingInterval time.Duration `env:"FOLIO_PING_INTERVAL" envDefault:"30s"`
	HubBuffer    int           `env:"FOLIO_HUB_BUFFER"    envDefault:"64"`
}

// ConfigFromEnv parses the server configuration from FOLIO_* variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = realtime.DefaultPingInterval
	}
	if cfg.HubBuffer <= 0 {
		cfg.HubBuffer = realtime.DefaultBuffer
	}
	return cfg, nil
}
