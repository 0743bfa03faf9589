// Package config loads process settings from the environment and game
// rules from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MJE43/casino-engine/internal/engine"
)

// Config holds process settings.
type Config struct {
	Addr      string `env:"CASINO_ADDR" envDefault:"127.0.0.1:17888"`
	DBPath    string `env:"CASINO_DB_PATH"`
	LogLevel  string `env:"CASINO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CASINO_LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"CASINO_LOG_FILE"`
	RulesFile string `env:"CASINO_RULES_FILE"`
	SessionID string `env:"CASINO_SESSION_ID" envDefault:"default"`

	// ServerSeed switches outcomes to the provably fair HMAC stream.
	ServerSeed string `env:"CASINO_SERVER_SEED"`
	ClientSeed string `env:"CASINO_CLIENT_SEED" envDefault:"casino-engine"`

	ShutdownTimeout   time.Duration `env:"CASINO_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	AutoplayMaxRounds int           `env:"CASINO_AUTOPLAY_MAX_ROUNDS" envDefault:"1000"`
	AutoplayTimeout   time.Duration `env:"CASINO_AUTOPLAY_TIMEOUT" envDefault:"30s"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	if cfg.AutoplayMaxRounds < 1 {
		return Config{}, fmt.Errorf("CASINO_AUTOPLAY_MAX_ROUNDS must be >= 1, got %d", cfg.AutoplayMaxRounds)
	}
	return cfg, nil
}

// FairMode reports whether a server seed was configured.
func (c Config) FairMode() bool { return c.ServerSeed != "" }

// Source returns the outcome source the session should draw from.
func (c Config) Source() engine.Source {
	if c.FairMode() {
		return engine.NewFairSource(engine.Seeds{Server: c.ServerSeed, Client: c.ClientSeed}, 0)
	}
	return engine.NewCryptoSource()
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "casino-engine", "casino.db")
}
