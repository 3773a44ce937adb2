package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the client configuration, loaded from the environment
type Config struct {
	BaseURL        string        `env:"PARLEY_API_BASE_URL" envDefault:"http://127.0.0.1:8089"`
	RequestTimeout time.Duration `env:"PARLEY_REQUEST_TIMEOUT" envDefault:"30s"`
	TokenFile      string        `env:"PARLEY_TOKEN_FILE"`
	Locale         string        `env:"PARLEY_LOCALE" envDefault:"en"`
	Demo           bool          `env:"PARLEY_DEMO" envDefault:"true"`
	DemoAddr       string        `env:"PARLEY_DEMO_ADDR" envDefault:"127.0.0.1:8089"`
}

// Load reads configuration from a .env file (when present) and the
// environment.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.TokenFile = filepath.Join(home, ".parley", "token.json")
	}

	return cfg, nil
}
