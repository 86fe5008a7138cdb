// Package config loads runtime configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8080"`
	MinProtocol   int    `env:"MIN_PROTOCOL" envDefault:"1"`
	CacheCapacity int    `env:"CACHE_CAPACITY" envDefault:"256"`
	SendBuffer    int    `env:"SEND_BUFFER" envDefault:"16"`
	AdminSecret   string `env:"ADMIN_SECRET"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CacheCapacity < 1 {
		return Config{}, fmt.Errorf("CACHE_CAPACITY must be positive, got %d", cfg.CacheCapacity)
	}
	if cfg.SendBuffer < 1 {
		return Config{}, fmt.Errorf("SEND_BUFFER must be positive, got %d", cfg.SendBuffer)
	}
	return cfg, nil
}
