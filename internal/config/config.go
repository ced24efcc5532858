// Package config provides configuration for the workshop service.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" default:"file:workshop.db?cache=shared&mode=rwc"`

	ModelMode    string        `envconfig:"MODEL_MODE" default:"live"` // live or scripted
	ModelBaseURL string        `envconfig:"MODEL_BASE_URL" default:"http://localhost:4000"`
	ModelAPIKey  string        `envconfig:"MODEL_API_KEY"`
	ModelName    string        `envconfig:"MODEL_NAME" default:"gpt-4o-mini"`
	ModelTimeout time.Duration `envconfig:"MODEL_TIMEOUT" default:"120s"`

	HardMessageCap int `envconfig:"HARD_MESSAGE_CAP" default:"256"`
	MaxToolRounds  int `envconfig:"MAX_TOOL_ROUNDS" default:"8"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from WORKSHOP_-prefixed environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("workshop", &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if cfg.HardMessageCap < 1 {
		return nil, fmt.Errorf("config error: WORKSHOP_HARD_MESSAGE_CAP must be >= 1")
	}
	return &cfg, nil
}

// NewLogger builds the service logger for the configured level.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
