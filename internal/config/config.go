package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// #region config

// Config is the process configuration read from TWIN_* environment variables.
type Config struct {
	DBPath      string        `env:"TWIN_DB_PATH" envDefault:"twin_journal.db"`
	GRPCAddr    string        `env:"TWIN_GRPC_ADDR" envDefault:"localhost:50061"`
	MetricsAddr string        `env:"TWIN_METRICS_ADDR" envDefault:":9464"`
	RunDelay    time.Duration `env:"TWIN_RUN_DELAY" envDefault:"0s"`
	LogLevel    string        `env:"TWIN_LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"TWIN_LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values env parsing cannot.
func (c Config) Validate() error {
	if c.RunDelay < 0 {
		return fmt.Errorf("TWIN_RUN_DELAY must not be negative, got %s", c.RunDelay)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("TWIN_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// #endregion config

// #region logger

// NewLogger builds the process logger described by the config.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("TWIN_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// #endregion logger
