package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port         string     `env:"PORT" envDefault:"8080"`
	Environment  string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelName string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel     slog.Level // Parsed from LogLevelName

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	RedisURL     string `env:"REDIS_URL" envDefault:"localhost:6379"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"./data/adventure.db"`
	DataDir      string `env:"DATA_DIR"` // Scenario files live in DataDir/scenarios; empty uses the built-in set

	TranscriptTTL time.Duration `env:"TRANSCRIPT_TTL" envDefault:"168h"`
	StepLockTTL   time.Duration `env:"STEP_LOCK_TTL" envDefault:"30s"` // Zero disables the per-player step lock

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","` // Extra browser origins allowed on the play socket
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want memory, redis or sqlite)", cfg.StoreBackend)
	}
	return &cfg, nil
}

// UsesRedis reports whether Redis-backed services (events, transcripts, step locks) are available.
func (c *Config) UsesRedis() bool {
	return c.StoreBackend == BackendRedis
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
