package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string        `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level    // Parsed from LogLevelRaw
	DataDir     string        `env:"DATA_DIR"` // Empty: use the scenarios embedded in the binary
	Scenario    string        `env:"SCENARIO" envDefault:"rflp_lab"`
	RedisURL    string        `env:"REDIS_URL"` // Empty: snapshots are not published
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	TimerScale  float64       `env:"TIMER_SCALE" envDefault:"1"` // Multiplier on timed step delays
}

// Load reads an optional .env file, then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	if cfg.TimerScale <= 0 {
		return nil, fmt.Errorf("TIMER_SCALE must be positive, got %v", cfg.TimerScale)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %v", cfg.SessionTTL)
	}
	return &cfg, nil
}

// ScaleDelay applies TimerScale to a timed step delay.
func (c *Config) ScaleDelay(d time.Duration) time.Duration {
	return time.Duration(float64(d) * c.TimerScale)
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
