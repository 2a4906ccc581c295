package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the environment-driven settings. Command-line flags may
// override individual fields after Load.
type Config struct {
	BackendURL      string `env:"BACKEND_URL"`
	Format          string `env:"VOXNOTE_FORMAT" env-default:"flac"`
	SegmentSeconds  int    `env:"VOXNOTE_SEGMENT_SECONDS" env-default:"6"`
	RequestTimeoutS int    `env:"VOXNOTE_REQUEST_TIMEOUT_S" env-default:"60"`
	LogPath         string `env:"VOXNOTE_LOG_PATH"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the combined env+flag configuration.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("set BACKEND_URL environment variable (or pass -backend)")
	}
	switch c.Format {
	case "wav", "flac":
	default:
		return fmt.Errorf("unknown format %q (use wav or flac)", c.Format)
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("segment length must be positive, got %d", c.SegmentSeconds)
	}
	if c.RequestTimeoutS < 0 {
		return fmt.Errorf("request timeout must be >= 0, got %d", c.RequestTimeoutS)
	}
	return nil
}

func (c *Config) SegmentLength() time.Duration {
	return time.Duration(c.SegmentSeconds) * time.Second
}

// RequestTimeout returns the per-upload timeout; zero disables it.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutS) * time.Second
}
