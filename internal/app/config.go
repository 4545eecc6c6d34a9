package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // .hcl files or directories
	ProjectDir  string   // empty: directory of the first config path

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// DefaultWorkerCount is used when WorkerCount is not positive.
const DefaultWorkerCount = 4

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("at least one configuration path is required")
	}
	for _, p := range cfg.ConfigPaths {
		if p == "" {
			return nil, errors.New("configuration paths cannot be empty")
		}
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	return &cfg, nil
}
