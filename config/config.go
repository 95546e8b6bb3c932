// Package config loads the fsse configuration from a YAML file, with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Indexer IndexerConfig `yaml:"indexer"`
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig controls matching.
type SearchConfig struct {
	Threshold uint32 `yaml:"threshold"`
}

// IndexerConfig controls index construction.  `Normalize` also applies to
// trapdoors, so it must match between indexing and searching.
type IndexerConfig struct {
	Workers   int  `yaml:"workers"`
	Normalize bool `yaml:"normalize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Threshold: 32,
		},
		Indexer: IndexerConfig{
			Workers: runtime.GOMAXPROCS(0),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.Search.Threshold > 128 {
		return fmt.Errorf("search.threshold must be at most 128, got %d", c.Search.Threshold)
	}
	if c.Indexer.Workers < 1 {
		return fmt.Errorf("indexer.workers must be positive, got %d", c.Indexer.Workers)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("FSSE_THRESHOLD"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("FSSE_THRESHOLD: %w", err)
		}
		cfg.Search.Threshold = uint32(n)
	}
	if v := os.Getenv("FSSE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FSSE_WORKERS: %w", err)
		}
		cfg.Indexer.Workers = n
	}
	if v := os.Getenv("FSSE_NORMALIZE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FSSE_NORMALIZE: %w", err)
		}
		cfg.Indexer.Normalize = b
	}
	if v := os.Getenv("FSSE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FSSE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}
