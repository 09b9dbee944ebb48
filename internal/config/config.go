// Package config loads collector settings from the environment.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings consumed by the collector. All values
// come from GLMR_-prefixed environment variables, optionally seeded from a
// .env file in the working directory.
type Config struct {
	// GitLabAPIBase is the base URL for the GitLab REST API.
	GitLabAPIBase string `env:"GLMR_GITLAB_API_BASE" env-default:"https://gitlab.com/api/v4"`

	// GitLabToken is the personal access token for API calls.
	GitLabToken string `env:"GLMR_GITLAB_TOKEN"`

	// GroupIDOrPath is the group id or full path used as the collection root.
	GroupIDOrPath string `env:"GLMR_GROUP_ID_OR_PATH"`

	// ReportSince is the ISO8601 timestamp for incremental collection.
	ReportSince string `env:"GLMR_REPORT_SINCE" env-default:"1970-01-01T00:00:00Z"`

	// MaxConcurrency caps concurrent detail-fetches (1..32).
	MaxConcurrency int `env:"GLMR_MAX_CONCURRENCY" env-default:"5"`

	// PerPage is the page size for API listings (20..100).
	PerPage int `env:"GLMR_PER_PAGE" env-default:"100"`

	// CacheDir holds the raw merge request JSONL cache.
	CacheDir string `env:"GLMR_CACHE_DIR" env-default:"data/raw/mr"`

	// RedisAddr enables the HTTP response cache when set (host:port).
	RedisAddr string `env:"GLMR_REDIS_ADDR"`

	// MetricsAddr exposes Prometheus metrics on this address when set.
	MetricsAddr string `env:"GLMR_METRICS_ADDR"`
}

// Load reads settings from a .env file (when present) and the environment,
// then validates them.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment alone may be complete.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required settings and bounds.
func (c *Config) Validate() error {
	if c.GitLabToken == "" {
		return fmt.Errorf("GLMR_GITLAB_TOKEN must be configured")
	}
	if c.GroupIDOrPath == "" {
		return fmt.Errorf("GLMR_GROUP_ID_OR_PATH must be configured")
	}
	if c.MaxConcurrency < 1 || c.MaxConcurrency > 32 {
		return fmt.Errorf("GLMR_MAX_CONCURRENCY must be between 1 and 32 (got %d)", c.MaxConcurrency)
	}
	if c.PerPage < 20 || c.PerPage > 100 {
		return fmt.Errorf("GLMR_PER_PAGE must be between 20 and 100 (got %d)", c.PerPage)
	}
	return nil
}
