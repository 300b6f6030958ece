package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "CADIS_"

// EnvConfigFile names the variable holding an optional YAML config path.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CADIS_CONFIG is set
//  3. env (prefix CADIS_)
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(EnvConfigFile))
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFrom(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CADIS_MAX_INSIGHTS -> max_insights; underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxInsights < 0:
		return fmt.Errorf("%w: max_insights must not be negative", ErrInvalidConfig)
	case c.ConcurrencyLimit < 1:
		return fmt.Errorf("%w: concurrency_limit must be positive", ErrInvalidConfig)
	case c.PhaseCount < 1:
		return fmt.Errorf("%w: phase_count must be positive", ErrInvalidConfig)
	case c.SourceTimeoutMS < 1:
		return fmt.Errorf("%w: source_timeout_ms must be positive", ErrInvalidConfig)
	case c.ExampleCap < 0:
		return fmt.Errorf("%w: example_cap must not be negative", ErrInvalidConfig)
	case c.RecentWindowHours < 1:
		return fmt.Errorf("%w: recent_window_hours must be positive", ErrInvalidConfig)
	case c.BucketWidthDays < 1:
		return fmt.Errorf("%w: bucket_width_days must be positive", ErrInvalidConfig)
	case c.ActivityMediumThreshold < 0 || c.ActivityHighThreshold < c.ActivityMediumThreshold:
		return fmt.Errorf("%w: activity thresholds must satisfy 0 <= medium <= high", ErrInvalidConfig)
	case c.GrowthScaleFactor < 1:
		return fmt.Errorf("%w: growth_scale_factor must be positive", ErrInvalidConfig)
	case c.RunQueueSize < 1 || c.RunWorkerCount < 1:
		return fmt.Errorf("%w: run_queue_size and run_worker_count must be positive", ErrInvalidConfig)
	case c.RedisTTLSeconds < 0:
		return fmt.Errorf("%w: redis_ttl_seconds must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	return nil
}
