// Package config defines process configuration and its layered loading.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MaxInsights caps insights per run. 0 means unbounded.
	MaxInsights int `koanf:"max_insights"`
	// ConcurrencyLimit bounds parallel signal extraction.
	ConcurrencyLimit int `koanf:"concurrency_limit"`
	// PhaseCount is the number of trend phases.
	PhaseCount int `koanf:"phase_count"`
	// SourceTimeoutMS bounds each record source fetch.
	SourceTimeoutMS int `koanf:"source_timeout_ms"`
	// ExampleCap is the number of matched substrings kept per category.
	ExampleCap int `koanf:"example_cap"`

	// RecentWindowHours is the single window behind every "recent" feature.
	RecentWindowHours int `koanf:"recent_window_hours"`
	// BucketWidthDays is the width of feature time buckets.
	BucketWidthDays int `koanf:"bucket_width_days"`
	// ActivityHighThreshold and ActivityMediumThreshold tier recent counts.
	ActivityHighThreshold   int `koanf:"activity_high_threshold"`
	ActivityMediumThreshold int `koanf:"activity_medium_threshold"`
	// GrowthScaleFactor multiplies phase indicator totals.
	GrowthScaleFactor int `koanf:"growth_scale_factor"`

	// RunQueueSize bounds the async run queue.
	RunQueueSize int `koanf:"run_queue_size"`
	// RunWorkerCount sets the number of async run workers.
	RunWorkerCount int `koanf:"run_worker_count"`
	// DedupeSize sets how many run request ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// PostgresDSN enables the Postgres record source and run store.
	PostgresDSN string `koanf:"postgres_dsn"`
	// RedisAddr enables the Redis run cache.
	RedisAddr string `koanf:"redis_addr"`
	// RedisTTLSeconds is the lifetime of cached runs.
	RedisTTLSeconds int `koanf:"redis_ttl_seconds"`
	// RecordsDir enables the file record source: one <source>.json per source.
	RecordsDir string `koanf:"records_dir"`

	// PatternsFile, ScenariosFile and HeuristicsFile replace the embedded
	// tables when set.
	PatternsFile   string `koanf:"patterns_file"`
	ScenariosFile  string `koanf:"scenarios_file"`
	HeuristicsFile string `koanf:"heuristics_file"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		MaxInsights:             0,
		ConcurrencyLimit:        runtime.NumCPU(),
		PhaseCount:              3,
		SourceTimeoutMS:         5000,
		ExampleCap:              3,
		RecentWindowHours:       48,
		BucketWidthDays:         30,
		ActivityHighThreshold:   5,
		ActivityMediumThreshold: 2,
		GrowthScaleFactor:       3,
		RunQueueSize:            1024,
		RunWorkerCount:          runtime.NumCPU(),
		DedupeSize:              50_000,
		RedisTTLSeconds:         3600,
	}
}

// SourceTimeout returns SourceTimeoutMS as a duration.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMS) * time.Millisecond
}

// RecentWindow returns RecentWindowHours as a duration.
func (c *Config) RecentWindow() time.Duration {
	return time.Duration(c.RecentWindowHours) * time.Hour
}

// BucketWidth returns BucketWidthDays as a duration.
func (c *Config) BucketWidth() time.Duration {
	return time.Duration(c.BucketWidthDays) * 24 * time.Hour
}

// RedisTTL returns RedisTTLSeconds as a duration.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSeconds) * time.Second
}
