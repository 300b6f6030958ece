package service

import (
	"runtime"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/cadis/internal/adapters/source"
	"github.com/okian/cadis/internal/domain/classify"
	"github.com/okian/cadis/internal/domain/meta"
	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/internal/domain/signals"
	"github.com/okian/cadis/internal/domain/simulate"
	"github.com/okian/cadis/internal/domain/synth"
	"github.com/okian/cadis/pkg/logger"
)

// DefaultSourceTimeout bounds each record source fetch.
const DefaultSourceTimeout = 5 * time.Second

// RunConfig holds the per-run knobs.
type RunConfig struct {
	// MaxInsights truncates the ordered insight list; 0 keeps all.
	MaxInsights      int
	ConcurrencyLimit int
	PhaseCount       int
	SourceTimeout    time.Duration
	ExampleCap       int
	// RunID overrides the generated run id.
	RunID string

	onTransition func(runID string, t model.Transition)
}

// DefaultRunConfig returns the run defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ConcurrencyLimit: runtime.NumCPU(),
		PhaseCount:       meta.DefaultPhaseCount,
		SourceTimeout:    DefaultSourceTimeout,
		ExampleCap:       signals.DefaultExampleCap,
	}
}

// RunOption adjusts one run.
type RunOption func(*RunConfig)

// WithMaxInsights caps the number of insights; 0 means unbounded.
func WithMaxInsights(n int) RunOption {
	return func(c *RunConfig) {
		if n >= 0 {
			c.MaxInsights = n
		}
	}
}

// WithConcurrencyLimit bounds parallel signal extraction.
func WithConcurrencyLimit(n int) RunOption {
	return func(c *RunConfig) {
		if n > 0 {
			c.ConcurrencyLimit = n
		}
	}
}

// WithPhaseCount sets the number of trend phases.
func WithPhaseCount(n int) RunOption {
	return func(c *RunConfig) {
		if n > 0 {
			c.PhaseCount = n
		}
	}
}

// WithSourceTimeout bounds each record source fetch.
func WithSourceTimeout(d time.Duration) RunOption {
	return func(c *RunConfig) {
		if d > 0 {
			c.SourceTimeout = d
		}
	}
}

// WithExampleCap bounds the matched examples kept per category.
func WithExampleCap(n int) RunOption {
	return func(c *RunConfig) {
		if n >= 0 {
			c.ExampleCap = n
		}
	}
}

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) RunOption {
	return func(c *RunConfig) {
		if id != "" {
			c.RunID = id
		}
	}
}

// WithTransitionHook is called on every state change of the run.
func WithTransitionHook(fn func(runID string, t model.Transition)) RunOption {
	return func(c *RunConfig) {
		c.onTransition = fn
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPatterns sets the signal pattern table.
func WithPatterns(t *signals.Table) Option {
	return func(e *Engine) {
		if t != nil {
			e.patterns = t
		}
	}
}

// WithRules sets the scenario rule table.
func WithRules(t *classify.Table) Option {
	return func(e *Engine) {
		if t != nil {
			e.rules = t
		}
	}
}

// WithHeuristics sets the simulation heuristic table.
func WithHeuristics(t *simulate.Table) Option {
	return func(e *Engine) {
		if t != nil {
			e.heuristics = t
		}
	}
}

// WithTemplates replaces the insight template catalog.
func WithTemplates(templates []synth.Template) Option {
	return func(e *Engine) {
		if templates != nil {
			e.templates = templates
		}
	}
}

// WithSources sets where RunSources reads records from.
func WithSources(l source.Lister) Option {
	return func(e *Engine) {
		e.sources = l
	}
}

// WithRunDefaults applies run options to every run before its own options.
func WithRunDefaults(opts ...RunOption) Option {
	return func(e *Engine) {
		for _, opt := range opts {
			opt(&e.defaults)
		}
	}
}

// WithRecentWindow sets the window every "recent" feature uses.
func WithRecentWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.recentWindow = d
		}
	}
}

// WithBucketWidth sets the width of feature time buckets.
func WithBucketWidth(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.bucketWidth = d
		}
	}
}

// WithActivityThresholds sets the recent-count activity tiers.
func WithActivityThresholds(high, medium int) Option {
	return func(e *Engine) {
		if high >= medium && medium >= 0 {
			e.highThreshold, e.mediumThreshold = high, medium
		}
	}
}

// WithGrowthScaleFactor sets the multiplier of phase growth scores.
func WithGrowthScaleFactor(f int) Option {
	return func(e *Engine) {
		if f > 0 {
			e.scaleFactor = f
		}
	}
}

// WithClock sets the engine's reference time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTracerProvider sets where run spans go. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}
