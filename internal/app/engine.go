// Package service runs the analysis pipeline and the asynchronous run
// service built on it.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/cadis/internal/adapters/source"
	"github.com/okian/cadis/internal/domain/classify"
	"github.com/okian/cadis/internal/domain/features"
	"github.com/okian/cadis/internal/domain/meta"
	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/internal/domain/normalize"
	"github.com/okian/cadis/internal/domain/signals"
	"github.com/okian/cadis/internal/domain/simulate"
	"github.com/okian/cadis/internal/domain/synth"
	"github.com/okian/cadis/pkg/logger"
	"github.com/okian/cadis/pkg/metrics"
)

const (
	component  = "engine"
	tracerName = "github.com/okian/cadis/engine"
)

// Engine turns raw records into a scenario, insights and a trend, and runs
// counterfactual simulations. Its tables are read-only after New, so one
// Engine serves concurrent runs; every run gets its own aggregator.
type Engine struct {
	patterns   *signals.Table
	rules      *classify.Table
	heuristics *simulate.Table
	templates  []synth.Template

	normalizer *normalize.Normalizer
	synth      *synth.Synthesizer
	simulator  *simulate.Simulator
	sources    source.Lister
	labels     map[string]string

	defaults        RunConfig
	recentWindow    time.Duration
	bucketWidth     time.Duration
	highThreshold   int
	mediumThreshold int
	scaleFactor     int

	now    func() time.Time
	log    logger.Logger
	tracer trace.Tracer
}

// New builds an engine. Tables that are not supplied are loaded from the
// embedded defaults; a table that fails validation is a
// *model.ConfigurationError.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		defaults:        DefaultRunConfig(),
		recentWindow:    features.DefaultRecentWindow,
		bucketWidth:     features.DefaultBucketWidth,
		highThreshold:   features.DefaultHighThreshold,
		mediumThreshold: features.DefaultMediumThreshold,
		scaleFactor:     meta.DefaultScaleFactor,
		now:             time.Now,
		tracer:          otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named(component)
	}

	var err error
	if e.patterns == nil {
		if e.patterns, err = signals.DefaultTable(); err != nil {
			return nil, err
		}
	}
	if e.rules == nil {
		if e.rules, err = classify.DefaultTable(); err != nil {
			return nil, err
		}
	}
	if e.heuristics == nil {
		if e.heuristics, err = simulate.DefaultTable(); err != nil {
			return nil, err
		}
	}
	if e.templates == nil {
		e.templates = synth.Catalog()
	}
	if e.synth, err = synth.New(e.templates, synth.WithLogger(e.log.Named("synth"))); err != nil {
		return nil, err
	}

	e.normalizer = normalize.New(normalize.WithClock(e.now), normalize.WithLogger(e.log.Named("normalize")))
	e.simulator = simulate.New(e.heuristics, simulate.WithLogger(e.log.Named("simulate")))
	e.labels = make(map[string]string)
	for _, c := range e.patterns.Describe() {
		e.labels[c.Name] = c.Label
	}
	return e, nil
}

// Classify selects the scenario for a feature vector.
func (e *Engine) Classify(fv model.FeatureVector) model.Scenario {
	return e.rules.Classify(fv)
}

// Scenarios lists the selectable scenarios, highest priority first, the
// default last.
func (e *Engine) Scenarios() []model.Scenario { return e.rules.Scenarios() }

// Rules returns the scenario rules in evaluation order.
func (e *Engine) Rules() []classify.Rule { return e.rules.Rules() }

// Categories returns the signal categories with their patterns.
func (e *Engine) Categories() []signals.Category { return e.patterns.Describe() }

// Heuristics returns the simulation heuristics.
func (e *Engine) Heuristics() []simulate.Heuristic { return e.heuristics.Heuristics() }

// TemplateIDs returns the insight template ids in declaration order.
func (e *Engine) TemplateIDs() []string { return e.synth.TemplateIDs() }

// Simulate projects the efficiency gain of addressing an observation's
// challenges. The observation must carry a baseline efficiency metric in
// [0,100].
func (e *Engine) Simulate(ctx context.Context, o model.Observation) (model.SimulationResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.simulate",
		trace.WithAttributes(
			attribute.String("observation.id", o.ID),
			attribute.Int("challenges", len(o.Challenges)),
		),
	)
	defer span.End()

	r := newRun(uuid.NewString(), e.now, nil)
	_ = r.advance(model.StateSimulating)

	res, err := e.simulator.Simulate(ctx, o)
	if err != nil {
		r.fail(err)
		metrics.RecordSimulationError()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Warn(ctx, "simulation rejected", logger.String("observationID", o.ID), logger.Error(err))
		return model.SimulationResult{}, err
	}
	_ = r.advance(model.StateComplete)

	metrics.RecordSimulation(res.TimeSavedMinutes)
	span.SetAttributes(
		attribute.Int("matched", len(res.MatchedHeuristics)),
		attribute.Float64("projected", res.ProjectedEfficiency),
	)
	return res, nil
}

// SimulateRecord normalizes a raw record and simulates the result.
func (e *Engine) SimulateRecord(ctx context.Context, rec model.RawRecord) (model.SimulationResult, error) {
	o, err := e.normalizer.Normalize(rec, 0)
	if err != nil {
		metrics.RecordSimulationError()
		return model.SimulationResult{}, fmt.Errorf("simulate: %w", err)
	}
	return e.Simulate(ctx, o)
}

func (e *Engine) runConfig(opts []RunOption) RunConfig {
	cfg := e.defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return cfg
}

func (e *Engine) newRun(cfg RunConfig) *run {
	var hook func(model.Transition)
	if cfg.onTransition != nil {
		id := cfg.RunID
		hook = func(t model.Transition) { cfg.onTransition(id, t) }
	}
	return newRun(cfg.RunID, e.now, hook)
}
