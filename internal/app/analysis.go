package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cadis/internal/domain/features"
	"github.com/okian/cadis/internal/domain/meta"
	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/internal/domain/signals"
	"github.com/okian/cadis/internal/domain/synth"
	"github.com/okian/cadis/pkg/logger"
	"github.com/okian/cadis/pkg/metrics"
)

// RunAnalysis runs the full pipeline over records. Records that fail
// normalization are excluded and counted in the report; when none survive
// the run fails with a *model.EmptyInputError. A cancelled context aborts
// the run and nothing of it is returned.
func (e *Engine) RunAnalysis(ctx context.Context, records []model.RawRecord, opts ...RunOption) (*model.RunResult, error) {
	cfg := e.runConfig(opts)
	res, err := e.analyze(ctx, e.newRun(cfg), cfg, records)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// RunSources fetches records from the named sources, each bounded by the
// source timeout, and analyzes them. A source that times out or errors
// contributes no records and is noted in the report.
func (e *Engine) RunSources(ctx context.Context, sources []string, opts ...RunOption) (*model.RunResult, error) {
	cfg := e.runConfig(opts)
	res, err := e.runSources(ctx, e.newRun(cfg), cfg, sources)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// execute runs a request and returns the result even when the run failed,
// so the failed report can be kept.
func (e *Engine) execute(ctx context.Context, req model.RunRequest, opts ...RunOption) (model.RunResult, error) {
	opts = append(opts, WithRunID(req.ID))
	if req.MaxInsights > 0 {
		opts = append(opts, WithMaxInsights(req.MaxInsights))
	}
	cfg := e.runConfig(opts)
	r := e.newRun(cfg)
	if len(req.Records) > 0 {
		return e.analyze(ctx, r, cfg, req.Records)
	}
	return e.runSources(ctx, r, cfg, req.Sources)
}

func (e *Engine) runSources(ctx context.Context, r *run, cfg RunConfig, sources []string) (model.RunResult, error) {
	if e.sources == nil {
		err := model.Configf(component, "no record source configured")
		r.fail(err)
		return model.RunResult{Report: r.report}, err
	}
	records, issues, err := e.fetch(ctx, cfg, sources)
	r.report.SourceIssues = issues
	if err != nil {
		r.fail(err)
		return model.RunResult{Report: r.report}, err
	}
	return e.analyze(ctx, r, cfg, records)
}

// fetch lists every source concurrently. The records keep source order.
func (e *Engine) fetch(ctx context.Context, cfg RunConfig, sources []string) ([]model.RawRecord, []model.SourceIssue, error) {
	ctx, span := e.tracer.Start(ctx, "engine.fetch",
		trace.WithAttributes(attribute.StringSlice("sources", sources)),
	)
	defer span.End()

	perSource := make([][]model.RawRecord, len(sources))
	issues := make([]*model.SourceIssue, len(sources))
	var g errgroup.Group
	for i, name := range sources {
		g.Go(func() error {
			recs, err := e.listSource(ctx, name, cfg.SourceTimeout)
			if err == nil {
				perSource[i] = recs
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			issue := &model.SourceIssue{Source: name, Kind: model.IssueError, Message: err.Error()}
			if errors.Is(err, model.ErrSourceTimeout) {
				issue.Kind = model.IssueTimeout
				metrics.RecordSourceTimeout(name)
			} else {
				metrics.RecordSourceError(name)
			}
			e.log.Warn(ctx, "record source skipped", logger.String("source", name), logger.Error(err))
			issues[i] = issue
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	var (
		records []model.RawRecord
		out     []model.SourceIssue
	)
	for i := range sources {
		records = append(records, perSource[i]...)
		if issues[i] != nil {
			out = append(out, *issues[i])
		}
	}
	span.SetAttributes(attribute.Int("records", len(records)), attribute.Int("issues", len(out)))
	return records, out, nil
}

// listSource calls the lister under its own deadline and gives up on it
// even when the lister ignores the context.
func (e *Engine) listSource(ctx context.Context, name string, timeout time.Duration) ([]model.RawRecord, error) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type listed struct {
		recs []model.RawRecord
		err  error
	}
	ch := make(chan listed, 1)
	go func() {
		recs, err := e.sources.List(sctx, name)
		ch <- listed{recs, err}
	}()

	select {
	case l := <-ch:
		if l.err != nil && errors.Is(l.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &model.SourceTimeoutError{Source: name, Timeout: timeout}
		}
		return l.recs, l.err
	case <-sctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &model.SourceTimeoutError{Source: name, Timeout: timeout}
	}
}

// analyze drives one run through the pipeline stages. The returned result
// always carries the run's report, failed or not.
func (e *Engine) analyze(ctx context.Context, r *run, cfg RunConfig, records []model.RawRecord) (model.RunResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.run",
		trace.WithAttributes(
			attribute.String("run.id", r.report.RunID),
			attribute.Int("records", len(records)),
		),
	)
	defer span.End()
	start := time.Now()

	res, err := e.stages(ctx, r, cfg, records)
	res.Report = r.report
	metrics.RecordRun(string(r.report.State), float64(time.Since(start).Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Warn(ctx, "analysis run failed",
			logger.String("runID", r.report.RunID),
			logger.Int("seen", r.report.Diagnostics.Seen),
			logger.Int("excluded", r.report.Diagnostics.Excluded),
			logger.Error(err),
		)
		return res, err
	}

	span.SetAttributes(
		attribute.String("scenario", res.Scenario.ID),
		attribute.Int("insights", len(res.Insights)),
	)
	e.log.Info(ctx, "analysis run complete",
		logger.String("runID", r.report.RunID),
		logger.String("scenario", res.Scenario.ID),
		logger.Int("insights", len(res.Insights)),
		logger.Int("seen", r.report.Diagnostics.Seen),
		logger.Int("excluded", r.report.Diagnostics.Excluded),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (e *Engine) stages(ctx context.Context, r *run, cfg RunConfig, records []model.RawRecord) (model.RunResult, error) {
	var (
		res          model.RunResult
		observations []model.Observation
		entries      []model.ObservationSignals
	)
	categories := e.patterns.Categories()

	steps := []struct {
		state model.RunState
		fn    func(context.Context) error
	}{
		{model.StateNormalizing, func(ctx context.Context) error {
			var diag model.Diagnostics
			observations, diag = e.normalizer.NormalizeBatch(ctx, records)
			r.report.Diagnostics = diag
			metrics.RecordRecordsSeen(diag.Seen)
			for reason, n := range diag.ReasonHistogram {
				metrics.RecordRecordsExcluded(reason, n)
			}
			if len(observations) == 0 {
				return &model.EmptyInputError{Diagnostics: diag}
			}
			return nil
		}},
		{model.StateExtracting, func(ctx context.Context) error {
			var err error
			entries, err = e.extract(ctx, cfg, observations)
			return err
		}},
		{model.StateAggregating, func(ctx context.Context) error {
			res.FeatureVector = features.New(categories,
				features.WithRecentWindow(e.recentWindow),
				features.WithBucketWidth(e.bucketWidth),
				features.WithActivityThresholds(e.highThreshold, e.mediumThreshold),
				features.WithClock(e.now),
			).Aggregate(entries)
			res.Trend = meta.New(categories,
				meta.WithPhaseCount(cfg.PhaseCount),
				meta.WithScaleFactor(e.scaleFactor),
			).Analyze(entries)
			return nil
		}},
		{model.StateClassifying, func(ctx context.Context) error {
			res.Scenario = e.rules.Classify(res.FeatureVector)
			metrics.RecordScenario(res.Scenario.ID)
			return nil
		}},
		{model.StateSynthesizing, func(ctx context.Context) error {
			out := e.synth.Synthesize(ctx, synth.Input{
				Scenario:     res.Scenario,
				Features:     res.FeatureVector,
				Trend:        res.Trend,
				Observations: observations,
				Labels:       e.labels,
				RecentWindow: e.recentWindow,
			}, cfg.MaxInsights)
			res.Insights = out.Insights
			r.report.SkippedTemplates = out.Skipped
			for _, in := range out.Insights {
				metrics.RecordInsight(string(in.Impact))
			}
			metrics.RecordTemplatesSkipped(len(out.Skipped))
			return nil
		}},
	}

	for _, s := range steps {
		if err := e.stage(ctx, r, s.state, s.fn); err != nil {
			r.fail(err)
			return model.RunResult{}, fmt.Errorf("%s: %w", s.state, err)
		}
	}
	if err := ctx.Err(); err != nil {
		r.fail(err)
		return model.RunResult{}, err
	}
	if err := r.advance(model.StateComplete); err != nil {
		return model.RunResult{}, err
	}
	if res.Insights == nil {
		res.Insights = []model.Insight{}
	}
	return res, nil
}

// stage advances the run into state and runs fn under a span.
func (e *Engine) stage(ctx context.Context, r *run, state model.RunState, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.advance(state); err != nil {
		return err
	}
	ctx, span := e.tracer.Start(ctx, "engine."+string(state))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordStageDuration(string(state), float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// extract counts signals for every observation in parallel, bounded by the
// run's concurrency limit. Results keep observation order.
func (e *Engine) extract(ctx context.Context, cfg RunConfig, observations []model.Observation) ([]model.ObservationSignals, error) {
	ex := signals.NewExtractor(e.patterns,
		signals.WithExampleCap(cfg.ExampleCap),
		signals.WithLogger(e.log.Named("signals")),
	)
	out := make([]model.ObservationSignals, len(observations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.ConcurrencyLimit)
	for i, o := range observations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = model.ObservationSignals{Observation: o, Signals: ex.Extract(gctx, o)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
