package synth

import (
	"context"
	"sort"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

const component = "synth"

// Output is the result of one synthesis pass.
type Output struct {
	Insights []model.Insight
	Skipped  []model.SkippedTemplate
}

// Synthesizer renders a validated template catalog. It is read-only after
// construction and safe for concurrent use.
type Synthesizer struct {
	templates []Template
	log       logger.Logger
}

// New validates templates and builds a synthesizer.
func New(templates []Template, opts ...Option) (*Synthesizer, error) {
	seen := make(map[string]struct{}, len(templates))
	for _, t := range templates {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[t.ID]; dup {
			return nil, model.Configf(component, "duplicate template id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	s := &Synthesizer{
		templates: append([]Template(nil), templates...),
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Default builds a synthesizer over the built-in catalog.
func Default(opts ...Option) (*Synthesizer, error) {
	return New(Catalog(), opts...)
}

// TemplateIDs returns the template ids in declaration order.
func (s *Synthesizer) TemplateIDs() []string {
	ids := make([]string, len(s.templates))
	for i, t := range s.templates {
		ids[i] = t.ID
	}
	return ids
}

// Synthesize emits one insight per eligible template whose precondition
// holds. Insights are ordered by confidence, highest first, then by template
// declaration order. maxInsights truncates the ordered list; 0 keeps all.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input, maxInsights int) Output {
	type ranked struct {
		order   int
		insight model.Insight
	}
	var (
		out     Output
		results []ranked
	)
	for i, t := range s.templates {
		if !in.Scenario.Params.HasFocus(t.FocusArea) {
			out.Skipped = append(out.Skipped, model.SkippedTemplate{TemplateID: t.ID, Reason: model.SkipFocus})
			continue
		}
		if !t.Precondition(in) {
			out.Skipped = append(out.Skipped, model.SkippedTemplate{TemplateID: t.ID, Reason: model.SkipPrecondition})
			continue
		}
		results = append(results, ranked{order: i, insight: t.render(in)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].insight.Confidence != results[j].insight.Confidence {
			return results[i].insight.Confidence > results[j].insight.Confidence
		}
		return results[i].order < results[j].order
	})
	if maxInsights > 0 && len(results) > maxInsights {
		results = results[:maxInsights]
	}

	out.Insights = make([]model.Insight, len(results))
	for i, r := range results {
		out.Insights[i] = r.insight
	}
	s.log.Debug(ctx, "insights synthesized",
		logger.String("scenario", in.Scenario.ID),
		logger.Int("emitted", len(out.Insights)),
		logger.Int("skipped", len(out.Skipped)),
	)
	return out
}
