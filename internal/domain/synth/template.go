// Package synth expands a catalog of insight templates against a run's
// scenario, features and trend into ordered insights.
package synth

import (
	"time"

	"github.com/okian/cadis/internal/domain/model"
)

// Input is everything a template may read.
type Input struct {
	Scenario     model.Scenario
	Features     model.FeatureVector
	Trend        model.Trend
	Observations []model.Observation
	// Labels maps category names to display labels.
	Labels       map[string]string
	RecentWindow time.Duration
}

// Label returns the display label of a category.
func (in Input) Label(category string) string {
	if l, ok := in.Labels[category]; ok && l != "" {
		return l
	}
	return category
}

// DataPoints returns the observation subset size, or the observation count
// when no subset was given.
func (in Input) DataPoints() int {
	if len(in.Observations) > 0 {
		return len(in.Observations)
	}
	return in.Features.ObservationCount
}

// Template declares one kind of insight.
type Template struct {
	ID           string
	Title        string
	Category     string
	Source       string
	AnalysisType string
	Impact       model.Impact
	// FocusArea restricts the template to scenarios listing it. Empty means
	// always eligible.
	FocusArea string

	Recommendations []string
	SimulationNodes []string

	Precondition func(Input) bool
	Content      func(Input) string
	// Confidence is a fixed value or a function of data completeness.
	Confidence   func(Input) int
	Correlations func(Input) []string
}

// Fixed returns a confidence rule that ignores its input.
func Fixed(c int) func(Input) int {
	return func(Input) int { return c }
}

// Completeness returns a confidence rule that starts at base and adds step
// per data point, capped at ceiling.
func Completeness(base, step, ceiling int) func(Input) int {
	return func(in Input) int {
		return min(ceiling, base+step*in.DataPoints())
	}
}

func (t Template) validate() error {
	switch {
	case t.ID == "":
		return model.Configf(component, "template without an id")
	case !t.Impact.Valid():
		return model.Configf(component, "template %q: invalid impact %q", t.ID, t.Impact)
	case len(t.Recommendations) == 0:
		return model.Configf(component, "template %q: no recommendations", t.ID)
	case t.Precondition == nil || t.Content == nil || t.Confidence == nil:
		return model.Configf(component, "template %q: precondition, content and confidence are required", t.ID)
	}
	return nil
}

func (t Template) render(in Input) model.Insight {
	var correlations []string
	if t.Correlations != nil {
		correlations = t.Correlations(in)
	}
	var nodes []string
	if len(t.SimulationNodes) > 0 {
		nodes = append(nodes, t.SimulationNodes...)
	}
	return model.Insight{
		Title:      t.Title,
		Category:   t.Category,
		Source:     t.Source,
		Confidence: model.ClampConfidence(t.Confidence(in)),
		Impact:     t.Impact,
		Content:    t.Content(in),
		Metadata: model.InsightMetadata{
			AnalysisType:    t.AnalysisType,
			DataPoints:      in.DataPoints(),
			Correlations:    correlations,
			Recommendations: append([]string(nil), t.Recommendations...),
		},
		SimulationNodes: nodes,
	}
}
