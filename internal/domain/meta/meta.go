// Package meta segments observations into chronological phases and scores
// growth and consistency across them.
package meta

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/cadis/internal/domain/features"
	"github.com/okian/cadis/internal/domain/model"
)

// Analyzer computes the longitudinal trend of a batch.
type Analyzer struct {
	categories  []string
	phaseCount  int
	scaleFactor int
}

// New creates an analyzer over the given categories.
func New(categories []string, opts ...Option) *Analyzer {
	a := &Analyzer{
		categories:  append([]string(nil), categories...),
		phaseCount:  DefaultPhaseCount,
		scaleFactor: DefaultScaleFactor,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze sorts entries by time, splits them into contiguous phases of
// equal size (earlier phases take the remainder) and scores them. The input
// slice is not modified.
func (a *Analyzer) Analyze(entries []model.ObservationSignals) model.Trend {
	trend := model.Trend{Direction: model.DirectionSteady}
	if len(entries) == 0 {
		return trend
	}

	sorted := append([]model.ObservationSignals(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].Observation.Timestamp, sorted[j].Observation.Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return sorted[i].Observation.ID < sorted[j].Observation.ID
	})

	k := min(a.phaseCount, len(sorted))
	size, rem := len(sorted)/k, len(sorted)%k
	start := 0
	for i := 0; i < k; i++ {
		n := size
		if i < rem {
			n++
		}
		trend.Phases = append(trend.Phases, a.phase(i, sorted[start:start+n]))
		start += n
	}

	trend.ConsistencyScore = a.consistency(sorted)
	first, last := trend.Phases[0].GrowthScore, trend.Phases[len(trend.Phases)-1].GrowthScore
	switch {
	case last > first:
		trend.Direction = model.DirectionRising
	case last < first:
		trend.Direction = model.DirectionFalling
	}
	return trend
}

func (a *Analyzer) phase(i int, chunk []model.ObservationSignals) model.Phase {
	p := model.Phase{
		Label:            fmt.Sprintf("phase-%d", i+1),
		PeriodStart:      chunk[0].Observation.Timestamp,
		PeriodEnd:        chunk[len(chunk)-1].Observation.Timestamp,
		ObservationCount: len(chunk),
		IndicatorSums:    make(map[string]int, len(a.categories)),
	}
	total := 0
	for _, c := range a.categories {
		sum := 0
		for _, e := range chunk {
			sum += e.Count(c)
		}
		p.IndicatorSums[c] = sum
		total += sum
	}
	p.GrowthScore = min(100, total*a.scaleFactor)
	return p
}

// consistency is the mean, over categories, of the share of observations in
// which the category appears at all.
func (a *Analyzer) consistency(entries []model.ObservationSignals) int {
	if len(a.categories) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range a.categories {
		present := 0
		for _, e := range entries {
			if e.Count(c) > 0 {
				present++
			}
		}
		sum += float64(features.Percent(present, len(entries)))
	}
	return int(math.Round(sum / float64(len(a.categories))))
}
