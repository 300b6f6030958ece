package simulate

import (
	"context"
	"math"
	"strings"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

// Simulator runs counterfactual projections. It is deterministic and safe
// for concurrent use.
type Simulator struct {
	table *Table
	log   logger.Logger
}

// New creates a simulator over table.
func New(table *Table, opts ...Option) *Simulator {
	s := &Simulator{table: table, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the heuristic table.
func (s *Simulator) Table() *Table { return s.table }

// Simulate matches the observation's challenges against the heuristic
// table. Each heuristic counts at most once. The projection never falls
// below the baseline and never exceeds 100.
func (s *Simulator) Simulate(ctx context.Context, o model.Observation) (model.SimulationResult, error) {
	baseline, err := baselineOf(o)
	if err != nil {
		return model.SimulationResult{}, err
	}

	lowered := make([]string, len(o.Challenges))
	for i, c := range o.Challenges {
		lowered[i] = strings.ToLower(c)
	}

	res := model.SimulationResult{
		ObservationID:      o.ID,
		BaselineEfficiency: baseline,
		MatchedHeuristics:  []string{},
		Actions:            []string{},
	}
	delta := 0.0
	for i, h := range s.table.heuristics {
		if !anyContains(lowered, s.table.triggers[i]) {
			continue
		}
		res.MatchedHeuristics = append(res.MatchedHeuristics, h.ID)
		res.Actions = append(res.Actions, h.Action)
		delta += h.EfficiencyDelta
		res.TimeSavedMinutes += h.TimeSavedMinutes
	}

	projected := baseline
	if delta > 0 {
		// two decimals keep 87.3+5+7 at 99.3
		projected = math.Max(baseline, math.Round((baseline+delta)*100)/100)
	}
	res.ProjectedEfficiency = math.Min(100, projected)
	res.TimeSaved = model.FormatMinutes(res.TimeSavedMinutes)

	s.log.Debug(ctx, "simulation complete",
		logger.String("observation_id", o.ID),
		logger.Strings("matched", res.MatchedHeuristics),
		logger.Float64("projected", res.ProjectedEfficiency),
	)
	return res, nil
}

func baselineOf(o model.Observation) (float64, error) {
	v, ok := o.Metric(model.MetricBaselineEfficiency)
	if !ok {
		v, ok = o.Metric(model.MetricEfficiency)
	}
	if !ok {
		return 0, &model.ValidationError{Source: o.Source, ID: o.ID, Reason: model.ReasonMissingBaseline}
	}
	if math.IsNaN(v) || v < 0 || v > 100 {
		return 0, &model.ValidationError{Source: o.Source, ID: o.ID, Reason: model.ReasonBaselineOutOfRange}
	}
	return v, nil
}

func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}
