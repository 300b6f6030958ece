package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func sampleRun(id string) model.RunResult {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return model.RunResult{
		Scenario: model.Scenario{
			ID:       "growth-trajectory-analysis",
			Priority: 3,
			Params: model.ScenarioParams{
				AnalysisDepth:      model.DepthDeep,
				TargetInsightCount: 4,
				FocusAreas:         []string{"velocity", "trend"},
			},
		},
		Insights: []model.Insight{
			{
				Title:      "Recent activity",
				Category:   "activity",
				Source:     "engine",
				Confidence: 80,
				Impact:     model.ImpactMedium,
				Content:    "3 of 5 observations fall inside the last 48h.",
				Metadata: model.InsightMetadata{
					AnalysisType:    "recency",
					DataPoints:      5,
					Correlations:    []string{"observationCount"},
					Recommendations: []string{"Keep the cadence."},
				},
			},
		},
		FeatureVector: model.FeatureVector{ObservationCount: 5, RecentCount: 3, ActivityLevel: model.ActivityMedium},
		Report: model.RunReport{
			RunID:      id,
			State:      model.StateComplete,
			StartedAt:  start,
			FinishedAt: start.Add(time.Second),
		},
	}
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	want := sampleRun("run-1")
	require.NoError(t, s.SaveRun(ctx, want))
	assert.Equal(t, 1, s.Len())

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1")))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	got.Insights[0].Title = "changed"

	again, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Recent activity", again.Insights[0].Title)
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.SaveRun(ctx, model.RunResult{}), ErrMissingRunID)
}

func TestMemoryStore_Simulations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sim := model.SimulationResult{ObservationID: "obs-1", BaselineEfficiency: 87.3, ProjectedEfficiency: 99.3, MatchedHeuristics: []string{"typescript"}}
	require.NoError(t, s.SaveSimulation(ctx, sim))
	sim.MatchedHeuristics[0] = "changed"

	got := s.Simulations()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"typescript"}, got[0].MatchedHeuristics)
	assert.NoError(t, s.Close())
}
