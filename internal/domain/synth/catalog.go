package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/cadis/internal/domain/model"
)

// Focus areas referenced by scenario params.
const (
	FocusPatterns    = "patterns"
	FocusFriction    = "friction"
	FocusTenancy     = "tenancy"
	FocusEfficiency  = "efficiency"
	FocusVelocity    = "velocity"
	FocusStrategy    = "strategy"
	FocusTrend       = "trend"
	FocusConsistency = "consistency"
)

// Category names the catalog reads directly.
const (
	frictionCategory  = "friction"
	strategicCategory = "strategic_thinking"
)

// Catalog returns the built-in templates in declaration order.
func Catalog() []Template { //nolint:funlen // one declaration per template
	return []Template{
		{
			ID:           "recent-activity",
			Title:        "Recent activity summary",
			Category:     "activity",
			Source:       "ecosystem",
			AnalysisType: "activity-window",
			Impact:       model.ImpactMedium,
			Precondition: func(in Input) bool { return in.Features.RecentCount > 0 },
			Content: func(in Input) string {
				return fmt.Sprintf("%d of %d observations fall inside the last %s; activity level is %s.",
					in.Features.RecentCount, in.Features.ObservationCount, window(in), level(in.Features.ActivityLevel))
			},
			Confidence: Fixed(85),
			Recommendations: []string{
				"Review the most recent observations before planning the next session",
			},
		},
		{
			ID:           "dominant-pattern",
			Title:        "Dominant signal pattern",
			Category:     "pattern",
			Source:       "signals",
			AnalysisType: "category-distribution",
			Impact:       model.ImpactHigh,
			FocusArea:    FocusPatterns,
			Precondition: func(in Input) bool { return in.Features.TotalSignals > 0 },
			Content: func(in Input) string {
				cat, n := in.Features.DominantCategory()
				return fmt.Sprintf("%s accounts for %d%% of %d signals (%d matches across %d observations).",
					in.Label(cat), in.Features.CategoryFrequencies[cat], in.Features.TotalSignals, n, in.Features.ObservationCount)
			},
			Confidence:   Completeness(50, 5, 95),
			Correlations: topCategories(3),
			Recommendations: []string{
				"Lean into the dominant pattern when structuring upcoming work",
				"Check whether under-represented categories need deliberate attention",
			},
		},
		{
			ID:           "friction-hotspots",
			Title:        "Friction hotspots",
			Category:     "friction",
			Source:       "signals",
			AnalysisType: "friction-ratio",
			Impact:       model.ImpactHigh,
			FocusArea:    FocusFriction,
			Precondition: func(in Input) bool {
				return in.Features.CategoryFrequencies[frictionCategory] >= 20
			},
			Content: func(in Input) string {
				return fmt.Sprintf("Friction makes up %d%% of all signals (%d matches).",
					in.Features.CategoryFrequencies[frictionCategory], in.Features.CategoryCounts[frictionCategory])
			},
			Confidence: Completeness(55, 4, 90),
			Recommendations: []string{
				"Run a counterfactual simulation on the sessions with the most friction",
				"Capture recurring blockers as checklist items",
			},
			SimulationNodes: []string{"friction-review", "counterfactual-simulation"},
		},
		{
			ID:           "tenant-spread",
			Title:        "Multi-tenant load",
			Category:     "tenancy",
			Source:       "ecosystem",
			AnalysisType: "tenant-distribution",
			Impact:       model.ImpactHigh,
			FocusArea:    FocusTenancy,
			Precondition: func(in Input) bool { return in.Features.TenantCount > 1 },
			Content: func(in Input) string {
				return fmt.Sprintf("%d tenants are active with a mean dream-state effectiveness of %.1f%%.",
					in.Features.TenantCount, in.Features.DreamStateEffectiveness)
			},
			Confidence: Fixed(80),
			Recommendations: []string{
				"Compare tenant configurations to find the least effective one",
				"Share the best-performing tenant's practices across tenants",
			},
		},
		{
			ID:           "dream-state-gap",
			Title:        "Dream-state effectiveness below target",
			Category:     "efficiency",
			Source:       "ecosystem",
			AnalysisType: "effectiveness-threshold",
			Impact:       model.ImpactCritical,
			FocusArea:    FocusEfficiency,
			Precondition: func(in Input) bool {
				d := in.Features.DreamStateEffectiveness
				return d > 0 && d < 70
			},
			Content: func(in Input) string {
				return fmt.Sprintf("Dream-state effectiveness is %.1f%%, %.1f points below the 70%% target.",
					in.Features.DreamStateEffectiveness, 70-in.Features.DreamStateEffectiveness)
			},
			Confidence: Fixed(75),
			Recommendations: []string{
				"Audit the dream-state pipeline for the tenants pulling the mean down",
			},
			SimulationNodes: []string{"dream-state-audit"},
		},
		{
			ID:           "module-velocity",
			Title:        "Module development velocity",
			Category:     "velocity",
			Source:       "module",
			AnalysisType: "module-activity",
			Impact:       model.ImpactMedium,
			FocusArea:    FocusVelocity,
			Precondition: func(in Input) bool { return in.Features.ModuleActivity != "" && in.Features.ModuleActivity != model.ActivityLow },
			Content: func(in Input) string {
				return fmt.Sprintf("Module activity is %s with %d journal insight signals recorded.",
					in.Features.ModuleActivity, in.Features.JournalInsightCount)
			},
			Confidence: Fixed(70),
			Recommendations: []string{
				"Batch module releases to keep review load predictable",
			},
		},
		{
			ID:           "journal-depth",
			Title:        "Journal reflection depth",
			Category:     "reflection",
			Source:       "journal",
			AnalysisType: "journal-signals",
			Impact:       model.ImpactMedium,
			FocusArea:    FocusStrategy,
			Precondition: func(in Input) bool { return in.Features.JournalInsightCount > 0 },
			Content: func(in Input) string {
				return fmt.Sprintf("Journal entries carry %d signals; %s accounts for %d%% of all signals.",
					in.Features.JournalInsightCount, in.Label(strategicCategory), in.Features.CategoryFrequencies[strategicCategory])
			},
			Confidence: Completeness(45, 5, 85),
			Recommendations: []string{
				"Turn recurring journal themes into explicit goals",
			},
		},
		{
			ID:           "session-gap",
			Title:        "Few recent sessions",
			Category:     "engagement",
			Source:       "conversation",
			AnalysisType: "session-frequency",
			Impact:       model.ImpactLow,
			Precondition: func(in Input) bool {
				return in.Features.ObservationCount > 0 && in.Features.RecentSessionCount < 2
			},
			Content: func(in Input) string {
				return fmt.Sprintf("Only %d conversation sessions happened in the last %s.",
					in.Features.RecentSessionCount, window(in))
			},
			Confidence: Fixed(60),
			Recommendations: []string{
				"Schedule a short working session to keep context fresh",
			},
		},
		{
			ID:           "growth-trend",
			Title:        "Growth trend across phases",
			Category:     "trend",
			Source:       "meta",
			AnalysisType: "phase-growth",
			Impact:       model.ImpactMedium,
			FocusArea:    FocusTrend,
			Precondition: func(in Input) bool { return len(in.Trend.Phases) >= 2 },
			Content: func(in Input) string {
				scores := make([]string, len(in.Trend.Phases))
				for i, p := range in.Trend.Phases {
					scores[i] = fmt.Sprintf("%s=%d", p.Label, p.GrowthScore)
				}
				return fmt.Sprintf("Growth is %s across %d phases (%s).",
					in.Trend.Direction, len(in.Trend.Phases), strings.Join(scores, ", "))
			},
			Confidence: func(in Input) int { return min(90, 40+15*len(in.Trend.Phases)) },
			Recommendations: []string{
				"Compare the strongest phase with the latest one to find what changed",
			},
		},
		{
			ID:           "consistency",
			Title:        "Signal consistency",
			Category:     "consistency",
			Source:       "meta",
			AnalysisType: "category-alignment",
			Impact:       model.ImpactLow,
			FocusArea:    FocusConsistency,
			Precondition: func(in Input) bool {
				return len(in.Trend.Phases) > 0 && in.Features.TotalSignals > 0
			},
			Content: func(in Input) string {
				return fmt.Sprintf("Signal categories show up with a consistency score of %d/100.", in.Trend.ConsistencyScore)
			},
			Confidence: Fixed(65),
			Recommendations: []string{
				"Keep a steady cadence of reflection so categories stay balanced",
			},
		},
		{
			ID:           "temporal-spread",
			Title:        "Activity over time",
			Category:     "activity",
			Source:       "ecosystem",
			AnalysisType: "time-buckets",
			Impact:       model.ImpactLow,
			FocusArea:    FocusPatterns,
			Precondition: func(in Input) bool { return len(in.Features.TimeBuckets) >= 2 },
			Content: func(in Input) string {
				busiest := in.Features.TimeBuckets[0]
				for _, b := range in.Features.TimeBuckets[1:] {
					if b.Count > busiest.Count {
						busiest = b
					}
				}
				return fmt.Sprintf("Observations span %d time buckets; the busiest starts %s with %d observations.",
					len(in.Features.TimeBuckets), busiest.Start.Format("2006-01-02"), busiest.Count)
			},
			Confidence: Fixed(55),
			Recommendations: []string{
				"Look at quiet periods to see what interrupted the work",
			},
		},
	}
}

func window(in Input) string {
	if in.RecentWindow <= 0 {
		return "48h"
	}
	h := int(in.RecentWindow.Hours())
	if h%24 == 0 && h >= 72 {
		return fmt.Sprintf("%d days", h/24)
	}
	return fmt.Sprintf("%dh", h)
}

func level(l model.ActivityLevel) model.ActivityLevel {
	if l == "" {
		return model.ActivityLow
	}
	return l
}

// topCategories returns the n categories with the highest counts, ties in
// table order.
func topCategories(n int) func(Input) []string {
	return func(in Input) []string {
		cats := make([]string, 0, len(in.Features.Categories))
		for _, c := range in.Features.Categories {
			if in.Features.CategoryCounts[c] > 0 {
				cats = append(cats, c)
			}
		}
		sort.SliceStable(cats, func(i, j int) bool {
			return in.Features.CategoryCounts[cats[i]] > in.Features.CategoryCounts[cats[j]]
		})
		if len(cats) > n {
			cats = cats[:n]
		}
		if len(cats) == 0 {
			return nil
		}
		return cats
	}
}
