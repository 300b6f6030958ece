package model

import (
	"strings"
	"time"
)

// ActivityLevel is the three-tier activity classification.
type ActivityLevel string

// Activity levels.
const (
	ActivityLow    ActivityLevel = "low"
	ActivityMedium ActivityLevel = "medium"
	ActivityHigh   ActivityLevel = "high"
)

// Feature names addressable by scenario rules.
const (
	FeatureObservationCount        = "observationCount"
	FeatureRecentCount             = "recentCount"
	FeatureTotalSignals            = "totalSignals"
	FeatureActivityLevel           = "activityLevel"
	FeatureModuleActivity          = "moduleActivity"
	FeatureTenantCount             = "tenantCount"
	FeatureDreamStateEffectiveness = "dreamStateEffectiveness"
	FeatureJournalInsightCount     = "journalInsightCount"
	FeatureRecentSessionCount      = "recentSessionCount"

	// FeatureCountPrefix and FeatureFrequencyPrefix address per-category
	// values, e.g. "count.strategic_thinking".
	FeatureCountPrefix     = "count."
	FeatureFrequencyPrefix = "frequency."
)

// FeatureKind tells the rule evaluator how to compare a feature.
type FeatureKind int

// Feature kinds.
const (
	KindUnknown FeatureKind = iota
	KindNumber
	KindCategory
)

// KindOf returns the kind of a feature name, or KindUnknown.
func KindOf(name string) FeatureKind {
	switch name {
	case FeatureActivityLevel, FeatureModuleActivity:
		return KindCategory
	case FeatureObservationCount, FeatureRecentCount, FeatureTotalSignals, FeatureTenantCount,
		FeatureDreamStateEffectiveness, FeatureJournalInsightCount, FeatureRecentSessionCount:
		return KindNumber
	}
	if rest, ok := strings.CutPrefix(name, FeatureCountPrefix); ok && rest != "" {
		return KindNumber
	}
	if rest, ok := strings.CutPrefix(name, FeatureFrequencyPrefix); ok && rest != "" {
		return KindNumber
	}
	return KindUnknown
}

// TimeBucket counts observations in [Start, End).
type TimeBucket struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

// FeatureVector is the aggregated summary of one batch of observations.
type FeatureVector struct {
	ObservationCount        int           `json:"observationCount"`
	RecentCount             int           `json:"recentCount"`
	TotalSignals            int           `json:"totalSignals"`
	ActivityLevel           ActivityLevel `json:"activityLevel"`
	ModuleActivity          ActivityLevel `json:"moduleActivity"`
	TenantCount             int           `json:"tenantCount"`
	DreamStateEffectiveness float64       `json:"dreamStateEffectiveness"`
	JournalInsightCount     int           `json:"journalInsightCount"`
	RecentSessionCount      int           `json:"recentSessionCount"`
	// Categories lists category names in pattern table order.
	Categories          []string       `json:"categories,omitempty"`
	CategoryCounts      map[string]int `json:"categoryCounts,omitempty"`
	CategoryFrequencies map[string]int `json:"categoryFrequencies,omitempty"`
	TimeBuckets         []TimeBucket   `json:"timeBuckets,omitempty"`
}

// Lookup returns the value of a named feature: float64 for numeric features,
// string for categorical ones. Missing per-category values read as 0.
func (fv FeatureVector) Lookup(name string) (any, bool) {
	switch name {
	case FeatureObservationCount:
		return float64(fv.ObservationCount), true
	case FeatureRecentCount:
		return float64(fv.RecentCount), true
	case FeatureTotalSignals:
		return float64(fv.TotalSignals), true
	case FeatureActivityLevel:
		return string(orLow(fv.ActivityLevel)), true
	case FeatureModuleActivity:
		return string(orLow(fv.ModuleActivity)), true
	case FeatureTenantCount:
		return float64(fv.TenantCount), true
	case FeatureDreamStateEffectiveness:
		return fv.DreamStateEffectiveness, true
	case FeatureJournalInsightCount:
		return float64(fv.JournalInsightCount), true
	case FeatureRecentSessionCount:
		return float64(fv.RecentSessionCount), true
	}
	if cat, ok := strings.CutPrefix(name, FeatureCountPrefix); ok && cat != "" {
		return float64(fv.CategoryCounts[cat]), true
	}
	if cat, ok := strings.CutPrefix(name, FeatureFrequencyPrefix); ok && cat != "" {
		return float64(fv.CategoryFrequencies[cat]), true
	}
	return nil, false
}

// DominantCategory returns the category with the highest count; ties go to
// the earlier category in table order. Empty when there is no signal.
func (fv FeatureVector) DominantCategory() (string, int) {
	best, bestCount := "", 0
	for _, c := range fv.Categories {
		if n := fv.CategoryCounts[c]; n > bestCount {
			best, bestCount = c, n
		}
	}
	return best, bestCount
}

func orLow(l ActivityLevel) ActivityLevel {
	if l == "" {
		return ActivityLow
	}
	return l
}
