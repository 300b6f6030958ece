package model

import "fmt"

// Metric names read by the simulator.
const (
	MetricBaselineEfficiency = "baselineEfficiency"
	MetricEfficiency         = "efficiency"
)

// SimulationResult is the counterfactual projection for one observation.
type SimulationResult struct {
	ObservationID       string   `json:"observationId"`
	BaselineEfficiency  float64  `json:"baselineEfficiency"`
	ProjectedEfficiency float64  `json:"projectedEfficiency"`
	MatchedHeuristics   []string `json:"matchedHeuristics"`
	Actions             []string `json:"actions"`
	TimeSavedMinutes    int      `json:"timeSavedMinutes"`
	TimeSaved           string   `json:"timeSaved"`
}

// FormatMinutes renders a duration as "30 minutes" below an hour and as
// "1h 15m" from an hour on.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
