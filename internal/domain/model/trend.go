package model

import "time"

// Phase is one contiguous chronological segment of observations.
type Phase struct {
	Label            string         `json:"label"`
	PeriodStart      time.Time      `json:"periodStart"`
	PeriodEnd        time.Time      `json:"periodEnd"`
	ObservationCount int            `json:"observationCount"`
	IndicatorSums    map[string]int `json:"indicatorSums"`
	GrowthScore      int            `json:"growthScore"`
}

// Direction summarizes how growth moved from the first phase to the last.
type Direction string

// Directions.
const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
	DirectionSteady  Direction = "steady"
)

// Trend is the longitudinal summary produced by the meta-aggregator.
type Trend struct {
	Phases           []Phase   `json:"phases"`
	ConsistencyScore int       `json:"consistencyScore"`
	Direction        Direction `json:"direction"`
}
