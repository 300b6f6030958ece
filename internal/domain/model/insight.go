package model

import "fmt"

// Impact is the fixed impact level of an insight.
type Impact string

// Impact levels.
const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// Valid reports whether i is one of the four known levels.
func (i Impact) Valid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical:
		return true
	}
	return false
}

// InsightMetadata carries the traceability fields of an insight.
type InsightMetadata struct {
	AnalysisType    string   `json:"analysisType"`
	DataPoints      int      `json:"dataPoints"`
	Correlations    []string `json:"correlations"`
	Recommendations []string `json:"recommendations"`
}

// Insight is one confidence-scored finding. This is the persisted wire shape.
type Insight struct {
	Title           string          `json:"title"`
	Category        string          `json:"category"`
	Source          string          `json:"source"`
	Confidence      int             `json:"confidence"`
	Impact          Impact          `json:"impact"`
	Content         string          `json:"content"`
	Metadata        InsightMetadata `json:"metadata"`
	SimulationNodes []string        `json:"simulationNodes,omitempty"`
}

// Validate checks the insight invariants.
func (in Insight) Validate() error {
	if in.Confidence < 0 || in.Confidence > 100 {
		return fmt.Errorf("insight %q: confidence %d out of range", in.Title, in.Confidence)
	}
	if !in.Impact.Valid() {
		return fmt.Errorf("insight %q: unknown impact %q", in.Title, in.Impact)
	}
	if len(in.Metadata.Recommendations) == 0 {
		return fmt.Errorf("insight %q: no recommendations", in.Title)
	}
	return nil
}

// ClampConfidence bounds c to [0, 100].
func ClampConfidence(c int) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}
