package model

// Analysis depths used by scenario params.
const (
	DepthStandard      = "standard"
	DepthDeep          = "deep"
	DepthComprehensive = "comprehensive"
)

// ScenarioParams tunes the synthesizer for a selected scenario.
type ScenarioParams struct {
	AnalysisDepth      string   `json:"analysisDepth" yaml:"analysisDepth"`
	TargetInsightCount int      `json:"targetInsightCount" yaml:"targetInsightCount"`
	FocusAreas         []string `json:"focusAreas" yaml:"focusAreas"`
}

// HasFocus reports whether area is listed in the focus areas. An empty list
// admits every area.
func (p ScenarioParams) HasFocus(area string) bool {
	if len(p.FocusAreas) == 0 || area == "" {
		return true
	}
	for _, a := range p.FocusAreas {
		if a == area {
			return true
		}
	}
	return false
}

// Scenario is the analysis strategy selected by the classifier.
type Scenario struct {
	ID       string         `json:"id"`
	Priority int            `json:"priority"`
	Default  bool           `json:"default,omitempty"`
	Params   ScenarioParams `json:"params"`
}
