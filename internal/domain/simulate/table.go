// Package simulate projects how a historical observation would have gone
// had known improvement heuristics been applied.
package simulate

import (
	_ "embed"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/cadis/internal/domain/model"
)

const component = "simulate"

// DefaultTimeSavedMinutes is the flat estimate for a heuristic that does not
// declare its own.
const DefaultTimeSavedMinutes = 15

//go:embed heuristics.yaml
var defaultHeuristics []byte

// Heuristic maps a trigger phrase to an improvement.
type Heuristic struct {
	ID               string  `yaml:"id" json:"id"`
	Trigger          string  `yaml:"trigger" json:"trigger"`
	Action           string  `yaml:"action" json:"action"`
	EfficiencyDelta  float64 `yaml:"efficiencyDelta" json:"efficiencyDelta"`
	TimeSavedMinutes int     `yaml:"timeSavedMinutes" json:"timeSavedMinutes"`
}

type tableFile struct {
	DefaultTimeSavedMinutes int         `yaml:"defaultTimeSavedMinutes"`
	Heuristics              []Heuristic `yaml:"heuristics"`
}

// Table is the validated, read-only heuristic table.
type Table struct {
	heuristics []Heuristic
	triggers   []string
}

// DefaultTable returns the embedded heuristic table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultHeuristics)
}

// LoadTableFile reads a heuristic table from path.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.Configf(component, "read heuristic table %s: %v", path, err)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML heuristic table.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.Configf(component, "parse heuristic table: %v", err)
	}
	return NewTable(f.Heuristics, f.DefaultTimeSavedMinutes)
}

// NewTable validates heuristics. Heuristics without a time estimate get
// defaultMinutes, or DefaultTimeSavedMinutes when that is not positive.
func NewTable(heuristics []Heuristic, defaultMinutes int) (*Table, error) {
	if defaultMinutes <= 0 {
		defaultMinutes = DefaultTimeSavedMinutes
	}
	if len(heuristics) == 0 {
		return nil, model.Configf(component, "heuristic table is empty")
	}
	t := &Table{}
	seen := make(map[string]struct{}, len(heuristics))
	for _, h := range heuristics {
		switch {
		case h.ID == "":
			return nil, model.Configf(component, "heuristic without an id")
		case strings.TrimSpace(h.Trigger) == "":
			return nil, model.Configf(component, "heuristic %q has no trigger", h.ID)
		case h.EfficiencyDelta < 0:
			return nil, model.Configf(component, "heuristic %q has a negative efficiency delta", h.ID)
		case h.TimeSavedMinutes < 0:
			return nil, model.Configf(component, "heuristic %q has a negative time estimate", h.ID)
		}
		if _, dup := seen[h.ID]; dup {
			return nil, model.Configf(component, "duplicate heuristic id %q", h.ID)
		}
		seen[h.ID] = struct{}{}
		if h.TimeSavedMinutes == 0 {
			h.TimeSavedMinutes = defaultMinutes
		}
		t.heuristics = append(t.heuristics, h)
		t.triggers = append(t.triggers, strings.ToLower(strings.TrimSpace(h.Trigger)))
	}
	return t, nil
}

// Heuristics returns a copy of the table in declaration order.
func (t *Table) Heuristics() []Heuristic {
	return append([]Heuristic(nil), t.heuristics...)
}
