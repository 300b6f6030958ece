// Package classify selects an analysis scenario from a feature vector using
// an ordered, data-driven rule table.
package classify

import (
	_ "embed"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/okian/cadis/internal/domain/model"
)

const component = "classify"

//go:embed scenarios.yaml
var defaultScenarios []byte

type tableFile struct {
	Default   string `yaml:"default"`
	Scenarios []Rule `yaml:"scenarios"`
}

// Table is the validated, read-only decision table.
type Table struct {
	rules []Rule
	def   model.Scenario
}

// DefaultTable returns the embedded decision table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultScenarios)
}

// LoadTableFile reads a decision table from path.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.Configf(component, "read scenario table %s: %v", path, err)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML decision table.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.Configf(component, "parse scenario table: %v", err)
	}
	return NewTable(f.Scenarios, f.Default)
}

// NewTable validates scenarios and builds a table. defaultID names the
// scenario used when no rule matches; it must be declared without
// conditions, and every other scenario needs at least one.
func NewTable(scenarios []Rule, defaultID string) (*Table, error) {
	if defaultID == "" {
		return nil, model.Configf(component, "no default scenario")
	}
	seen := make(map[string]struct{}, len(scenarios))
	t := &Table{}
	found := false
	for _, r := range scenarios {
		if r.ID == "" {
			return nil, model.Configf(component, "scenario without an id")
		}
		if _, dup := seen[r.ID]; dup {
			return nil, model.Configf(component, "duplicate scenario id %q", r.ID)
		}
		seen[r.ID] = struct{}{}

		if r.ID == defaultID {
			if len(r.When) > 0 {
				return nil, model.Configf(component, "default scenario %q must not declare conditions", r.ID)
			}
			t.def = model.Scenario{ID: r.ID, Priority: r.Priority, Default: true, Params: r.Params}
			found = true
			continue
		}
		if len(r.When) == 0 {
			return nil, model.Configf(component, "scenario %q has no conditions", r.ID)
		}
		for _, c := range r.When {
			if err := c.validate(r.ID); err != nil {
				return nil, err
			}
		}
		t.rules = append(t.rules, r)
	}
	if !found {
		return nil, model.Configf(component, "unknown default scenario %q", defaultID)
	}
	sort.SliceStable(t.rules, func(i, j int) bool { return t.rules[i].Priority < t.rules[j].Priority })
	return t, nil
}

// Classify returns the scenario of the first matching rule, or the default.
func (t *Table) Classify(fv model.FeatureVector) model.Scenario {
	for _, r := range t.rules {
		if r.Matches(fv) {
			return r.Scenario()
		}
	}
	return t.def
}

// Rules returns the rules in evaluation order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		r.When = append([]Condition(nil), r.When...)
		out[i] = r
	}
	return out
}

// Default returns the fallback scenario.
func (t *Table) Default() model.Scenario { return t.def }

// Scenarios returns every selectable scenario in evaluation order, default
// last.
func (t *Table) Scenarios() []model.Scenario {
	out := make([]model.Scenario, 0, len(t.rules)+1)
	for _, r := range t.rules {
		out = append(out, r.Scenario())
	}
	return append(out, t.def)
}

// Lookup returns the scenario with id.
func (t *Table) Lookup(id string) (model.Scenario, bool) {
	for _, s := range t.Scenarios() {
		if s.ID == id {
			return s, true
		}
	}
	return model.Scenario{}, false
}
