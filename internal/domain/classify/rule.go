package classify

import (
	"fmt"

	"github.com/okian/cadis/internal/domain/model"
)

// Comparison operators accepted in conditions.
const (
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpEqual        = "=="
	OpNotEqual     = "!="
)

// Condition compares one named feature against a constant.
type Condition struct {
	Feature string `yaml:"feature" json:"feature"`
	Op      string `yaml:"op" json:"op"`
	Value   any    `yaml:"value" json:"value"`
}

// String renders the condition as "feature op value".
func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Feature, c.Op, c.Value)
}

// Rule is one row of the decision table: a conjunction of conditions and
// the scenario it selects.
type Rule struct {
	ID       string               `yaml:"id" json:"id"`
	Priority int                  `yaml:"priority" json:"priority"`
	When     []Condition          `yaml:"when" json:"when"`
	Params   model.ScenarioParams `yaml:"params" json:"params"`
}

// Scenario returns the scenario selected by r.
func (r Rule) Scenario() model.Scenario {
	return model.Scenario{ID: r.ID, Priority: r.Priority, Params: r.Params}
}

// Matches reports whether every condition holds for fv.
func (r Rule) Matches(fv model.FeatureVector) bool {
	for _, c := range r.When {
		if !c.holds(fv) {
			return false
		}
	}
	return true
}

func (c Condition) holds(fv model.FeatureVector) bool {
	got, ok := fv.Lookup(c.Feature)
	if !ok {
		return false
	}
	switch g := got.(type) {
	case float64:
		want, ok := toFloat(c.Value)
		if !ok {
			return false
		}
		return compareNumber(g, c.Op, want)
	case string:
		want, ok := c.Value.(string)
		if !ok {
			return false
		}
		switch c.Op {
		case OpEqual:
			return g == want
		case OpNotEqual:
			return g != want
		}
	}
	return false
}

func compareNumber(got float64, op string, want float64) bool {
	switch op {
	case OpGreater:
		return got > want
	case OpGreaterEqual:
		return got >= want
	case OpLess:
		return got < want
	case OpLessEqual:
		return got <= want
	case OpEqual:
		return got == want
	case OpNotEqual:
		return got != want
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// validate checks a condition against the known feature names and kinds.
func (c Condition) validate(ruleID string) error {
	switch model.KindOf(c.Feature) {
	case model.KindNumber:
		switch c.Op {
		case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual, OpNotEqual:
		default:
			return model.Configf(component, "rule %q: unknown operator %q", ruleID, c.Op)
		}
		if _, ok := toFloat(c.Value); !ok {
			return model.Configf(component, "rule %q: %s needs a numeric value, got %v", ruleID, c.Feature, c.Value)
		}
	case model.KindCategory:
		if c.Op != OpEqual && c.Op != OpNotEqual {
			return model.Configf(component, "rule %q: operator %q is not valid for %s", ruleID, c.Op, c.Feature)
		}
		s, ok := c.Value.(string)
		if !ok {
			return model.Configf(component, "rule %q: %s needs a level, got %v", ruleID, c.Feature, c.Value)
		}
		switch model.ActivityLevel(s) {
		case model.ActivityLow, model.ActivityMedium, model.ActivityHigh:
		default:
			return model.Configf(component, "rule %q: unknown level %q", ruleID, s)
		}
	default:
		return model.Configf(component, "rule %q: unknown feature %q", ruleID, c.Feature)
	}
	return nil
}
