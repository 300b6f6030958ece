package classify

import (
	"errors"
	"testing"

	"github.com/okian/cadis/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func mustDefault(t *testing.T) *Table {
	t.Helper()
	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	return table
}

func TestClassifyScenarios(t *testing.T) {
	Convey("Given the embedded decision table", t, func() {
		table := mustDefault(t)

		Convey("When several tenants run with low dream-state effectiveness", func() {
			fv := model.FeatureVector{TenantCount: 2, DreamStateEffectiveness: 65}
			So(table.Classify(fv).ID, ShouldEqual, "multi-tenant-optimization")
		})

		Convey("When modules are busy and the journal is rich", func() {
			fv := model.FeatureVector{TenantCount: 0, ModuleActivity: model.ActivityHigh, JournalInsightCount: 15}
			So(table.Classify(fv).ID, ShouldEqual, "rapid-development-optimization")
		})

		Convey("When there are signals but few recent sessions", func() {
			fv := model.FeatureVector{TotalSignals: 4, RecentSessionCount: 1}
			s := table.Classify(fv)
			So(s.ID, ShouldEqual, "comprehensive-ecosystem-analysis")
			So(s.Params.AnalysisDepth, ShouldEqual, model.DepthComprehensive)
		})

		Convey("When the feature vector is all zero", func() {
			s := table.Classify(model.FeatureVector{})
			So(s.ID, ShouldEqual, "strategic-philosophical-optimization")
			So(s.Default, ShouldBeTrue)
		})

		Convey("When effectiveness is high enough", func() {
			fv := model.FeatureVector{TenantCount: 3, DreamStateEffectiveness: 70, RecentSessionCount: 5, TotalSignals: 2}
			So(table.Classify(fv).ID, ShouldEqual, "strategic-philosophical-optimization")
		})
	})
}

func TestClassifyDeterministic(t *testing.T) {
	fv := model.FeatureVector{TenantCount: 0, ModuleActivity: model.ActivityHigh, JournalInsightCount: 11}
	want := mustDefault(t).Classify(fv).ID
	for i := 0; i < 50; i++ {
		// a fresh table stands in for a process restart
		if got := mustDefault(t).Classify(fv).ID; got != want {
			t.Fatalf("run %d: got %s, want %s", i, got, want)
		}
	}
}

func TestRulesInspectable(t *testing.T) {
	Convey("Given the embedded table", t, func() {
		table := mustDefault(t)
		rules := table.Rules()

		Convey("Then rules come back in priority order", func() {
			ids := make([]string, len(rules))
			for i, r := range rules {
				ids[i] = r.ID
			}
			So(ids, ShouldResemble, []string{
				"multi-tenant-optimization",
				"rapid-development-optimization",
				"comprehensive-ecosystem-analysis",
			})
			So(rules[0].When[0].String(), ShouldEqual, "tenantCount > 1")
		})

		Convey("Then each rule is testable on its own", func() {
			So(rules[1].Matches(model.FeatureVector{ModuleActivity: model.ActivityHigh, JournalInsightCount: 11}), ShouldBeTrue)
			So(rules[1].Matches(model.FeatureVector{ModuleActivity: model.ActivityMedium, JournalInsightCount: 11}), ShouldBeFalse)
		})

		Convey("Then mutating the returned rules does not affect the table", func() {
			rules[0].When[0].Value = 100
			So(table.Classify(model.FeatureVector{TenantCount: 2, DreamStateEffectiveness: 65}).ID, ShouldEqual, "multi-tenant-optimization")
		})

		Convey("Then every scenario is listed with the default last", func() {
			all := table.Scenarios()
			So(len(all), ShouldEqual, 4)
			So(all[3].ID, ShouldEqual, table.Default().ID)
			_, ok := table.Lookup("rapid-development-optimization")
			So(ok, ShouldBeTrue)
			_, ok = table.Lookup("nope")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestPriorityTies(t *testing.T) {
	Convey("Given two matching rules with equal priority", t, func() {
		table, err := NewTable([]Rule{
			{ID: "first", Priority: 1, When: []Condition{{Feature: model.FeatureObservationCount, Op: OpGreaterEqual, Value: 0}}},
			{ID: "second", Priority: 1, When: []Condition{{Feature: model.FeatureObservationCount, Op: OpGreaterEqual, Value: 0}}},
			{ID: "urgent", Priority: 0, When: []Condition{{Feature: model.FeatureActivityLevel, Op: OpEqual, Value: "high"}}},
			{ID: "fallback"},
		}, "fallback")
		So(err, ShouldBeNil)

		Convey("Then declaration order breaks the tie", func() {
			So(table.Classify(model.FeatureVector{}).ID, ShouldEqual, "first")
		})

		Convey("Then lower priority values are evaluated first", func() {
			So(table.Classify(model.FeatureVector{ActivityLevel: model.ActivityHigh}).ID, ShouldEqual, "urgent")
		})
	})
}

func TestTableValidation(t *testing.T) {
	Convey("Given malformed decision tables", t, func() {
		cases := map[string]string{
			"no default":       "scenarios:\n  - id: a",
			"unknown default":  "default: z\nscenarios:\n  - id: a",
			"duplicate":        "default: d\nscenarios:\n  - id: d\n  - id: d",
			"missing id":       "default: d\nscenarios:\n  - id: d\n  - priority: 1\n    when: [{feature: tenantCount, op: '>', value: 1}]",
			"no conditions":    "default: d\nscenarios:\n  - id: d\n  - id: a",
			"default has when": "default: d\nscenarios:\n  - id: d\n    when: [{feature: tenantCount, op: '>', value: 1}]",
			"unknown feature":  "default: d\nscenarios:\n  - id: d\n  - id: a\n    when: [{feature: mood, op: '>', value: 1}]",
			"unknown operator": "default: d\nscenarios:\n  - id: d\n  - id: a\n    when: [{feature: tenantCount, op: '=~', value: 1}]",
			"string for count": "default: d\nscenarios:\n  - id: d\n  - id: a\n    when: [{feature: tenantCount, op: '>', value: many}]",
			"order on level":   "default: d\nscenarios:\n  - id: d\n  - id: a\n    when: [{feature: activityLevel, op: '>', value: low}]",
			"unknown level":    "default: d\nscenarios:\n  - id: d\n  - id: a\n    when: [{feature: activityLevel, op: '==', value: extreme}]",
			"not yaml":         "default: [",
		}

		for name, doc := range cases {
			_, err := ParseTable([]byte(doc))
			So(err, ShouldNotBeNil)
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
			var ce *model.ConfigurationError
			So(errors.As(err, &ce), ShouldBeTrue)
			So(ce.Component, ShouldEqual, component)
			_ = name
		}
	})

	Convey("Given per-category conditions", t, func() {
		table, err := ParseTable([]byte("default: d\nscenarios:\n  - id: d\n  - id: frictional\n    when: [{feature: frequency.friction, op: '>=', value: 40.5}]"))
		So(err, ShouldBeNil)
		fv := model.FeatureVector{CategoryFrequencies: map[string]int{"friction": 41}}
		So(table.Classify(fv).ID, ShouldEqual, "frictional")
	})
}
