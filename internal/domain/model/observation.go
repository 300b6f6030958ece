// Package model contains the data types that flow between engine stages.
//
// Every value here is built once by the stage that owns it and is treated as
// read-only afterwards.
package model

import "time"

// Source tags understood by the normalizer. Unknown tags are accepted and use
// the union of all text fields.
const (
	SourceConversation = "conversation"
	SourceJournal      = "journal"
	SourceEcosystem    = "ecosystem"
	SourceModule       = "module"
)

// TenantTagPrefix marks the observation tag carrying a record's tenant.
const TenantTagPrefix = "tenant:"

// TenantTag returns the observation tag for tenant.
func TenantTag(tenant string) string { return TenantTagPrefix + tenant }

// RawRecord is one source-specific record as handed over by a data source.
type RawRecord struct {
	Source string         `json:"source"`
	Fields map[string]any `json:"fields"`
}

// Observation is one normalized unit of input.
type Observation struct {
	ID           string             `json:"id"`
	Source       string             `json:"source"`
	Timestamp    time.Time          `json:"timestamp"`
	Text         string             `json:"text"`
	Tags         []string           `json:"tags,omitempty"`
	Participants []string           `json:"participants,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	// Challenges lists recorded friction items, used by the simulator.
	Challenges []string `json:"challenges,omitempty"`
}

// Metric returns the named metric and whether it was recorded.
func (o Observation) Metric(name string) (float64, bool) {
	v, ok := o.Metrics[name]
	return v, ok
}

// SignalCount is the number of matches of one category in one observation.
type SignalCount struct {
	Category string   `json:"category"`
	Count    int      `json:"count"`
	Examples []string `json:"examples,omitempty"`
}

// ObservationSignals pairs an observation with its per-category counts.
type ObservationSignals struct {
	Observation Observation
	Signals     []SignalCount
}

// Total returns the sum of all category counts.
func (s ObservationSignals) Total() int {
	n := 0
	for _, c := range s.Signals {
		n += c.Count
	}
	return n
}

// Count returns the count for category, or 0.
func (s ObservationSignals) Count(category string) int {
	for _, c := range s.Signals {
		if c.Category == category {
			return c.Count
		}
	}
	return 0
}
