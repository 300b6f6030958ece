package model

import "time"

// RunState is a state of the analysis run state machine.
type RunState string

// Run states.
const (
	StateIdle         RunState = "idle"
	StateNormalizing  RunState = "normalizing"
	StateExtracting   RunState = "extracting"
	StateAggregating  RunState = "aggregating"
	StateClassifying  RunState = "classifying"
	StateSynthesizing RunState = "synthesizing"
	StateComplete     RunState = "complete"
	StateFailed       RunState = "failed"
	StateSimulating   RunState = "simulating"
)

// Terminal reports whether no transition leaves s.
func (s RunState) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Transition records one state change of a run.
type Transition struct {
	From RunState  `json:"from"`
	To   RunState  `json:"to"`
	At   time.Time `json:"at"`
}

// Source issue kinds.
const (
	IssueTimeout = "timeout"
	IssueError   = "error"
)

// SourceIssue records a record source that contributed nothing.
type SourceIssue struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Reasons a template produced no insight.
const (
	SkipPrecondition = "precondition"
	SkipFocus        = "focus"
)

// SkippedTemplate names a template that produced no insight and why. It is
// a report entry, not an error.
type SkippedTemplate struct {
	TemplateID string `json:"templateId"`
	Reason     string `json:"reason"`
}

// RunReport annotates a run with everything that did not stop it.
type RunReport struct {
	RunID            string            `json:"runId"`
	State            RunState          `json:"state"`
	Diagnostics      Diagnostics       `json:"diagnostics"`
	Transitions      []Transition      `json:"transitions"`
	SourceIssues     []SourceIssue     `json:"sourceIssues,omitempty"`
	SkippedTemplates []SkippedTemplate `json:"skippedTemplates,omitempty"`
	Error            string            `json:"error,omitempty"`
	StartedAt        time.Time         `json:"startedAt"`
	FinishedAt       time.Time         `json:"finishedAt"`
}

// RunResult is everything a completed analysis run produces.
type RunResult struct {
	Scenario      Scenario      `json:"scenario"`
	Insights      []Insight     `json:"insights"`
	FeatureVector FeatureVector `json:"featureVector"`
	Trend         Trend         `json:"trend"`
	Report        RunReport     `json:"report"`
}

// RunRequest asks for one analysis run, either over inline records or over
// named record sources. Records take precedence when both are set.
type RunRequest struct {
	ID          string      `json:"id"`
	Sources     []string    `json:"sources,omitempty"`
	Records     []RawRecord `json:"records,omitempty"`
	MaxInsights int         `json:"maxInsights,omitempty"`
}
