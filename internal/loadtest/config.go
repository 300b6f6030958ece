// Package loadtest drives a running API with generated analysis runs and
// verifies what comes back.
package loadtest

import (
	"time"

	"github.com/okian/cadis/internal/domain/model"
)

// Config holds configuration for a load test.
type Config struct {
	BaseURL       string        // Base URL of the service
	NumRuns       int           // Number of runs to submit
	RecordsPerRun int           // Records generated per run
	MaxInsights   int           // maxInsights sent with every run; 0 means unbounded
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	PollInterval  time.Duration // Delay between run status polls
	WaitTimeout   time.Duration // Upper bound on waiting for all runs to finish
	Seed          uint64        // Seed of the record generator
	OutputFile    string        // Where generated requests are written; empty skips
	Verbose       bool          // Log every failure
}

// submitResponse is the body of an accepted POST /runs.
type submitResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// errorResponse is the body of every API error.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats holds load test statistics.
type Stats struct {
	RunsGenerated int
	RunsSubmitted int
	RunsAccepted  int
	RunsDuplicate int
	RunsRejected  int
	RunsFailed    int

	RunsCompleted  int
	RunsErrored    int
	RunsUnfinished int
	Insights       int
	Scenarios      map[string]int
	Violations     []string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// submission is one generated request and what the service answered.
type submission struct {
	request model.RunRequest
	runID   string
	outcome string
}

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)
