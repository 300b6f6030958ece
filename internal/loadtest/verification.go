package loadtest

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

// verifyResults checks every finished run and tallies scenarios. Broken
// invariants are collected in stats.Violations.
func verifyResults(ctx context.Context, config *Config, results map[string]model.RunResult, stats *Stats) {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		res := results[id]
		if res.Report.State == model.StateFailed {
			stats.RunsErrored++
			continue
		}
		stats.RunsCompleted++
		stats.Insights += len(res.Insights)
		stats.Scenarios[res.Scenario.ID]++
		stats.Violations = append(stats.Violations, checkRun(id, res, config.MaxInsights)...)
	}

	for _, v := range stats.Violations {
		logger.Get().Warn(ctx, "run violates an invariant", logger.String("violation", v))
	}
	logger.Get().Info(ctx, "result verification completed",
		logger.Int("completed", stats.RunsCompleted),
		logger.Int("errored", stats.RunsErrored),
		logger.Int("violations", len(stats.Violations)))
}

// checkRun returns one message per broken invariant of a completed run.
func checkRun(id string, res model.RunResult, maxInsights int) []string {
	var out []string
	if res.Report.RunID != id {
		out = append(out, fmt.Sprintf("%s: report carries run id %q", id, res.Report.RunID))
	}
	if res.Scenario.ID == "" {
		out = append(out, fmt.Sprintf("%s: no scenario selected", id))
	}
	if maxInsights > 0 && len(res.Insights) > maxInsights {
		out = append(out, fmt.Sprintf("%s: %d insights over the cap of %d", id, len(res.Insights), maxInsights))
	}
	for i, in := range res.Insights {
		if err := in.Validate(); err != nil {
			out = append(out, fmt.Sprintf("%s: insight %d: %v", id, i, err))
		}
		if i > 0 && in.Confidence > res.Insights[i-1].Confidence {
			out = append(out, fmt.Sprintf("%s: insight %d is more confident than its predecessor", id, i))
		}
	}
	d := res.Report.Diagnostics
	if d.Excluded > d.Seen {
		out = append(out, fmt.Sprintf("%s: %d excluded of %d seen", id, d.Excluded, d.Seen))
	}
	return out
}
