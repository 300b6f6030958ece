package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	percentMultiplier   = 100
)

// ErrRunsUnfinished is returned when accepted runs did not finish within
// the wait timeout.
var ErrRunsUnfinished = errors.New("runs did not finish in time")

// ErrVerification is returned when a finished run breaks a result invariant.
var ErrVerification = errors.New("result verification failed")

// Run executes the complete load test and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now(), Scenarios: make(map[string]int)}

	log.Info(ctx, "starting cadis load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("runs", config.NumRuns),
		logger.Int("recordsPerRun", config.RecordsPerRun),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	runs, err := generateRuns(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("run generation failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveRunsToFile(config.OutputFile, runs); err != nil {
			log.Warn(ctx, "failed to save runs to file", logger.Error(err))
		}
	}

	submissions := submitRuns(ctx, config, runs, stats)

	results, err := awaitRuns(ctx, config, submissions, stats)
	if err != nil {
		finish(ctx, stats)
		return stats, err
	}

	verifyResults(ctx, config, results, stats)
	finish(ctx, stats)

	if len(stats.Violations) > 0 {
		return stats, fmt.Errorf("%w: %d violations", ErrVerification, len(stats.Violations))
	}
	log.Info(ctx, "load test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.BaseURL, config.Timeout)
	status, _, err := client.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// the health endpoint answers with the Prometheus exposition
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// awaitRuns polls every accepted run until it reaches a terminal state or
// the wait timeout passes.
func awaitRuns(ctx context.Context, config *Config, subs []submission, stats *Stats) (map[string]model.RunResult, error) {
	client := newHTTPClient(config.BaseURL, config.Timeout)
	pending := make(map[string]struct{})
	for _, s := range subs {
		if s.outcome == outcomeAccepted {
			pending[s.runID] = struct{}{}
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, config.WaitTimeout)
	defer cancel()
	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()

	results := make(map[string]model.RunResult, len(pending))
	for len(pending) > 0 {
		for id := range pending {
			res, done, err := fetchRun(waitCtx, client, id)
			if err != nil {
				if waitCtx.Err() != nil {
					break
				}
				if config.Verbose {
					logger.Get().Warn(ctx, "poll run", logger.String("runID", id), logger.Error(err))
				}
				continue
			}
			if done {
				results[id] = res
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-waitCtx.Done():
			stats.RunsUnfinished = len(pending)
			return results, fmt.Errorf("%w: %d pending", ErrRunsUnfinished, len(pending))
		case <-ticker.C:
		}
	}
	return results, nil
}

// saveRunsToFile writes the generated requests as a JSON array.
func saveRunsToFile(filename string, runs []model.RunRequest) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal runs: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// finish stamps the duration and logs the final statistics.
func finish(ctx context.Context, stats *Stats) {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	var acceptRate, runsPerSecond float64
	if stats.RunsSubmitted > 0 {
		acceptRate = float64(stats.RunsAccepted) / float64(stats.RunsSubmitted) * percentMultiplier
	}
	if stats.Duration > 0 {
		runsPerSecond = float64(stats.RunsCompleted+stats.RunsErrored) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("runsGenerated", stats.RunsGenerated),
		logger.Int("runsSubmitted", stats.RunsSubmitted),
		logger.Int("runsAccepted", stats.RunsAccepted),
		logger.Int("runsDuplicate", stats.RunsDuplicate),
		logger.Int("runsRejected", stats.RunsRejected),
		logger.Int("runsFailed", stats.RunsFailed),
		logger.Int("runsCompleted", stats.RunsCompleted),
		logger.Int("runsErrored", stats.RunsErrored),
		logger.Int("runsUnfinished", stats.RunsUnfinished),
		logger.Int("insights", stats.Insights),
		logger.Any("scenarios", stats.Scenarios),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("runsPerSecond", runsPerSecond))
}
