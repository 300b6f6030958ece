// Package repository persists completed analysis runs and simulations.
package repository

import (
	"context"

	"github.com/okian/cadis/internal/domain/model"
)

// Store provides read/write access to run results.
type Store interface {
	// SaveRun stores a run result keyed by its report's run id. Saving the
	// same id again replaces the earlier result.
	SaveRun(ctx context.Context, result model.RunResult) error

	// GetRun returns the run with the given id.
	// Returns ErrNotFound if the run is unknown.
	GetRun(ctx context.Context, runID string) (model.RunResult, error)

	// SaveSimulation stores one simulation result.
	SaveSimulation(ctx context.Context, result model.SimulationResult) error

	// Close releases the store's resources.
	Close() error
}

func checkRunID(result model.RunResult) error {
	if result.Report.RunID == "" {
		return ErrMissingRunID
	}
	return nil
}
