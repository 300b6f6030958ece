package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/okian/cadis/internal/domain/model"
)

// PostgresStore persists runs in three tables:
//
//	cadis_runs(run_id text primary key, state text, scenario_id text,
//	           result jsonb, started_at timestamptz, finished_at timestamptz)
//	cadis_insights(run_id text, position int, category text, impact text,
//	               confidence double precision, insight jsonb)
//	cadis_simulations(observation_id text, baseline double precision,
//	                  projected double precision, time_saved_minutes int,
//	                  matched_heuristics text[], result jsonb)
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed store over an open pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveRun implements Store. The run row and its insight rows are written in
// one transaction; an existing run with the same id is replaced.
func (s *PostgresStore) SaveRun(ctx context.Context, result model.RunResult) error {
	if err := checkRunID(result); err != nil {
		return err
	}
	payload, err := encodeRun(result)
	if err != nil {
		return err
	}
	runID := result.Report.RunID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run %s: %w", runID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cadis_runs (run_id, state, scenario_id, result, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			state = EXCLUDED.state,
			scenario_id = EXCLUDED.scenario_id,
			result = EXCLUDED.result,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`, runID, string(result.Report.State), result.Scenario.ID, payload,
		result.Report.StartedAt, result.Report.FinishedAt); err != nil {
		return fmt.Errorf("upsert run %s: %w", runID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cadis_insights WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("clear insights of run %s: %w", runID, err)
	}
	for i, in := range result.Insights {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode insight %d of run %s: %w", i, runID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cadis_insights (run_id, position, category, impact, confidence, insight)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, runID, i, in.Category, string(in.Impact), in.Confidence, b); err != nil {
			return fmt.Errorf("insert insight %d of run %s: %w", i, runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", runID, err)
	}
	return nil
}

// GetRun implements Store.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (model.RunResult, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT result FROM cadis_runs WHERE run_id = $1`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunResult{}, ErrNotFound
	}
	if err != nil {
		return model.RunResult{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return decodeRun(payload)
}

// SaveSimulation implements Store.
func (s *PostgresStore) SaveSimulation(ctx context.Context, result model.SimulationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode simulation %s: %w", result.ObservationID, err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cadis_simulations
			(observation_id, baseline, projected, time_saved_minutes, matched_heuristics, result)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, result.ObservationID, result.BaselineEfficiency, result.ProjectedEfficiency,
		result.TimeSavedMinutes, pq.Array(result.MatchedHeuristics), payload); err != nil {
		return fmt.Errorf("insert simulation %s: %w", result.ObservationID, err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
