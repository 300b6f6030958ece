package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/cadis/internal/domain/model"
)

func setupPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_SaveRun(t *testing.T) {
	store, mock := setupPostgresStore(t)
	run := sampleRun("run-1")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cadis_runs")).
		WithArgs("run-1", "complete", "growth-trajectory-analysis", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cadis_insights")).
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cadis_insights")).
		WithArgs("run-1", sqlmock.AnyArg(), "activity", "medium", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRunRollsBack(t *testing.T) {
	store, mock := setupPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cadis_runs")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.SaveRun(context.Background(), sampleRun("run-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert run run-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRunWithoutID(t *testing.T) {
	store, mock := setupPostgresStore(t)
	assert.ErrorIs(t, store.SaveRun(context.Background(), model.RunResult{}), ErrMissingRunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	store, mock := setupPostgresStore(t)
	want := sampleRun("run-1")
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT result FROM cadis_runs WHERE run_id = $1")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(payload))

	got, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, want.Scenario.ID, got.Scenario.ID)
	assert.Equal(t, want.Insights[0].Title, got.Insights[0].Title)
	assert.True(t, want.Report.StartedAt.Equal(got.Report.StartedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRunNotFound(t *testing.T) {
	store, mock := setupPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT result FROM cadis_runs")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"result"}))

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSimulation(t *testing.T) {
	store, mock := setupPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cadis_simulations")).
		WithArgs("obs-1", 87.3, 99.3, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveSimulation(context.Background(), model.SimulationResult{
		ObservationID:       "obs-1",
		BaselineEfficiency:  87.3,
		ProjectedEfficiency: 99.3,
		MatchedHeuristics:   []string{"typescript", "authentication"},
		TimeSavedMinutes:    30,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
