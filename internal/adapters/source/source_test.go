package source

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/cadis/internal/domain/model"
)

func TestStatic(t *testing.T) {
	s := NewStatic(map[string][]model.RawRecord{
		"journal": {{Fields: map[string]any{"content": "hello"}}},
	})

	recs, err := s.List(context.Background(), "journal")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "journal", recs[0].Source)

	_, err = s.List(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownSource)

	s.Put("missing", nil)
	recs, err = s.List(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStaticDelayHonoursContext(t *testing.T) {
	s := NewStatic(map[string][]model.RawRecord{"slow": nil}, WithDelay(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.List(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMulti(t *testing.T) {
	a := NewStatic(map[string][]model.RawRecord{"a": {{Fields: map[string]any{"x": 1}}}})
	b := NewStatic(map[string][]model.RawRecord{"b": {{Fields: map[string]any{"y": 2}}, {Fields: map[string]any{"y": 3}}}})
	m := Multi{a, b}

	recs, err := m.List(context.Background(), "b")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = m.List(context.Background(), "c")
	assert.True(t, errors.Is(err, ErrUnknownSource))
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	body := `[{"id": 12345678901234567, "content": "learned"}, {"title": "plan"}]`
	require.NoError(t, os.WriteFile(filepath.Join(root, "journal.json"), []byte(body), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.json"), []byte(`{`), 0o600))
	d := NewDir(root)

	recs, err := d.List(context.Background(), "journal")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "journal", recs[1].Source)
	assert.Equal(t, "12345678901234567", recs[0].Fields["id"].(json.Number).String())

	_, err = d.List(context.Background(), "conversation")
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = d.List(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = d.List(context.Background(), "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownSource)
}

func TestPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	query := regexp.QuoteMeta(`SELECT payload
		FROM cadis_records
		WHERE source = $1`)

	mock.ExpectQuery(query).
		WithArgs("journal").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).
			AddRow([]byte(`{"content": "reflection", "timestamp": "2025-01-01T00:00:00Z"}`)).
			AddRow([]byte(`not json`)).
			AddRow([]byte(`{"content": "late", "id": 9007199254740993, "timestamp": 1735689600123}`)))

	recs, err := NewPostgres(db).List(context.Background(), "journal")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "reflection", recs[0].Fields["content"])
	assert.Nil(t, recs[1].Fields)
	assert.Equal(t, json.Number("9007199254740993"), recs[2].Fields["id"])
	assert.Equal(t, json.Number("1735689600123"), recs[2].Fields["timestamp"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT payload").WillReturnError(errors.New("connection refused"))

	_, err = NewPostgres(db).List(context.Background(), "journal")
	assert.ErrorContains(t, err, "list journal records")
	assert.NoError(t, mock.ExpectationsWereMet())
}
