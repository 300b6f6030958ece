package source

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/okian/cadis/internal/domain/model"
)

// Postgres reads records from the cadis_records table:
//
//	source text, payload jsonb, created_at timestamptz
type Postgres struct{ db *sql.DB }

// NewPostgres creates a Postgres-backed record source.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// List implements Lister. A source with no rows is an empty list, not an
// unknown source.
func (p *Postgres) List(ctx context.Context, source string) ([]model.RawRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT payload
		FROM cadis_records
		WHERE source = $1
		ORDER BY created_at ASC
	`, source)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", source, err)
	}
	defer rows.Close()

	var out []model.RawRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", source, err)
		}
		out = append(out, model.RawRecord{Source: source, Fields: decodePayload(payload)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", source, err)
	}
	return out, nil
}

// decodePayload parses one jsonb payload, keeping numbers as json.Number.
// A malformed payload yields nil fields so the normalizer counts it.
func decodePayload(payload []byte) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil
	}
	return fields
}
