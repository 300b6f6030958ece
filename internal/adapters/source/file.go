package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/cadis/internal/domain/model"
)

// Dir reads records from <root>/<source>.json, a JSON array of objects.
type Dir struct {
	root string
}

// NewDir creates a directory source.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// List implements Lister.
func (d *Dir) List(ctx context.Context, source string) ([]model.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if source == "" || strings.ContainsAny(source, `/\`) || strings.Contains(source, "..") {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	data, err := os.ReadFile(filepath.Join(d.root, source+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s records: %w", source, err)
	}
	return DecodeRecords(source, data)
}

// DecodeRecords parses a JSON array of objects into raw records. Numbers are
// kept as json.Number so ids and timestamps survive intact.
func DecodeRecords(source string, data []byte) ([]model.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode %s records: %w", source, err)
	}
	out := make([]model.RawRecord, len(items))
	for i, fields := range items {
		out[i] = model.RawRecord{Source: source, Fields: fields}
	}
	return out, nil
}
