// Package source provides the record sources an analysis run reads from.
package source

import (
	"context"
	"errors"

	"github.com/okian/cadis/internal/domain/model"
)

// ErrUnknownSource is returned when a lister has no records for a source tag.
var ErrUnknownSource = errors.New("unknown record source")

// Lister lists the raw records of one source.
type Lister interface {
	List(ctx context.Context, source string) ([]model.RawRecord, error)
}

// Multi tries each lister in order and returns the first that knows source.
type Multi []Lister

// List implements Lister.
func (m Multi) List(ctx context.Context, source string) ([]model.RawRecord, error) {
	for _, l := range m {
		recs, err := l.List(ctx, source)
		if errors.Is(err, ErrUnknownSource) {
			continue
		}
		return recs, err
	}
	return nil, ErrUnknownSource
}
