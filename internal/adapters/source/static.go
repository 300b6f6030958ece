package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cadis/internal/domain/model"
)

// Static serves records held in memory. Useful for tests and for records
// pushed through the API.
type Static struct {
	mu      sync.RWMutex
	records map[string][]model.RawRecord
	delay   time.Duration
}

// StaticOption configures a Static source.
type StaticOption func(*Static)

// WithDelay makes every List call wait d or until ctx is done.
func WithDelay(d time.Duration) StaticOption {
	return func(s *Static) {
		if d > 0 {
			s.delay = d
		}
	}
}

// NewStatic creates a static source.
func NewStatic(records map[string][]model.RawRecord, opts ...StaticOption) *Static {
	s := &Static{records: make(map[string][]model.RawRecord, len(records))}
	for k, v := range records {
		s.records[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put replaces the records of source.
func (s *Static) Put(source string, records []model.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[source] = records
}

// List implements Lister. Records get their Source set to the tag.
func (s *Static) List(ctx context.Context, source string) ([]model.RawRecord, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.RLock()
	recs, ok := s.records[source]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	out := make([]model.RawRecord, len(recs))
	for i, r := range recs {
		r.Source = source
		out[i] = r
	}
	return out, nil
}
