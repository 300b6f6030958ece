package repository

import (
	"context"
	"sync"

	"github.com/okian/cadis/internal/domain/model"
)

// MemoryStore is an in-process Store. Results are deep-copied through JSON
// on the way in and out so callers never share slices with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	runs        map[string]model.RunResult
	simulations []model.SimulationResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]model.RunResult)}
}

// SaveRun implements Store.
func (s *MemoryStore) SaveRun(ctx context.Context, result model.RunResult) error {
	if err := checkRunID(result); err != nil {
		return err
	}
	cp, err := cloneRun(result)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[result.Report.RunID] = cp
	return nil
}

// GetRun implements Store.
func (s *MemoryStore) GetRun(ctx context.Context, runID string) (model.RunResult, error) {
	s.mu.RLock()
	r, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return model.RunResult{}, ErrNotFound
	}
	return cloneRun(r)
}

// SaveSimulation implements Store.
func (s *MemoryStore) SaveSimulation(ctx context.Context, result model.SimulationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.MatchedHeuristics = append([]string(nil), result.MatchedHeuristics...)
	result.Actions = append([]string(nil), result.Actions...)
	s.simulations = append(s.simulations, result)
	return nil
}

// Simulations returns the stored simulations in save order.
func (s *MemoryStore) Simulations() []model.SimulationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SimulationResult(nil), s.simulations...)
}

// Len returns the number of stored runs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
