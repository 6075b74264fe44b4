package repository

import (
	"context"
	"sync"

	"github.com/okian/commentsense/internal/domain/model"
)

const defaultCapacity = 10_000

// MemoryStore keeps the most recent outcomes in process memory. Used in
// server mode when no table is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	byID     map[string]model.Outcome
	order    []string // insertion order, oldest first
}

// NewMemoryStore creates an empty bounded store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[string]model.Outcome, s.capacity)
	return s
}

// Record stores outcome, evicting the oldest entry when full.
func (s *MemoryStore) Record(_ context.Context, outcome model.Outcome) error {
	if outcome.EventID == "" {
		return ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[outcome.EventID]; !ok {
		if len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.byID, oldest)
		}
		s.order = append(s.order, outcome.EventID)
	}
	s.byID[outcome.EventID] = outcome
	return nil
}

// Get returns a stored outcome.
func (s *MemoryStore) Get(_ context.Context, eventID string) (model.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[eventID]
	if !ok {
		return model.Outcome{}, ErrNotFound
	}
	return o, nil
}

// Count returns the number of stored outcomes.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
