package memory

import (
	"context"
	"sort"
	"sync"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// StatusHistoryStore is an in-memory implementation of
// storage.StatusHistoryStore.
type StatusHistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StatusTransition // keyed by transition ID
}

// NewStatusHistoryStore creates a new in-memory status history store.
func NewStatusHistoryStore() *StatusHistoryStore {
	return &StatusHistoryStore{
		data: make(map[string]*domain.StatusTransition),
	}
}

// Compile-time interface check.
var _ storage.StatusHistoryStore = (*StatusHistoryStore)(nil)

// Append records a transition. Returns ErrDuplicateKey if the transition
// ID exists.
func (s *StatusHistoryStore) Append(_ context.Context, tr *domain.StatusTransition) error {
	if tr == nil || tr.TransitionID == "" || tr.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tr.TransitionID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *tr
	s.data[tr.TransitionID] = &cp
	return nil
}

// GetBySignalID retrieves all transitions for a signal, ordered by
// OccurredAt ASC, TransitionID ASC.
func (s *StatusHistoryStore) GetBySignalID(_ context.Context, signalID string) ([]*domain.StatusTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StatusTransition
	for _, tr := range s.data {
		if tr.SignalID == signalID {
			cp := *tr
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.Before(result[j].OccurredAt)
		}
		return result[i].TransitionID < result[j].TransitionID
	})
	return result, nil
}
