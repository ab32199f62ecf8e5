package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/query"
	"kinkong/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by signal ID
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.Signal),
	}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a new signal. Returns ErrDuplicateKey if the ID exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := cloneSignal(sig)
	s.data[sig.ID] = cp
	return nil
}

// GetByID retrieves a signal by ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, id string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneSignal(sig), nil
}

// Select retrieves all signals matching the predicate, ordered by
// CreatedAt ASC, ID ASC.
func (s *SignalStore) Select(_ context.Context, pred query.Predicate) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if pred == nil || pred.Match(sig) {
			result = append(result, cloneSignal(sig))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// TransitionStatus moves a signal between statuses without an outcome.
// Returns ErrStatusConflict if the stored status is not from.
func (s *SignalStore) TransitionStatus(_ context.Context, id, from, to string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if sig.Status != from {
		return storage.ErrStatusConflict
	}

	sig.Status = to
	if to == domain.StatusActive {
		t := at
		sig.ActivatedAt = &t
	}
	sig.Version++
	return nil
}

// CloseWithOutcome moves a signal into a terminal status and records the
// outcome fields in the same step.
func (s *SignalStore) CloseWithOutcome(_ context.Context, id, from, to string, exitPrice, actualReturn float64, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if sig.Status != from {
		return storage.ErrStatusConflict
	}

	sig.Status = to
	sig.ExitPrice = &exitPrice
	sig.ActualReturn = &actualReturn
	sig.Success = &success
	sig.Version++
	return nil
}

// cloneSignal deep-copies a signal including its pointer fields.
func cloneSignal(sig *domain.Signal) *domain.Signal {
	cp := *sig
	if sig.ActivatedAt != nil {
		t := *sig.ActivatedAt
		cp.ActivatedAt = &t
	}
	if sig.ExitPrice != nil {
		v := *sig.ExitPrice
		cp.ExitPrice = &v
	}
	if sig.ActualReturn != nil {
		v := *sig.ActualReturn
		cp.ActualReturn = &v
	}
	if sig.Success != nil {
		v := *sig.Success
		cp.Success = &v
	}
	return &cp
}
