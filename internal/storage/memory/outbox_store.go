package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// OutboxStore is an in-memory implementation of storage.OutboxStore.
// Unlike the database-backed store it does not survive restarts; it
// exists for tests and dry-run mode.
type OutboxStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OutboxEvent // keyed by event ID
}

// NewOutboxStore creates a new in-memory outbox store.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{
		data: make(map[string]*domain.OutboxEvent),
	}
}

// Compile-time interface check.
var _ storage.OutboxStore = (*OutboxStore)(nil)

// Enqueue records a pending event. Returns ErrDuplicateKey if the event
// ID exists.
func (s *OutboxStore) Enqueue(_ context.Context, ev *domain.OutboxEvent) error {
	if ev == nil || ev.EventID == "" || ev.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[ev.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[ev.EventID] = cloneEvent(ev)
	return nil
}

// PickPending retrieves up to limit undelivered events, ordered by
// CreatedAt ASC, EventID ASC.
func (s *OutboxStore) PickPending(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OutboxEvent
	for _, ev := range s.data {
		if ev.DeliveredAt == nil {
			result = append(result, cloneEvent(ev))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].EventID < result[j].EventID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkDelivered stamps an event as delivered.
func (s *OutboxStore) MarkDelivered(_ context.Context, eventID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, exists := s.data[eventID]
	if !exists {
		return storage.ErrNotFound
	}
	t := at
	ev.DeliveredAt = &t
	return nil
}

// RecordAttempt increments the delivery attempt counter.
func (s *OutboxStore) RecordAttempt(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, exists := s.data[eventID]
	if !exists {
		return storage.ErrNotFound
	}
	ev.Attempts++
	return nil
}

func cloneEvent(ev *domain.OutboxEvent) *domain.OutboxEvent {
	cp := *ev
	if ev.Payload != nil {
		cp.Payload = append([]byte(nil), ev.Payload...)
	}
	if ev.DeliveredAt != nil {
		t := *ev.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}
