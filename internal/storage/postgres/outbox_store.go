package postgres

import (
	"context"
	"fmt"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// OutboxStore implements storage.OutboxStore using PostgreSQL. The table
// is the durable replacement for the source system's in-memory queues:
// pending events survive restarts and are redelivered.
type OutboxStore struct {
	pool *Pool
}

// NewOutboxStore creates a new OutboxStore.
func NewOutboxStore(pool *Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OutboxStore = (*OutboxStore)(nil)

// Enqueue records a pending event. Returns ErrDuplicateKey if the event
// ID exists.
func (s *OutboxStore) Enqueue(ctx context.Context, ev *domain.OutboxEvent) error {
	q := `
		INSERT INTO outbox_events (
			event_id, signal_id, kind, payload, created_at, attempts, delivered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, q,
		ev.EventID, ev.SignalID, ev.Kind, ev.Payload, ev.CreatedAt, ev.Attempts, ev.DeliveredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// PickPending retrieves up to limit undelivered events, ordered by
// created_at ASC, event_id ASC.
func (s *OutboxStore) PickPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	q := `
		SELECT event_id, signal_id, kind, payload, created_at, attempts, delivered_at
		FROM outbox_events
		WHERE delivered_at IS NULL
		ORDER BY created_at ASC, event_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("pick pending outbox events: %w", err)
	}
	defer rows.Close()

	var result []*domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		if err := rows.Scan(&ev.EventID, &ev.SignalID, &ev.Kind, &ev.Payload, &ev.CreatedAt, &ev.Attempts, &ev.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		result = append(result, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return result, nil
}

// MarkDelivered stamps an event as delivered.
func (s *OutboxStore) MarkDelivered(ctx context.Context, eventID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE outbox_events SET delivered_at = $2 WHERE event_id = $1`,
		eventID, at,
	)
	if err != nil {
		return fmt.Errorf("mark outbox event delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RecordAttempt increments the delivery attempt counter.
func (s *OutboxStore) RecordAttempt(ctx context.Context, eventID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1 WHERE event_id = $1`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("record outbox attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
