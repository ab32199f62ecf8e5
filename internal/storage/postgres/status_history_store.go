package postgres

import (
	"context"
	"fmt"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// StatusHistoryStore implements storage.StatusHistoryStore using
// PostgreSQL.
type StatusHistoryStore struct {
	pool *Pool
}

// NewStatusHistoryStore creates a new StatusHistoryStore.
func NewStatusHistoryStore(pool *Pool) *StatusHistoryStore {
	return &StatusHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StatusHistoryStore = (*StatusHistoryStore)(nil)

// Append records a transition. Returns ErrDuplicateKey if the transition
// ID exists.
func (s *StatusHistoryStore) Append(ctx context.Context, tr *domain.StatusTransition) error {
	q := `
		INSERT INTO signal_status_history (
			transition_id, signal_id, from_status, to_status, reason, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, q,
		tr.TransitionID, tr.SignalID, tr.FromStatus, tr.ToStatus, tr.Reason, tr.OccurredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append status transition: %w", err)
	}
	return nil
}

// GetBySignalID retrieves all transitions for a signal, ordered by
// occurred_at ASC, transition_id ASC.
func (s *StatusHistoryStore) GetBySignalID(ctx context.Context, signalID string) ([]*domain.StatusTransition, error) {
	q := `
		SELECT transition_id, signal_id, from_status, to_status, reason, occurred_at
		FROM signal_status_history
		WHERE signal_id = $1
		ORDER BY occurred_at ASC, transition_id ASC
	`

	rows, err := s.pool.Query(ctx, q, signalID)
	if err != nil {
		return nil, fmt.Errorf("get status history: %w", err)
	}
	defer rows.Close()

	var result []*domain.StatusTransition
	for rows.Next() {
		var tr domain.StatusTransition
		if err := rows.Scan(&tr.TransitionID, &tr.SignalID, &tr.FromStatus, &tr.ToStatus, &tr.Reason, &tr.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan status transition: %w", err)
		}
		result = append(result, &tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return result, nil
}
