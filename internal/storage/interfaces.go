package storage

import (
	"context"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/query"
)

// SignalStore provides access to the signals table.
//
// Status-changing operations are conditional on the expected current
// status and return ErrStatusConflict when a concurrent writer got there
// first. Closing a signal writes the terminal status together with all
// outcome fields in one update, so a crash cannot leave a terminal signal
// without an outcome.
type SignalStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, sig *domain.Signal) error

	// GetByID retrieves a signal by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Signal, error)

	// Select retrieves all signals matching the predicate, ordered by
	// created_at ASC, id ASC.
	Select(ctx context.Context, pred query.Predicate) ([]*domain.Signal, error)

	// TransitionStatus moves a signal from one status to another without
	// recording an outcome. When to is ACTIVE, activated_at is set to at.
	// Returns ErrStatusConflict if the stored status is not from.
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) error

	// CloseWithOutcome moves a signal into a terminal status and records
	// exit price, net return, and success in the same update.
	// Returns ErrStatusConflict if the stored status is not from.
	CloseWithOutcome(ctx context.Context, id, from, to string, exitPrice, actualReturn float64, success bool) error
}

// StatusHistoryStore provides access to the append-only
// signal_status_history log.
type StatusHistoryStore interface {
	// Append records a transition. Returns ErrDuplicateKey if the
	// transition ID exists.
	Append(ctx context.Context, tr *domain.StatusTransition) error

	// GetBySignalID retrieves all transitions for a signal, ordered by
	// occurred_at ASC.
	GetBySignalID(ctx context.Context, signalID string) ([]*domain.StatusTransition, error)
}

// OutboxStore provides access to the notification/execution outbox.
// Events survive restarts; delivery is at-least-once and consumers
// deduplicate on event ID.
type OutboxStore interface {
	// Enqueue records a pending event. Returns ErrDuplicateKey if the
	// event ID exists, which callers may treat as already recorded.
	Enqueue(ctx context.Context, ev *domain.OutboxEvent) error

	// PickPending retrieves up to limit undelivered events, ordered by
	// created_at ASC.
	PickPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)

	// MarkDelivered stamps an event as delivered.
	MarkDelivered(ctx context.Context, eventID string, at time.Time) error

	// RecordAttempt increments the delivery attempt counter.
	RecordAttempt(ctx context.Context, eventID string) error
}

// TokenStore provides access to the tokens table.
type TokenStore interface {
	// Upsert inserts or replaces a token record keyed by mint.
	Upsert(ctx context.Context, tok *domain.Token) error

	// GetByMint retrieves a token. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Token, error)

	// ListActive retrieves all active tokens, ordered by symbol ASC.
	ListActive(ctx context.Context) ([]*domain.Token, error)
}

// TokenSnapshotStore provides access to token_snapshots timeseries
// storage.
type TokenSnapshotStore interface {
	// InsertBulk adds multiple snapshots.
	InsertBulk(ctx context.Context, snaps []*domain.TokenSnapshot) error

	// GetRange retrieves snapshots for a mint within [fromMs, toMs]
	// (inclusive), ordered by timestamp ASC.
	GetRange(ctx context.Context, mint string, fromMs, toMs int64) ([]*domain.TokenSnapshot, error)
}
