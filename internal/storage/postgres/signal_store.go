package postgres

import (
	"context"
	"fmt"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/query"
	"kinkong/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `
	id, mint, token, type, timeframe,
	entry_price, target_price, stop_loss, confidence,
	status, created_at, expires_at, activated_at,
	exit_price, actual_return, success, version
`

// Insert adds a new signal. Returns ErrDuplicateKey if the ID exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) error {
	q := `
		INSERT INTO signals (` + signalColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17
		)
	`

	_, err := s.pool.Exec(ctx, q,
		sig.ID, sig.Mint, sig.Token, sig.Type, sig.Timeframe,
		sig.EntryPrice, sig.TargetPrice, sig.StopLoss, sig.Confidence,
		sig.Status, sig.CreatedAt, sig.ExpiresAt, sig.ActivatedAt,
		sig.ExitPrice, sig.ActualReturn, sig.Success, sig.Version,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	q := `SELECT ` + signalColumns + ` FROM signals WHERE id = $1`

	row := s.pool.QueryRow(ctx, q, id)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// Select retrieves all signals matching the predicate, ordered by
// created_at ASC, id ASC. The predicate renders to a native WHERE clause.
func (s *SignalStore) Select(ctx context.Context, pred query.Predicate) ([]*domain.Signal, error) {
	cond := "TRUE"
	var args []any
	if pred != nil {
		cond, args, _ = pred.SQL(1)
	}

	q := `SELECT ` + signalColumns + ` FROM signals WHERE ` + cond + ` ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select signals: %w", err)
	}
	defer rows.Close()

	var result []*domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		result = append(result, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return result, nil
}

// TransitionStatus moves a signal between statuses with an optimistic
// guard on the current status. A lost race returns ErrStatusConflict.
func (s *SignalStore) TransitionStatus(ctx context.Context, id, from, to string, at time.Time) error {
	q := `
		UPDATE signals
		SET status = $3,
		    activated_at = CASE WHEN $3 = $4 THEN $5 ELSE activated_at END,
		    version = version + 1
		WHERE id = $1 AND status = $2
	`

	tag, err := s.pool.Exec(ctx, q, id, from, to, domain.StatusActive, at)
	if err != nil {
		return fmt.Errorf("transition signal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return nil
}

// CloseWithOutcome writes the terminal status and every outcome field in
// a single conditional UPDATE, so a terminal signal can never be observed
// without its outcome.
func (s *SignalStore) CloseWithOutcome(ctx context.Context, id, from, to string, exitPrice, actualReturn float64, success bool) error {
	q := `
		UPDATE signals
		SET status = $3,
		    exit_price = $4,
		    actual_return = $5,
		    success = $6,
		    version = version + 1
		WHERE id = $1 AND status = $2
	`

	tag, err := s.pool.Exec(ctx, q, id, from, to, exitPrice, actualReturn, success)
	if err != nil {
		return fmt.Errorf("close signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return nil
}

// conflictOrNotFound distinguishes a missing row from a lost status race.
func (s *SignalStore) conflictOrNotFound(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM signals WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check signal exists: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrStatusConflict
}

// rowScanner matches both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*domain.Signal, error) {
	var sig domain.Signal
	err := row.Scan(
		&sig.ID, &sig.Mint, &sig.Token, &sig.Type, &sig.Timeframe,
		&sig.EntryPrice, &sig.TargetPrice, &sig.StopLoss, &sig.Confidence,
		&sig.Status, &sig.CreatedAt, &sig.ExpiresAt, &sig.ActivatedAt,
		&sig.ExitPrice, &sig.ActualReturn, &sig.Success, &sig.Version,
	)
	if err != nil {
		return nil, err
	}
	return &sig, nil
}
