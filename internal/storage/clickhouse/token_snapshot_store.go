package clickhouse

import (
	"context"
	"fmt"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// TokenSnapshotStore implements storage.TokenSnapshotStore using
// ClickHouse. Snapshots are append-heavy market data; MergeTree ordered
// by (mint, timestamp_ms) serves the range reads the simulator needs.
type TokenSnapshotStore struct {
	conn *Conn
}

// NewTokenSnapshotStore creates a new TokenSnapshotStore.
func NewTokenSnapshotStore(conn *Conn) *TokenSnapshotStore {
	return &TokenSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TokenSnapshotStore = (*TokenSnapshotStore)(nil)

// InsertBulk adds multiple snapshots in a single batch.
func (s *TokenSnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.TokenSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	for _, snap := range snaps {
		if snap == nil || snap.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_snapshots (
			mint, timestamp_ms, price, volume_24h, liquidity
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		err = batch.Append(
			snap.Mint, uint64(snap.TimestampMs),
			snap.Price, snap.Volume24h, snap.Liquidity,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetRange retrieves snapshots for a mint within [fromMs, toMs]
// (inclusive), ordered by timestamp ASC.
func (s *TokenSnapshotStore) GetRange(ctx context.Context, mint string, fromMs, toMs int64) ([]*domain.TokenSnapshot, error) {
	q := `
		SELECT mint, timestamp_ms, price, volume_24h, liquidity
		FROM token_snapshots
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, q, mint, uint64(fromMs), uint64(toMs))
	if err != nil {
		return nil, fmt.Errorf("query token snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenSnapshot
	for rows.Next() {
		var snap domain.TokenSnapshot
		var ts uint64
		if err := rows.Scan(&snap.Mint, &ts, &snap.Price, &snap.Volume24h, &snap.Liquidity); err != nil {
			return nil, fmt.Errorf("scan token snapshot: %w", err)
		}
		snap.TimestampMs = int64(ts)
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token snapshots: %w", err)
	}
	return result, nil
}
