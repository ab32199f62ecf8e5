package marketdata

import (
	"context"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// SnapshotSource serves prices from stored snapshots instead of live
// APIs. Useful for replaying past windows through the lifecycle and for
// offline runs against backfilled ClickHouse data.
type SnapshotSource struct {
	store storage.TokenSnapshotStore
}

// NewSnapshotSource creates a snapshot-backed price source.
func NewSnapshotSource(store storage.TokenSnapshotStore) *SnapshotSource {
	return &SnapshotSource{store: store}
}

var _ PriceSource = (*SnapshotSource)(nil)

// CurrentPrice returns the latest stored snapshot within the past day.
// ErrPriceUnavailable when no snapshot exists.
func (s *SnapshotSource) CurrentPrice(ctx context.Context, mint string) (*domain.TokenSnapshot, error) {
	to := time.Now().UnixMilli()
	from := to - (24 * time.Hour).Milliseconds()

	snaps, err := s.store.GetRange(ctx, mint, from, to)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrPriceUnavailable
	}
	// GetRange returns ascending order; the last snapshot is freshest.
	return snaps[len(snaps)-1], nil
}

// PriceHistory returns stored samples within [from, to], sorted by
// timestamp ascending. ErrPriceUnavailable when the range is empty.
func (s *SnapshotSource) PriceHistory(ctx context.Context, mint string, from, to time.Time) ([]domain.PricePoint, error) {
	snaps, err := s.store.GetRange(ctx, mint, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrPriceUnavailable
	}

	points := make([]domain.PricePoint, 0, len(snaps))
	for _, snap := range snaps {
		points = append(points, domain.PricePoint{
			TimestampMs: snap.TimestampMs,
			Price:       snap.Price,
		})
	}
	domain.SortPricePoints(points)
	return points, nil
}
