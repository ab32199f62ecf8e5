package memory

import (
	"context"
	"sort"
	"sync"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// TokenSnapshotStore is an in-memory implementation of
// storage.TokenSnapshotStore.
type TokenSnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TokenSnapshot // keyed by mint
}

// NewTokenSnapshotStore creates a new in-memory token snapshot store.
func NewTokenSnapshotStore() *TokenSnapshotStore {
	return &TokenSnapshotStore{
		data: make(map[string][]*domain.TokenSnapshot),
	}
}

// Compile-time interface check.
var _ storage.TokenSnapshotStore = (*TokenSnapshotStore)(nil)

// InsertBulk adds multiple snapshots.
func (s *TokenSnapshotStore) InsertBulk(_ context.Context, snaps []*domain.TokenSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	for _, snap := range snaps {
		if snap == nil || snap.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		cp := *snap
		s.data[snap.Mint] = append(s.data[snap.Mint], &cp)
	}
	return nil
}

// GetRange retrieves snapshots for a mint within [fromMs, toMs]
// (inclusive), ordered by timestamp ASC.
func (s *TokenSnapshotStore) GetRange(_ context.Context, mint string, fromMs, toMs int64) ([]*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenSnapshot
	for _, snap := range s.data[mint] {
		if snap.TimestampMs >= fromMs && snap.TimestampMs <= toMs {
			cp := *snap
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}
