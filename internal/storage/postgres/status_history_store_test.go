package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

func TestStatusHistoryStore_AppendAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStatusHistoryStore(pool)
	ctx := context.Background()

	base := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	activation := &domain.StatusTransition{
		TransitionID: "tr-1",
		SignalID:     "sig-1",
		FromStatus:   domain.StatusPending,
		ToStatus:     domain.StatusActive,
		Reason:       "entry price reached",
		OccurredAt:   base,
	}
	completion := &domain.StatusTransition{
		TransitionID: "tr-2",
		SignalID:     "sig-1",
		FromStatus:   domain.StatusActive,
		ToStatus:     domain.StatusCompleted,
		Reason:       "target reached at 1.12",
		OccurredAt:   base.Add(time.Hour),
	}

	// Append newest first to verify ordering is by occurred_at.
	require.NoError(t, store.Append(ctx, completion))
	require.NoError(t, store.Append(ctx, activation))

	history, err := store.GetBySignalID(ctx, "sig-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "tr-1", history[0].TransitionID)
	assert.Equal(t, domain.StatusActive, history[0].ToStatus)
	assert.Equal(t, "tr-2", history[1].TransitionID)
	assert.Equal(t, "target reached at 1.12", history[1].Reason)
}

func TestStatusHistoryStore_AppendDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStatusHistoryStore(pool)
	ctx := context.Background()

	tr := &domain.StatusTransition{
		TransitionID: "tr-dup",
		SignalID:     "sig-1",
		FromStatus:   domain.StatusPending,
		ToStatus:     domain.StatusActive,
		OccurredAt:   time.Now().UTC(),
	}

	require.NoError(t, store.Append(ctx, tr))

	err := store.Append(ctx, tr)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestStatusHistoryStore_GetBySignalIDEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStatusHistoryStore(pool)

	history, err := store.GetBySignalID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}
