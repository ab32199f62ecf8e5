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

func testEvent(eventID, signalID string, createdAt time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		EventID:   eventID,
		SignalID:  signalID,
		Kind:      domain.OutboxKindStatusChange,
		Payload:   []byte(`{"signalId":"` + signalID + `","fromStatus":"PENDING","toStatus":"ACTIVE"}`),
		CreatedAt: createdAt,
	}
}

func TestOutboxStore_EnqueueAndPickPending(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutboxStore(pool)
	ctx := context.Background()

	base := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	// Enqueue out of chronological order.
	second := testEvent("ev-b", "sig-1", base.Add(time.Minute))
	first := testEvent("ev-a", "sig-1", base)
	require.NoError(t, store.Enqueue(ctx, second))
	require.NoError(t, store.Enqueue(ctx, first))

	pending, err := store.PickPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "ev-a", pending[0].EventID)
	assert.Equal(t, "ev-b", pending[1].EventID)
	assert.Equal(t, 0, pending[0].Attempts)
	assert.Nil(t, pending[0].DeliveredAt)
	assert.JSONEq(t, string(first.Payload), string(pending[0].Payload))
}

func TestOutboxStore_EnqueueDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutboxStore(pool)
	ctx := context.Background()

	ev := testEvent("ev-dup", "sig-1", time.Now().UTC())

	require.NoError(t, store.Enqueue(ctx, ev))

	// Redelivery of the same state change is a no-op at the store level.
	err := store.Enqueue(ctx, ev)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestOutboxStore_PickPendingLimit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutboxStore(pool)
	ctx := context.Background()

	base := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"ev-1", "ev-2", "ev-3"} {
		require.NoError(t, store.Enqueue(ctx, testEvent(id, "sig-1", base.Add(time.Duration(i)*time.Second))))
	}

	pending, err := store.PickPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "ev-1", pending[0].EventID)
	assert.Equal(t, "ev-2", pending[1].EventID)
}

func TestOutboxStore_MarkDelivered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutboxStore(pool)
	ctx := context.Background()

	ev := testEvent("ev-done", "sig-1", time.Now().UTC())
	require.NoError(t, store.Enqueue(ctx, ev))

	err := store.MarkDelivered(ctx, ev.EventID, time.Now().UTC())
	require.NoError(t, err)

	pending, err := store.PickPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = store.MarkDelivered(ctx, "missing", time.Now().UTC())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOutboxStore_RecordAttempt(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOutboxStore(pool)
	ctx := context.Background()

	ev := testEvent("ev-retry", "sig-1", time.Now().UTC())
	require.NoError(t, store.Enqueue(ctx, ev))

	require.NoError(t, store.RecordAttempt(ctx, ev.EventID))
	require.NoError(t, store.RecordAttempt(ctx, ev.EventID))

	pending, err := store.PickPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)

	err = store.RecordAttempt(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
