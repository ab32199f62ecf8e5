package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/query"
	"kinkong/internal/storage"
)

func testSignal(id string, status string) *domain.Signal {
	return &domain.Signal{
		ID:          id,
		Mint:        "mint-" + id,
		Token:       "TEST",
		Type:        domain.SignalTypeBuy,
		Timeframe:   domain.TimeframeIntraday,
		EntryPrice:  1.0,
		TargetPrice: 1.1,
		StopLoss:    0.9,
		Status:      status,
		CreatedAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestSignalStore_InsertAndGet(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := testSignal("sig-1", domain.StatusPending)
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sig-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Mint != sig.Mint || got.Status != domain.StatusPending {
		t.Errorf("unexpected signal: %+v", got)
	}

	// Mutating the returned copy must not affect the store.
	got.Status = domain.StatusActive
	again, _ := store.GetByID(ctx, "sig-1")
	if again.Status != domain.StatusPending {
		t.Error("store returned a shared reference")
	}
}

func TestSignalStore_InsertDuplicate(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSignal("sig-1", domain.StatusPending)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, testSignal("sig-1", domain.StatusPending))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSignalStore_GetMissing(t *testing.T) {
	store := NewSignalStore()
	_, err := store.GetByID(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSignalStore_SelectByPredicate(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	for _, sig := range []*domain.Signal{
		testSignal("sig-1", domain.StatusPending),
		testSignal("sig-2", domain.StatusActive),
		testSignal("sig-3", domain.StatusActive),
	} {
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	active, err := store.Select(ctx, query.StatusEq{Status: domain.StatusActive})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active signals, got %d", len(active))
	}
	if active[0].ID != "sig-2" || active[1].ID != "sig-3" {
		t.Errorf("expected deterministic order sig-2, sig-3; got %s, %s", active[0].ID, active[1].ID)
	}
}

func TestSignalStore_TransitionStatusConflict(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 1, 0, 0, 0, time.UTC)

	if err := store.Insert(ctx, testSignal("sig-1", domain.StatusPending)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.TransitionStatus(ctx, "sig-1", domain.StatusPending, domain.StatusActive, at); err != nil {
		t.Fatalf("TransitionStatus failed: %v", err)
	}

	// A second cycle that still believes the signal is PENDING loses.
	err := store.TransitionStatus(ctx, "sig-1", domain.StatusPending, domain.StatusFailed, at)
	if !errors.Is(err, storage.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}

	got, _ := store.GetByID(ctx, "sig-1")
	if got.Status != domain.StatusActive {
		t.Errorf("expected ACTIVE, got %s", got.Status)
	}
	if got.ActivatedAt == nil || !got.ActivatedAt.Equal(at) {
		t.Errorf("expected activation time %v, got %v", at, got.ActivatedAt)
	}
	if got.Version != 1 {
		t.Errorf("expected version 1 after one update, got %d", got.Version)
	}
}

func TestSignalStore_CloseWithOutcomeIsAtomic(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSignal("sig-1", domain.StatusActive)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.CloseWithOutcome(ctx, "sig-1", domain.StatusActive, domain.StatusCompleted, 1.12, 5.47, true); err != nil {
		t.Fatalf("CloseWithOutcome failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "sig-1")
	if !got.Closed() {
		t.Fatalf("signal should be closed with outcome: %+v", got)
	}
	if *got.ExitPrice != 1.12 || *got.ActualReturn != 5.47 || !*got.Success {
		t.Errorf("unexpected outcome fields: %+v", got)
	}

	// Closing again must conflict, not double-close.
	err := store.CloseWithOutcome(ctx, "sig-1", domain.StatusActive, domain.StatusStopped, 0.9, -15, false)
	if !errors.Is(err, storage.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
}
