package simulator

import (
	"math"
	"testing"

	"kinkong/internal/domain"
)

// Helper to build a price series with a fixed interval.
func makeSeries(prices []float64, startMs, intervalMs int64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.PricePoint{
			TimestampMs: startMs + int64(i)*intervalMs,
			Price:       p,
		}
	}
	return out
}

func buySignal(entry, target, stop float64) *domain.Signal {
	return &domain.Signal{
		ID:          "sig-1",
		Mint:        "So11111111111111111111111111111111111111112",
		Token:       "TEST",
		Type:        domain.SignalTypeBuy,
		Timeframe:   domain.TimeframeIntraday,
		EntryPrice:  entry,
		TargetPrice: target,
		StopLoss:    stop,
	}
}

func TestSimulate_BuyTargetOnFirstSample(t *testing.T) {
	sig := buySignal(1.00, 1.10, 0.90)
	prices := makeSeries([]float64{1.15, 1.20, 1.05}, 1000000, 30000)

	out, err := Simulate(sig, prices)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if out.ExitReason != domain.ExitReasonCompleted {
		t.Errorf("expected COMPLETED, got %s", out.ExitReason)
	}
	if out.ExitIndex != 0 {
		t.Errorf("expected exit at index 0, got %d", out.ExitIndex)
	}
	if out.TimeToExitMs != 0 {
		t.Errorf("expected zero time to exit, got %d", out.TimeToExitMs)
	}
}

func TestSimulate_BuyNeverCrossesExpiresAtLastSample(t *testing.T) {
	sig := buySignal(1.00, 1.10, 0.90)
	prices := makeSeries([]float64{1.00, 1.02, 0.98, 1.05}, 1000000, 30000)

	out, err := Simulate(sig, prices)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if out.ExitReason != domain.ExitReasonExpired {
		t.Errorf("expected EXPIRED, got %s", out.ExitReason)
	}
	if out.ExitPrice != 1.05 {
		t.Errorf("expected exit at last sample 1.05, got %v", out.ExitPrice)
	}
	if out.ExitIndex != 3 {
		t.Errorf("expected exit index 3, got %d", out.ExitIndex)
	}
	if out.TimeToExitMs != 90000 {
		t.Errorf("expected 90000ms to exit, got %d", out.TimeToExitMs)
	}
}

func TestSimulate_BuyStopBeforeTargetByIndex(t *testing.T) {
	sig := buySignal(1.00, 1.10, 0.90)
	prices := makeSeries([]float64{0.95, 0.88, 1.15}, 1000000, 30000)

	out, err := Simulate(sig, prices)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if out.ExitReason != domain.ExitReasonStopped {
		t.Errorf("expected STOPPED, got %s", out.ExitReason)
	}
	if out.ExitIndex != 1 {
		t.Errorf("expected exit index 1, got %d", out.ExitIndex)
	}
	if out.Success {
		t.Error("stopped buy must not be a success")
	}
}

func TestSimulate_SellReversedComparisons(t *testing.T) {
	sig := buySignal(1.00, 0.90, 1.10)
	sig.Type = domain.SignalTypeSell
	prices := makeSeries([]float64{0.98, 0.95, 0.89}, 1000000, 30000)

	out, err := Simulate(sig, prices)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if out.ExitReason != domain.ExitReasonCompleted {
		t.Errorf("expected COMPLETED, got %s", out.ExitReason)
	}
	if out.ExitIndex != 2 {
		t.Errorf("expected exit index 2, got %d", out.ExitIndex)
	}
	if !out.Success {
		t.Errorf("sell from 1.00 to 0.89 should clear fees, got return %.4f", out.ActualReturnPct)
	}
}

func TestSimulate_EmptySeriesExitsAtEntry(t *testing.T) {
	sig := buySignal(1.00, 1.10, 0.90)

	out, err := Simulate(sig, nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if out.ExitReason != domain.ExitReasonExpired {
		t.Errorf("expected EXPIRED, got %s", out.ExitReason)
	}
	if out.ExitPrice != sig.EntryPrice {
		t.Errorf("expected exit at entry price, got %v", out.ExitPrice)
	}
	if out.TimeToExitMs != 0 {
		t.Errorf("expected zero time to exit, got %d", out.TimeToExitMs)
	}
	if out.ExitIndex != -1 {
		t.Errorf("expected exit index -1, got %d", out.ExitIndex)
	}
}

func TestSimulate_FeeAdjustedSuccess(t *testing.T) {
	// A raw winner that loses after fees: entry=100 exit=102 gives
	// 102*0.97 = 98.94 against 100*1.03 = 103.
	sig := buySignal(100, 102, 90)
	prices := makeSeries([]float64{102}, 1000000, 30000)

	out, err := Simulate(sig, prices)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if out.ExitReason != domain.ExitReasonCompleted {
		t.Errorf("expected COMPLETED, got %s", out.ExitReason)
	}
	if out.GrossReturnPct <= 0 {
		t.Errorf("raw return should be positive, got %.4f", out.GrossReturnPct)
	}
	if out.Success {
		t.Error("fee-adjusted return is negative, success must be false")
	}
	want := (102*0.97 - 100*1.03) / (100 * 1.03) * 100
	if math.Abs(out.ActualReturnPct-want) > 1e-9 {
		t.Errorf("expected net return %.6f, got %.6f", want, out.ActualReturnPct)
	}
}

func TestSimulate_ExampleScenario(t *testing.T) {
	sig := buySignal(1.00, 1.10, 0.90)
	prices := makeSeries([]float64{0.95, 1.05, 1.12, 1.08}, 1000000, 30000)

	out, err := Simulate(sig, prices)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if out.ExitReason != domain.ExitReasonCompleted {
		t.Errorf("expected COMPLETED, got %s", out.ExitReason)
	}
	if out.ExitIndex != 2 {
		t.Errorf("expected exit index 2, got %d", out.ExitIndex)
	}
	if out.ExitPrice != 1.12 {
		t.Errorf("expected exit price 1.12, got %v", out.ExitPrice)
	}
	want := (1.12*0.97 - 1.00*1.03) / (1.00 * 1.03) * 100 // ~5.48%
	if math.Abs(out.ActualReturnPct-want) > 1e-9 {
		t.Errorf("expected net return %.6f, got %.6f", want, out.ActualReturnPct)
	}
	if !out.Success {
		t.Error("expected success=true")
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	sig := buySignal(1.00, 1.10, 0.90)
	prices := makeSeries([]float64{0.95, 1.05, 1.12, 1.08}, 1000000, 30000)

	first, err := Simulate(sig, prices)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := Simulate(sig, prices)
		if err != nil {
			t.Fatalf("run %d: Simulate failed: %v", run, err)
		}
		if again != first {
			t.Fatalf("run %d: outcome differs: %+v vs %+v", run, again, first)
		}
	}
}

func TestSimulate_ZeroEntryGuard(t *testing.T) {
	sig := buySignal(0, 1.10, -1)
	prices := makeSeries([]float64{1.12}, 1000000, 30000)

	out, err := Simulate(sig, prices)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if out.ActualReturnPct != 0 {
		t.Errorf("zero entry must yield zero return, got %.4f", out.ActualReturnPct)
	}
	if out.GrossReturnPct != 0 {
		t.Errorf("zero entry must yield zero gross return, got %.4f", out.GrossReturnPct)
	}
}

func TestSimulate_UnknownTypeRejected(t *testing.T) {
	sig := buySignal(1.00, 1.10, 0.90)
	sig.Type = "HOLD"

	if _, err := Simulate(sig, nil); err == nil {
		t.Fatal("expected error for unknown signal type")
	}
}
