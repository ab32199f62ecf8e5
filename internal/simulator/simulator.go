// Package simulator replays a signal against an ordered price series and
// determines the exit that the market would have produced.
package simulator

import (
	"fmt"

	"kinkong/internal/domain"
)

// Simulate scans the price series in order and returns the trade outcome
// for the signal. The series must cover signal creation to expiry and be
// sorted by timestamp ascending.
//
// For a BUY signal the first sample at or beyond the target closes the
// trade as COMPLETED, the first sample at or below the stop closes it as
// STOPPED; whichever occurs first by index wins. SELL uses the reversed
// comparisons. If no threshold is crossed the trade expires at the last
// sample. Identical inputs always produce identical outcomes.
func Simulate(sig *domain.Signal, prices []domain.PricePoint) (domain.TradeOutcome, error) {
	switch sig.Type {
	case domain.SignalTypeBuy, domain.SignalTypeSell:
	default:
		return domain.TradeOutcome{}, fmt.Errorf("unknown signal type %q", sig.Type)
	}

	// Empty series: nothing to replay, exit flat at the entry price.
	if len(prices) == 0 {
		return outcome(sig, sig.EntryPrice, domain.ExitReasonExpired, -1, 0), nil
	}

	startMs := prices[0].TimestampMs

	for i, p := range prices {
		reason := exitReasonAt(sig, p.Price)
		if reason == "" {
			continue
		}
		return outcome(sig, p.Price, reason, i, p.TimestampMs-startMs), nil
	}

	last := len(prices) - 1
	return outcome(sig, prices[last].Price, domain.ExitReasonExpired, last, prices[last].TimestampMs-startMs), nil
}

// exitReasonAt returns the exit reason triggered by a single price sample,
// or "" when no threshold is crossed.
func exitReasonAt(sig *domain.Signal, price float64) string {
	if sig.Type == domain.SignalTypeBuy {
		if price >= sig.TargetPrice {
			return domain.ExitReasonCompleted
		}
		if price <= sig.StopLoss {
			return domain.ExitReasonStopped
		}
		return ""
	}
	if price <= sig.TargetPrice {
		return domain.ExitReasonCompleted
	}
	if price >= sig.StopLoss {
		return domain.ExitReasonStopped
	}
	return ""
}

// outcome assembles the full TradeOutcome for an exit decision.
func outcome(sig *domain.Signal, exitPrice float64, reason string, exitIndex int, timeToExitMs int64) domain.TradeOutcome {
	net := NetReturnPct(sig.Type, sig.EntryPrice, exitPrice)
	return domain.TradeOutcome{
		ExitPrice:       exitPrice,
		ExitReason:      reason,
		ExitIndex:       exitIndex,
		TimeToExitMs:    timeToExitMs,
		GrossReturnPct:  grossReturnPct(sig.Type, sig.EntryPrice, exitPrice),
		ActualReturnPct: net,
		Success:         net > 0,
		FeeRate:         domain.FeeRatePerSide,
	}
}

// NetReturnPct computes the percentage return net of the fixed round-trip
// fee. Fees are applied multiplicatively on each side, so a raw winner can
// still be a net loser; success must always be judged on this value.
//
// BUY:  buy at entry*(1+fee), sell at exit*(1-fee).
// SELL: sell at entry*(1-fee), buy back at exit*(1+fee).
func NetReturnPct(signalType string, entry, exit float64) float64 {
	fee := domain.FeeRatePerSide
	if signalType == domain.SignalTypeSell {
		proceeds := entry * (1 - fee)
		cost := exit * (1 + fee)
		if proceeds == 0 {
			return 0
		}
		return (proceeds - cost) / proceeds * 100
	}
	cost := entry * (1 + fee)
	proceeds := exit * (1 - fee)
	if cost == 0 {
		return 0
	}
	return (proceeds - cost) / cost * 100
}

// grossReturnPct is the raw price move in the direction of the signal,
// with no fee adjustment. Reported for diagnostics only.
func grossReturnPct(signalType string, entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	pct := (exit - entry) / entry * 100
	if signalType == domain.SignalTypeSell {
		return -pct
	}
	return pct
}
