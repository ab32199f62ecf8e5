package domain

// TradeOutcome is the result of replaying a signal against a price series.
// It is derived fresh on every evaluation and never stored as its own
// entity; closing a signal flattens it back onto the Signal record.
type TradeOutcome struct {
	ExitPrice  float64
	ExitReason string // COMPLETED | STOPPED | EXPIRED
	ExitIndex  int    // index into the price series, -1 for an empty series

	TimeToExitMs int64 // exit timestamp minus first sample timestamp

	GrossReturnPct  float64 // raw price move, percent
	ActualReturnPct float64 // net of round-trip fees, percent
	Success         bool    // ActualReturnPct > 0
	FeeRate         float64 // per-side fee rate applied
}

// Exit reason codes
const (
	ExitReasonCompleted = "COMPLETED"
	ExitReasonStopped   = "STOPPED"
	ExitReasonExpired   = "EXPIRED"
)

// FeeRatePerSide is the fixed fee applied multiplicatively on each side of
// a round trip. Success is always decided on the fee-adjusted return.
const FeeRatePerSide = 0.03
