package domain

import "time"

// Signal represents a trade recommendation produced by the analysis process.
// Corresponds to the signals table. Signals are never deleted, only
// transitioned into a terminal status.
type Signal struct {
	ID        string // opaque record ID
	Mint      string // Solana mint address of the token
	Token     string // token symbol, for display and grouping
	Type      string // BUY | SELL
	Timeframe string // SCALP | INTRADAY | SWING | POSITION

	EntryPrice  float64
	TargetPrice float64
	StopLoss    float64
	Confidence  float64 // 0..1, from the analysis process

	Status      string // see Status* constants
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ActivatedAt *time.Time // set on PENDING -> ACTIVE

	// Closing fields, set together with the terminal status.
	ExitPrice    *float64
	ActualReturn *float64 // percent, net of fees
	Success      *bool    // ActualReturn > 0

	// Version increments on every update. Conditional updates key on it
	// so overlapping poll cycles cannot both close the same signal.
	Version int64
}

// Signal type constants
const (
	SignalTypeBuy  = "BUY"
	SignalTypeSell = "SELL"
)

// Signal status constants
const (
	StatusPending   = "PENDING"
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusStopped   = "STOPPED"
	StatusExpired   = "EXPIRED"
	StatusFailed    = "FAILED"
)

// Timeframe constants
const (
	TimeframeScalp    = "SCALP"
	TimeframeIntraday = "INTRADAY"
	TimeframeSwing    = "SWING"
	TimeframePosition = "POSITION"
)

// TimeframeDuration returns the fixed expiry duration for a timeframe class.
// Unknown timeframes fall back to the INTRADAY duration.
func TimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case TimeframeScalp:
		return 6 * time.Hour
	case TimeframeIntraday:
		return 24 * time.Hour
	case TimeframeSwing:
		return 7 * 24 * time.Hour
	case TimeframePosition:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusStopped, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// legalTransitions maps a status to the set of statuses it may move to.
var legalTransitions = map[string][]string{
	StatusPending: {StatusActive, StatusExpired, StatusFailed},
	StatusActive:  {StatusCompleted, StatusStopped, StatusExpired},
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to string) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Closed reports whether the signal reached a terminal status with a
// recorded outcome. EXPIRED and FAILED signals without an exit price are
// terminal but carry no outcome.
func (s *Signal) Closed() bool {
	return IsTerminal(s.Status) && s.ExitPrice != nil && s.ActualReturn != nil
}
