package domain

import "time"

// StatusTransition is one entry of the append-only status-history log.
// Corresponds to the signal_status_history table.
type StatusTransition struct {
	TransitionID string // deterministic hash
	SignalID     string
	FromStatus   string
	ToStatus     string
	Reason       string // free-form context, e.g. "target reached at 1.12"
	OccurredAt   time.Time
}
