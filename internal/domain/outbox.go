package domain

import "time"

// OutboxEvent is a pending side effect recorded in the same store as the
// state change that produced it. The dispatcher delivers events at least
// once; consumers deduplicate on EventID.
type OutboxEvent struct {
	EventID   string // deterministic hash of (signal_id, kind, dedupe key)
	SignalID  string
	Kind      string // STATUS_CHANGE | EXECUTION
	Payload   []byte // JSON
	CreatedAt time.Time

	Attempts    int
	DeliveredAt *time.Time // nil while pending
}

// Outbox event kinds
const (
	OutboxKindStatusChange = "STATUS_CHANGE"
	OutboxKindExecution    = "EXECUTION"
)

// StatusChangePayload is the JSON body of a STATUS_CHANGE outbox event.
type StatusChangePayload struct {
	SignalID     string   `json:"signalId"`
	Token        string   `json:"token"`
	Mint         string   `json:"mint"`
	FromStatus   string   `json:"fromStatus"`
	ToStatus     string   `json:"toStatus"`
	Reason       string   `json:"reason,omitempty"`
	ExitPrice    *float64 `json:"exitPrice,omitempty"`
	ActualReturn *float64 `json:"actualReturn,omitempty"`
}
