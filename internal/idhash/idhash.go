// Package idhash computes deterministic record identifiers. Hashing the
// natural key means retried writes collide on ErrDuplicateKey instead of
// producing duplicate rows.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TransitionID computes a deterministic status-transition ID.
// Formula: SHA256(signal_id|from|to|occurred_at_ms), hex-encoded.
func TransitionID(signalID, from, to string, occurredAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", signalID, from, to, occurredAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// EventID computes a deterministic outbox event ID.
// Formula: SHA256(signal_id|kind|dedupe), hex-encoded. The dedupe key is
// chosen by the producer so a retried enqueue maps to the same event.
func EventID(signalID, kind, dedupe string) string {
	data := fmt.Sprintf("%s|%s|%s", signalID, kind, dedupe)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
