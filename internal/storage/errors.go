package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrStatusConflict is returned by conditional signal updates when
	// the stored status or version no longer matches the expectation.
	// A concurrent poll cycle won the race; the caller should move on.
	ErrStatusConflict = errors.New("status conflict: signal changed concurrently")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
