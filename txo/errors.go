package txo

import (
	"errors"
	"fmt"
)

// ErrConcurrencyConflict signals that a save used a stale aggregate version.
// Callers should reload the aggregate and reapply the change; the conflict
// is never retried automatically.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ConflictError reports the aggregate and version involved in an optimistic
// locking conflict. It matches ErrConcurrencyConflict with errors.Is.
type ConflictError struct {
	AggregateId string
	Version     int64 // the stale version the save was attempted with
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("aggregate '%s' was modified concurrently (stale version %d)", e.AggregateId, e.Version)
}

func (e *ConflictError) Unwrap() error {
	return ErrConcurrencyConflict
}
