package snapshot

import "errors"

// Sentinel errors for the codec-snapshot and runtime-snapshot paths.
// Callers branch on these with errors.Is; context is attached at the
// call site with %w.
var (
	ErrSerializationError   = errors.New("snapshot: serialization error")
	ErrDeserializationError = errors.New("snapshot: deserialization error")
	ErrInvariantViolation   = errors.New("snapshot: invariant violation")
	ErrIoError              = errors.New("snapshot: io error")
	ErrHashMismatch         = errors.New("snapshot: hash mismatch")
	ErrNotFound             = errors.New("snapshot: not found")
)
