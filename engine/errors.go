package engine

import "errors"

// Protocol-category sentinel errors. Callers MUST use errors.Is to
// branch on semantics; sentinels are never wrapped with formatted
// strings at definition site — context is attached with %w at the
// call site instead.
var (
	ErrSchemaVersionMismatch     = errors.New("engine: schema version mismatch")
	ErrSequenceViolation         = errors.New("engine: sequence violation")
	ErrConstantsNotInitialized   = errors.New("engine: first event must be initialize_constants")
	ErrConstantsAlreadyInitialized = errors.New("engine: initialize_constants can only be the first event")
	ErrUnknownEventType          = errors.New("engine: unknown event type")
	ErrNotInitialized            = errors.New("engine: not initialised, call InitializeState first")
)

// TransitionError wraps a panic recovered from the kernel's pure
// transition layer (data and semantic violations per spec §7)
// as a normal Go error, so a malformed event fails the call instead
// of crashing the host process. The original panic value's message is
// preserved verbatim in Error().
type TransitionError struct {
	EventType string
	Sequence  uint64
	Cause     any
}

func (e *TransitionError) Error() string {
	return "engine: transition failed: " + errString(e.Cause)
}

func errString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}
