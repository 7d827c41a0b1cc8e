// Package engine is the top-level orchestrator: it wraps the pure
// kernel package with schema-version enforcement, strict sequence
// enforcement, and the constants-first gatekeeper rule, validating
// invariants after every transition before committing the result.
package engine

import (
	"fmt"

	"github.com/orgforge/orgkernel/canon"
	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/invariant"
	"github.com/orgforge/orgkernel/kernel"
	"github.com/orgforge/orgkernel/orglog"
)

// SchemaVersion is the locked wire schema version. Events carrying
// any other value are rejected before the transition runs.
const SchemaVersion = 1

// EventEnvelope is the engine-facing event: everything ApplyEvent
// needs to enforce protocol rules plus the kernel.Event it delegates
// to. Timestamp is optional and, per the kernel's event-history
// design, never affects canonical identity.
type EventEnvelope struct {
	EventType     string
	Sequence      uint64
	LogicalTime   uint64
	SchemaVersion uint32
	Timestamp     string
	Payload       map[string]any
}

// Engine is a stateful wrapper around the pure transition layer.
type Engine struct {
	state                *domain.OrgState
	lastSequence         uint64
	constantsInitialized bool
	logger               *orglog.Logger
}

// New returns a fresh, uninitialized engine. A nil logger is valid
// and disables logging.
func New(logger *orglog.Logger) *Engine {
	return &Engine{logger: logger}
}

// State returns the current state. Panics if InitializeState has not
// been called: using an uninitialized engine is a programmer error,
// not a recoverable runtime condition.
func (e *Engine) State() *domain.OrgState {
	if e.state == nil {
		panic(ErrNotInitialized.Error())
	}
	return e.state
}

// InitializeState resets the engine to a fresh initial OrgState and
// clears sequence/constants bookkeeping.
func (e *Engine) InitializeState() *domain.OrgState {
	e.state = domain.NewOrgState("", nil, nil)
	e.lastSequence = 0
	e.constantsInitialized = false
	return e.state
}

// ApplyEvent validates and applies a single event:
//  1. schema version must equal SchemaVersion
//  2. sequence must equal lastSequence+1
//  3. the first event must be initialize_constants, and only the first
//  4. delegate to kernel.ApplyEvent
//  5. validate invariants on the resulting state (hard, panicking check)
//  6. commit and return
//
// Any kernel-layer panic (malformed payload, unknown role, domain-rule
// violation) is recovered and returned as a *TransitionError rather
// than propagated, so a bad event fails this call without crashing
// the host; the panicking invariant check in step 5 is treated as
// fatal per spec and is allowed to propagate, since a violation there
// indicates a kernel bug or corrupted event stream, not a malformed
// single event.
func (e *Engine) ApplyEvent(env EventEnvelope) (state *domain.OrgState, result domain.TransitionResult, err error) {
	if env.SchemaVersion != SchemaVersion {
		err = fmt.Errorf("%w: expected %d, got %d", ErrSchemaVersionMismatch, SchemaVersion, env.SchemaVersion)
		e.logger.TransitionRejected(env.EventType, env.Sequence, err)
		return nil, domain.TransitionResult{}, err
	}

	expected := e.lastSequence + 1
	if env.Sequence != expected {
		err = fmt.Errorf("%w: expected %d, got %d", ErrSequenceViolation, expected, env.Sequence)
		e.logger.TransitionRejected(env.EventType, env.Sequence, err)
		return nil, domain.TransitionResult{}, err
	}

	if !e.constantsInitialized {
		if env.EventType != kernel.EventInitializeConstants {
			err = fmt.Errorf("%w: got %q", ErrConstantsNotInitialized, env.EventType)
			e.logger.TransitionRejected(env.EventType, env.Sequence, err)
			return nil, domain.TransitionResult{}, err
		}
	} else if env.EventType == kernel.EventInitializeConstants {
		err = ErrConstantsAlreadyInitialized
		e.logger.TransitionRejected(env.EventType, env.Sequence, err)
		return nil, domain.TransitionResult{}, err
	}

	if e.state == nil {
		err = ErrNotInitialized
		e.logger.TransitionRejected(env.EventType, env.Sequence, err)
		return nil, domain.TransitionResult{}, err
	}

	newState, result, err := e.applyKernelEvent(env)
	if err != nil {
		e.logger.TransitionRejected(env.EventType, env.Sequence, err)
		return nil, domain.TransitionResult{}, err
	}

	// Hard invariant check: a failure here is a kernel bug or
	// corrupted event stream and is allowed to panic.
	invariant.ValidateInvariants(newState)

	if !e.constantsInitialized {
		e.constantsInitialized = true
	}
	e.state = newState
	e.lastSequence = env.Sequence

	e.logger.TransitionApplied(env.EventType, env.Sequence, result.Reason)
	return e.state, result, nil
}

func (e *Engine) applyKernelEvent(env EventEnvelope) (newState *domain.OrgState, result domain.TransitionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TransitionError{EventType: env.EventType, Sequence: env.Sequence, Cause: r}
		}
	}()
	newState, result = kernel.ApplyEvent(e.state, kernel.Event{Type: env.EventType, Payload: env.Payload})
	return newState, result, nil
}

// ApplySequence applies an ordered list of events, stopping at the
// first error.
func (e *Engine) ApplySequence(events []EventEnvelope) (*domain.OrgState, error) {
	for _, ev := range events {
		if _, _, err := e.ApplyEvent(ev); err != nil {
			return nil, err
		}
	}
	return e.State(), nil
}

// Replay resets the engine and reapplies events in order, the
// canonical event-sourced reconstruction path.
func (e *Engine) Replay(events []EventEnvelope) (*domain.OrgState, error) {
	e.InitializeState()
	return e.ApplySequence(events)
}

// Hash returns the canonical SHA-256 hash of the current state.
func (e *Engine) Hash() string {
	return canon.Hash(e.State())
}
