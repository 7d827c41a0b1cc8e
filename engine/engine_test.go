package engine_test

import (
	"errors"
	"testing"

	"github.com/orgforge/orgkernel/engine"
	"github.com/orgforge/orgkernel/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initEnv(seq uint64) engine.EventEnvelope {
	return engine.EventEnvelope{
		EventType:     kernel.EventInitializeConstants,
		Sequence:      seq,
		SchemaVersion: engine.SchemaVersion,
	}
}

func TestSchemaVersionMismatchRejected(t *testing.T) {
	e := engine.New(nil)
	e.InitializeState()
	_, _, err := e.ApplyEvent(engine.EventEnvelope{
		EventType:     kernel.EventInitializeConstants,
		Sequence:      1,
		SchemaVersion: 99,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrSchemaVersionMismatch))
}

func TestSequenceViolationRejected(t *testing.T) {
	e := engine.New(nil)
	e.InitializeState()
	_, _, err := e.ApplyEvent(engine.EventEnvelope{
		EventType:     kernel.EventInitializeConstants,
		Sequence:      2,
		SchemaVersion: engine.SchemaVersion,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrSequenceViolation))
}

func TestConstantsMustBeFirst(t *testing.T) {
	e := engine.New(nil)
	e.InitializeState()
	_, _, err := e.ApplyEvent(engine.EventEnvelope{
		EventType:     kernel.EventAddRole,
		Sequence:      1,
		SchemaVersion: engine.SchemaVersion,
		Payload:       map[string]any{"id": "a", "name": "A", "purpose": "p"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrConstantsNotInitialized))
}

func TestConstantsCannotRepeat(t *testing.T) {
	e := engine.New(nil)
	e.InitializeState()
	_, _, err := e.ApplyEvent(initEnv(1))
	require.NoError(t, err)

	_, _, err = e.ApplyEvent(initEnv(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrConstantsAlreadyInitialized))
}

func TestApplySequenceSuccess(t *testing.T) {
	e := engine.New(nil)
	e.InitializeState()
	events := []engine.EventEnvelope{
		initEnv(1),
		{
			EventType: kernel.EventAddRole, Sequence: 2, SchemaVersion: engine.SchemaVersion,
			Payload: map[string]any{
				"id": "a", "name": "A", "purpose": "p",
				"responsibilities": []any{"r"},
			},
		},
	}
	state, err := e.ApplySequence(events)
	require.NoError(t, err)
	assert.Contains(t, state.Roles, "a")
}

func TestMalformedEventReturnsTransitionError(t *testing.T) {
	e := engine.New(nil)
	e.InitializeState()
	_, _, err := e.ApplyEvent(initEnv(1))
	require.NoError(t, err)

	_, _, err = e.ApplyEvent(engine.EventEnvelope{
		EventType: kernel.EventAddRole, Sequence: 2, SchemaVersion: engine.SchemaVersion,
		Payload: map[string]any{"name": "A"},
	})
	require.Error(t, err)
	var transitionErr *engine.TransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestReplayIsDeterministic(t *testing.T) {
	events := []engine.EventEnvelope{
		initEnv(1),
		{
			EventType: kernel.EventAddRole, Sequence: 2, SchemaVersion: engine.SchemaVersion,
			Payload: map[string]any{
				"id": "a", "name": "A", "purpose": "p",
				"responsibilities": []any{"r"},
			},
		},
	}

	e1 := engine.New(nil)
	state1, err := e1.Replay(events)
	require.NoError(t, err)

	e2 := engine.New(nil)
	state2, err := e2.Replay(events)
	require.NoError(t, err)

	assert.Equal(t, e1.Hash(), e2.Hash())
	assert.Equal(t, state1.StructuralDebt, state2.StructuralDebt)
}
