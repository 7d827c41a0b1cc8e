package replay_test

import (
	"testing"

	"github.com/orgforge/orgkernel/engine"
	"github.com/orgforge/orgkernel/kernel"
	"github.com/orgforge/orgkernel/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []engine.EventEnvelope {
	return []engine.EventEnvelope{
		{EventType: kernel.EventInitializeConstants, Sequence: 1, SchemaVersion: engine.SchemaVersion},
		{
			EventType: kernel.EventAddRole, Sequence: 2, SchemaVersion: engine.SchemaVersion,
			Payload: map[string]any{"id": "a", "name": "A", "purpose": "p", "responsibilities": []any{"lead"}},
		},
	}
}

func TestRebuildProducesExpectedState(t *testing.T) {
	state, hash, err := replay.Rebuild(sampleEvents(), nil)
	require.NoError(t, err)
	assert.Len(t, state.Roles, 1)
	assert.NotEmpty(t, hash)
}

func TestRebuildStopsAtFirstRejectedEvent(t *testing.T) {
	events := sampleEvents()
	events = append(events, engine.EventEnvelope{
		EventType: kernel.EventRemoveRole, Sequence: 3, SchemaVersion: engine.SchemaVersion,
		Payload: map[string]any{"role_id": "does-not-exist"},
	})
	_, _, err := replay.Rebuild(events, nil)
	require.Error(t, err)
}

func TestVerifyDeterminismAgrees(t *testing.T) {
	require.NoError(t, replay.VerifyDeterminism(sampleEvents()))
}

func TestRebuildHashMatchesRebuildState(t *testing.T) {
	_, hash1, err := replay.Rebuild(sampleEvents(), nil)
	require.NoError(t, err)
	hash2, err := replay.RebuildHash(sampleEvents(), nil)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
}
