package codec_test

import (
	"testing"

	"github.com/orgforge/orgkernel/codec"
	"github.com/orgforge/orgkernel/engine"
	"github.com/orgforge/orgkernel/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAddRole(t *testing.T) {
	env := engine.EventEnvelope{
		EventType:     kernel.EventAddRole,
		Sequence:      5,
		LogicalTime:   9,
		SchemaVersion: engine.SchemaVersion,
		Payload: map[string]any{
			"id": "a", "name": "A", "purpose": "p",
			"responsibilities": []any{"r1", "r2"},
			"required_inputs":  []any{"x"},
			"produced_outputs": []any{"y"},
			"scale_stage":      "seed",
			"active":           true,
		},
	}

	data, err := codec.Encode(env)
	require.NoError(t, err)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, env.EventType, decoded.EventType)
	assert.Equal(t, env.Sequence, decoded.Sequence)
	assert.Equal(t, env.LogicalTime, decoded.LogicalTime)
	assert.Equal(t, "a", decoded.Payload["id"])
	assert.ElementsMatch(t, []any{"r1", "r2"}, decoded.Payload["responsibilities"])
}

func TestRoundTripInjectShock(t *testing.T) {
	env := engine.EventEnvelope{
		EventType:     kernel.EventInjectShock,
		Sequence:      1,
		SchemaVersion: engine.SchemaVersion,
		Payload: map[string]any{
			"target_role_id": "target",
			"magnitude":       int64(7),
		},
	}
	data, err := codec.Encode(env)
	require.NoError(t, err)

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "target", decoded.Payload["target_role_id"])
	assert.EqualValues(t, 7, decoded.Payload["magnitude"])
}

func TestEncodeIsCanonicalAndDeterministic(t *testing.T) {
	env := engine.EventEnvelope{
		EventType:     kernel.EventRemoveRole,
		Sequence:      2,
		SchemaVersion: engine.SchemaVersion,
		Payload:       map[string]any{"role_id": "a"},
	}
	first, err := codec.Encode(env)
	require.NoError(t, err)
	second, err := codec.Encode(env)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncodeUnknownEventType(t *testing.T) {
	_, err := codec.Encode(engine.EventEnvelope{EventType: "not_a_real_event"})
	require.Error(t, err)
}
