package session_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/orgforge/orgkernel/engine"
	"github.com/orgforge/orgkernel/kernel"
	"github.com/orgforge/orgkernel/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initEvent(seq uint64) engine.EventEnvelope {
	return engine.EventEnvelope{EventType: kernel.EventInitializeConstants, Sequence: seq, SchemaVersion: engine.SchemaVersion}
}

func addRoleEvent(seq uint64, id string) engine.EventEnvelope {
	return engine.EventEnvelope{
		EventType: kernel.EventAddRole, Sequence: seq, SchemaVersion: engine.SchemaVersion,
		Payload: map[string]any{"id": id, "name": id, "purpose": "p", "responsibilities": []any{"lead"}},
	}
}

func TestOpenCreatesFreshSession(t *testing.T) {
	dir := t.TempDir()
	s, err := session.Open(dir, "sess-1", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.ID())
	assert.EqualValues(t, 0, s.CurrentSequence())
}

func TestApplyEventPersistsAcceptedEvents(t *testing.T) {
	dir := t.TempDir()
	s, err := session.Open(dir, "sess-1", 0, nil)
	require.NoError(t, err)

	state, _, err := s.ApplyEvent(initEvent(1))
	require.NoError(t, err)
	assert.NotNil(t, state)

	state, _, err = s.ApplyEvent(addRoleEvent(2, "a"))
	require.NoError(t, err)
	assert.Len(t, state.Roles, 1)
	assert.EqualValues(t, 2, s.CurrentSequence())
}

func TestApplyEventRejectsAndLeavesLogUntouched(t *testing.T) {
	dir := t.TempDir()
	s, err := session.Open(dir, "sess-1", 0, nil)
	require.NoError(t, err)

	_, _, err = s.ApplyEvent(initEvent(1))
	require.NoError(t, err)

	_, _, err = s.ApplyEvent(engine.EventEnvelope{
		EventType: kernel.EventRemoveRole, Sequence: 2, SchemaVersion: engine.SchemaVersion,
		Payload: map[string]any{"role_id": "does-not-exist"},
	})
	require.Error(t, err)
	assert.EqualValues(t, 1, s.CurrentSequence())

	reopened, err := session.Open(dir, "sess-1", 0, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, reopened.CurrentSequence())
}

func TestOpenResumesFromExistingLog(t *testing.T) {
	dir := t.TempDir()
	s, err := session.Open(dir, "sess-1", 0, nil)
	require.NoError(t, err)
	_, err = s.ApplySequence([]engine.EventEnvelope{initEvent(1), addRoleEvent(2, "a")})
	require.NoError(t, err)

	resumed, err := session.Open(dir, "sess-1", 0, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, resumed.CurrentSequence())
	assert.Equal(t, s.CurrentHash(), resumed.CurrentHash())
	if diff := cmp.Diff(s.State().Roles, resumed.State().Roles); diff != "" {
		t.Errorf("resumed roles diverge from pre-restart state (-want +got):\n%s", diff)
	}
}

func TestApplySequenceStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := session.Open(dir, "sess-1", 0, nil)
	require.NoError(t, err)

	events := []engine.EventEnvelope{
		initEvent(1),
		addRoleEvent(2, "a"),
		{EventType: kernel.EventAddRole, Sequence: 3, SchemaVersion: engine.SchemaVersion,
			Payload: map[string]any{"id": "a", "name": "dup", "purpose": "p", "responsibilities": []any{"lead"}}},
	}
	_, err = s.ApplySequence(events)
	require.Error(t, err)
	assert.EqualValues(t, 2, s.CurrentSequence())
}

func TestSnapshotIntervalWritesSnapshotOnBoundary(t *testing.T) {
	dir := t.TempDir()
	s, err := session.Open(dir, "sess-1", 2, nil)
	require.NoError(t, err)

	_, _, err = s.ApplyEvent(initEvent(1))
	require.NoError(t, err)
	_, _, err = s.ApplyEvent(addRoleEvent(2, "a"))
	require.NoError(t, err)

	snapshotsDir := filepath.Join(dir, "sess-1", "snapshots")
	assert.NoFileExists(t, filepath.Join(snapshotsDir, "snapshot_000001.json"))
	assert.FileExists(t, filepath.Join(snapshotsDir, "snapshot_000002.json"))

	path, err := s.SnapshotNow()
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestReplayFullMatchesIncrementalState(t *testing.T) {
	dir := t.TempDir()
	s, err := session.Open(dir, "sess-1", 0, nil)
	require.NoError(t, err)
	_, err = s.ApplySequence([]engine.EventEnvelope{initEvent(1), addRoleEvent(2, "a"), addRoleEvent(3, "b")})
	require.NoError(t, err)

	incrementalHash := s.CurrentHash()
	rebuilt, hash, err := s.ReplayFull()
	require.NoError(t, err)
	assert.Equal(t, incrementalHash, hash)
	assert.Len(t, rebuilt.Roles, 2)
}
