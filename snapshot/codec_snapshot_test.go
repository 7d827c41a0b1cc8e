package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCodecState() *domain.OrgState {
	s := domain.NewOrgState("", nil, nil)
	s.Roles["a"] = domain.Role{
		ID: "a", Name: "A", Purpose: "p",
		Responsibilities: []string{"lead"}, RequiredInputs: []string{}, ProducedOutputs: []string{},
		ScaleStage: "seed", Active: true,
	}
	s.EventHistory = []map[string]any{}
	return s
}

func TestCodecSnapshotRoundTrip(t *testing.T) {
	state := validCodecState()
	data, err := snapshot.EncodeCodecSnapshot(state)
	require.NoError(t, err)

	decoded, err := snapshot.DecodeCodecSnapshot(data)
	require.NoError(t, err)
	if diff := cmp.Diff(state.Roles, decoded.Roles); diff != "" {
		t.Errorf("roles round-trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, state.ScaleStage, decoded.ScaleStage)
}

func TestRestoreCodecSnapshotRejectsInvariantViolation(t *testing.T) {
	state := validCodecState()
	state.Dependencies = []domain.DependencyEdge{{FromRoleID: "a", ToRoleID: "ghost", DependencyType: "operational"}}
	data, err := snapshot.EncodeCodecSnapshot(state)
	require.NoError(t, err)

	_, err = snapshot.RestoreCodecSnapshot(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrInvariantViolation)
}

func TestDecodeCodecSnapshotRejectsUnknownField(t *testing.T) {
	bad := []byte(`{
		"roles": {}, "dependencies": [],
		"constraint_vector": {"capital":50000,"talent":50000,"time":50000,"political_cost":50000},
		"constants": {"differentiation_threshold":3,"differentiation_min_capacity":60000,"compression_max_combined_responsibilities":5,"shock_deactivation_threshold":8,"shock_debt_base_multiplier":1,"suppressed_differentiation_debt_increment":1},
		"scale_stage": "seed", "structural_debt": 0, "event_history": [],
		"unexpected_field": true
	}`)
	_, err := snapshot.DecodeCodecSnapshot(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrDeserializationError)
}

func TestDecodeCodecSnapshotRejectsMissingField(t *testing.T) {
	_, err := snapshot.DecodeCodecSnapshot([]byte(`{"roles":{}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrDeserializationError)
}

func TestCodecSnapshotFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	state := validCodecState()

	require.NoError(t, snapshot.ExportCodecSnapshotToFile(state, path))
	imported, err := snapshot.ImportCodecSnapshotFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, state.Roles, imported.Roles)
}

func TestImportCodecSnapshotFromFileRejectsCorruptedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{ not valid json !!!}"), 0o644))

	_, err := snapshot.ImportCodecSnapshotFromFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrDeserializationError)
}
