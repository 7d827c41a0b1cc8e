package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/invariant"
	"github.com/orgforge/orgkernel/schema"
)

// EncodeCodecSnapshot renders state as JSON using domain.OrgState's
// own struct tags — a complete, stand-alone rendering (including
// constants and event_history) intended for inter-system transport,
// distinct from the canon package's field-pruned identity form.
func EncodeCodecSnapshot(state *domain.OrgState) ([]byte, error) {
	// Marshal a normalized clone: nil slices must encode as [] rather
	// than null, or the schema gate would reject our own output on
	// re-import.
	s := state.Clone()
	if s.Dependencies == nil {
		s.Dependencies = []domain.DependencyEdge{}
	}
	if s.EventHistory == nil {
		s.EventHistory = []map[string]any{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationError, err)
	}
	return data, nil
}

// DecodeCodecSnapshot parses data into an OrgState with strict field
// enforcement: the payload is first checked against the fixed OrgState
// JSON Schema (for a field-addressable error), then decoded with
// DisallowUnknownFields so no stray key is silently ignored. No
// invariant validation is performed here — use RestoreCodecSnapshot
// for the validated entry point.
func DecodeCodecSnapshot(data []byte) (*domain.OrgState, error) {
	if err := schema.ValidateOrgState(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializationError, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var state domain.OrgState
	if err := dec.Decode(&state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializationError, err)
	}
	if state.EventHistory == nil {
		state.EventHistory = []map[string]any{}
	}
	return &state, nil
}

// RestoreCodecSnapshot decodes data and validates invariants with the
// soft (non-panicking) checker — the only entry point this package
// exposes for untrusted input, per spec: snapshot restore must never
// crash the host process.
func RestoreCodecSnapshot(data []byte) (*domain.OrgState, error) {
	state, err := DecodeCodecSnapshot(data)
	if err != nil {
		return nil, err
	}
	if v := invariant.TryValidateInvariants(state); v != nil {
		return nil, fmt.Errorf("%w: [INVARIANT:%s] %s", ErrInvariantViolation, v.Tag, v.Message)
	}
	return state, nil
}

// ExportCodecSnapshotToFile writes state's codec-snapshot encoding to
// path, creating parent directories as needed.
func ExportCodecSnapshotToFile(state *domain.OrgState, path string) error {
	data, err := EncodeCodecSnapshot(state)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir: %v", ErrIoError, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write: %v", ErrIoError, err)
	}
	return nil
}

// ImportCodecSnapshotFromFile reads path and restores an OrgState from
// it, validating invariants with the soft checker.
func ImportCodecSnapshotFromFile(path string) (*domain.OrgState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrIoError, err)
	}
	return RestoreCodecSnapshot(data)
}
