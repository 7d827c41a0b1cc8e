// Package replay rebuilds OrgState from an ordered event list by
// driving a fresh engine through every event in sequence, and exposes
// a determinism check that two independent replays of the same list
// must agree on. It never caches or shortcuts kernel logic — every
// rebuild goes through the frozen transition kernel exactly once per
// event.
package replay

import (
	"errors"
	"fmt"

	"github.com/orgforge/orgkernel/canon"
	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/engine"
	"github.com/orgforge/orgkernel/orglog"
)

// ErrDeterminismFailure is returned by VerifyDeterminism when two
// replays of the same event list produce different canonical hashes —
// a kernel bug or a non-deterministic handler, never expected in a
// conforming implementation.
var ErrDeterminismFailure = errors.New("replay: determinism failure")

// Rebuild constructs a fresh engine, applies events in order, and
// returns the resulting state plus its canonical hash. It stops at the
// first event that the engine rejects.
func Rebuild(events []engine.EventEnvelope, logger *orglog.Logger) (*domain.OrgState, string, error) {
	e := engine.New(logger)
	e.InitializeState()

	if _, err := e.ApplySequence(events); err != nil {
		return nil, "", fmt.Errorf("replay: rebuild: %w", err)
	}

	state := e.State()
	return state, canon.Hash(state), nil
}

// RebuildHash is Rebuild without the caller needing the full state.
func RebuildHash(events []engine.EventEnvelope, logger *orglog.Logger) (string, error) {
	_, hash, err := Rebuild(events, logger)
	return hash, err
}

// VerifyDeterminism replays events twice, independently, and fails
// with ErrDeterminismFailure if the two canonical hashes disagree.
func VerifyDeterminism(events []engine.EventEnvelope) error {
	hash1, err := RebuildHash(events, nil)
	if err != nil {
		return fmt.Errorf("replay: first pass: %w", err)
	}
	hash2, err := RebuildHash(events, nil)
	if err != nil {
		return fmt.Errorf("replay: second pass: %w", err)
	}
	if hash1 != hash2 {
		return fmt.Errorf("%w: run 1=%s run 2=%s", ErrDeterminismFailure, hash1, hash2)
	}
	return nil
}
