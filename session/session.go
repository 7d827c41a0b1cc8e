// Package session is the isolated, persistent workspace that wraps
// the engine with apply-then-persist ordering: an event is only
// written to the log (and only ever snapshotted) after the kernel has
// accepted it. Each session owns a directory under a base path and
// serializes all access behind a single mutex.
package session

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/orgforge/orgkernel/domain"
	"github.com/orgforge/orgkernel/engine"
	"github.com/orgforge/orgkernel/eventstore"
	"github.com/orgforge/orgkernel/orglog"
	"github.com/orgforge/orgkernel/snapshot"
)

// Session is an isolated event-sourced workspace bound to
// <baseDir>/<id>/. Every exported method is safe for concurrent use:
// the whole apply-then-persist operation runs under one mutex.
type Session struct {
	mu sync.Mutex

	id               string
	dir              string
	snapshotsDir     string
	engine           *engine.Engine
	store            *eventstore.Store
	snapshotInterval uint64
	logger           *orglog.Logger
}

// Open constructs or resumes a session at <baseDir>/<id>/. If the
// session's event log already has events, they are replayed through a
// fresh engine before the session becomes usable. snapshotInterval of
// 0 disables automatic snapshotting.
func Open(baseDir, id string, snapshotInterval uint64, logger *orglog.Logger) (*Session, error) {
	dir := filepath.Join(baseDir, id)
	eventsPath := filepath.Join(dir, "events.log")
	snapshotsDir := filepath.Join(dir, "snapshots")

	store, err := eventstore.Open(eventsPath)
	if err != nil {
		return nil, fmt.Errorf("session: open event store: %w", err)
	}

	e := engine.New(logger)
	e.InitializeState()

	if store.LastSequence() > 0 {
		events, err := store.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("session: replay on open: %w", err)
		}
		if _, err := e.ApplySequence(events); err != nil {
			return nil, fmt.Errorf("session: replay on open: %w", err)
		}
	}

	return &Session{
		id:               id,
		dir:              dir,
		snapshotsDir:     snapshotsDir,
		engine:           e,
		store:            store,
		snapshotInterval: snapshotInterval,
		logger:           logger,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Dir returns the session's base directory.
func (s *Session) Dir() string { return s.dir }

// ApplyEvent applies env under lock: engine validation first, then
// durable append, then an optional snapshot. If the engine rejects
// the event, neither the log nor a snapshot is touched.
func (s *Session) ApplyEvent(env engine.EventEnvelope) (*domain.OrgState, domain.TransitionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, result, err := s.engine.ApplyEvent(env)
	if err != nil {
		return nil, domain.TransitionResult{}, fmt.Errorf("session: apply rejected: %w", err)
	}

	if err := s.store.Append(env); err != nil {
		return nil, domain.TransitionResult{}, fmt.Errorf("session: log append failed (session unusable): %w", err)
	}

	if s.snapshotInterval > 0 && env.Sequence%s.snapshotInterval == 0 {
		if _, err := snapshot.SaveRuntime(s.snapshotsDir, env.Sequence, state); err != nil {
			return nil, domain.TransitionResult{}, fmt.Errorf("session: snapshot failed: %w", err)
		}
		s.logger.SnapshotWritten(env.Sequence, s.engine.Hash())
	}

	return state, result, nil
}

// ApplySequence applies a batch of events in order, stopping at the
// first failure. Each event is its own apply-then-persist critical
// section, so a mid-batch failure leaves every prior event durably
// committed.
func (s *Session) ApplySequence(envs []engine.EventEnvelope) (*domain.OrgState, error) {
	var last *domain.OrgState
	for _, env := range envs {
		state, _, err := s.ApplyEvent(env)
		if err != nil {
			return nil, err
		}
		last = state
	}
	return last, nil
}

// State returns the session's current in-memory state.
func (s *Session) State() *domain.OrgState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State()
}

// CurrentHash returns the canonical hash of the session's current state.
func (s *Session) CurrentHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Hash()
}

// CurrentSequence returns the session's last applied sequence number.
func (s *Session) CurrentSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LastSequence()
}

// ReplayFull discards the in-memory engine state and rebuilds it from
// the on-disk log from scratch, returning the rebuilt state and its
// canonical hash. Used to recover from a suspected in-memory/log
// divergence without restarting the process.
func (s *Session) ReplayFull() (*domain.OrgState, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.store.LoadAll()
	if err != nil {
		return nil, "", fmt.Errorf("session: replay full: load: %w", err)
	}

	e := engine.New(s.logger)
	if _, err := e.Replay(events); err != nil {
		return nil, "", fmt.Errorf("session: replay full: %w", err)
	}
	s.engine = e

	return e.State(), e.Hash(), nil
}

// SnapshotNow forces a runtime snapshot of the current state at the
// session's current sequence, regardless of the snapshot interval.
func (s *Session) SnapshotNow() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, err := snapshot.SaveRuntime(s.snapshotsDir, s.store.LastSequence(), s.engine.State())
	if err != nil {
		return "", fmt.Errorf("session: snapshot now: %w", err)
	}
	s.logger.SnapshotWritten(s.store.LastSequence(), s.engine.Hash())
	return path, nil
}
