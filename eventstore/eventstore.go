// Package eventstore is the append-only binary event log: strict
// sequence ordering, length-prefixed canonical CBOR frames, fsync
// after every write. No mutation, no deletion, no reordering.
package eventstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/orgforge/orgkernel/codec"
	"github.com/orgforge/orgkernel/engine"
)

// maxFrameLen bounds a single frame to guard against a corrupted
// length prefix turning a read into an unbounded allocation.
const maxFrameLen = 16 * 1024 * 1024

var (
	// ErrSequenceViolation is returned by Append when the event's
	// sequence does not immediately follow the last appended one.
	ErrSequenceViolation = errors.New("eventstore: sequence violation")
	// ErrCorruption is returned by Open and LoadAll when a frame fails
	// its length or decode sanity check.
	ErrCorruption = errors.New("eventstore: corrupted frame")
	// ErrFrameLengthOutOfRange is a specialization of ErrCorruption:
	// the 4-byte prefix names a length of zero or beyond the frame cap.
	ErrFrameLengthOutOfRange = errors.New("eventstore: frame length out of range")
)

// Store is an append-only event log backed by a single file.
type Store struct {
	path         string
	lastSequence uint64
}

// Open opens or creates the log at path, scanning any existing
// content to recover the last sequence number.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("eventstore: create dir: %w", err)
		}
	}

	var lastSequence uint64
	if _, err := os.Stat(path); err == nil {
		events, err := readAllFromFile(path)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			lastSequence = events[len(events)-1].Sequence
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("eventstore: stat: %w", err)
	}

	return &Store{path: path, lastSequence: lastSequence}, nil
}

// LastSequence returns the sequence number of the most recently
// appended event, or 0 if the log is empty.
func (s *Store) LastSequence() uint64 {
	return s.lastSequence
}

// Append writes a single event to the log, enforcing strict
// sequence ordering, then fsyncs before returning.
func (s *Store) Append(env engine.EventEnvelope) error {
	expected := s.lastSequence + 1
	if env.Sequence != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceViolation, expected, env.Sequence)
	}

	buf, err := codec.Encode(env)
	if err != nil {
		return fmt.Errorf("eventstore: encode: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("eventstore: open: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(buf)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("eventstore: write length: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("eventstore: write frame: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("eventstore: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("eventstore: sync: %w", err)
	}

	s.lastSequence = env.Sequence
	return nil
}

// LoadAll reads every event in the log in sequence order.
func (s *Store) LoadAll() ([]engine.EventEnvelope, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}
	return readAllFromFile(s.path)
}

func readAllFromFile(path string) ([]engine.EventEnvelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var events []engine.EventEnvelope
	var lenBuf [4]byte

	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: reading length prefix: %v", ErrCorruption, err)
		}

		frameLen := binary.LittleEndian.Uint32(lenBuf[:])
		if frameLen == 0 || frameLen > maxFrameLen {
			return nil, fmt.Errorf("%w: %w: %d", ErrCorruption, ErrFrameLengthOutOfRange, frameLen)
		}

		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, fmt.Errorf("%w: truncated frame: %v", ErrCorruption, err)
		}

		env, err := codec.Decode(frame)
		if err != nil {
			return nil, fmt.Errorf("%w: decode: %v", ErrCorruption, err)
		}
		events = append(events, env)
	}

	return events, nil
}
