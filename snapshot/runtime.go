// Package snapshot implements the two on-disk snapshot artifacts: the
// runtime snapshot (canonical JSON + hash, for fast recovery without a
// full replay) and the codec snapshot (a strict, transport-oriented
// encoding of the full OrgState, for inter-system handoff). One is
// the fast-path identity artifact, the other is the untrusted-input
// decode boundary.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/orgforge/orgkernel/canon"
	"github.com/orgforge/orgkernel/domain"
)

// RuntimeSnapshot is the on-disk shape of a runtime snapshot:
// sequence, the exact canonical JSON bytes from the canon package (as
// a string), its SHA-256 hash, and the kernel version at save time.
type RuntimeSnapshot struct {
	Sequence       uint64 `json:"sequence"`
	CanonicalJSON  string `json:"canonical_json"`
	Hash           string `json:"hash"`
	KernelVersion  int    `json:"kernel_version"`
}

// filename returns the six-digit zero-padded snapshot filename for
// sequence, so lexicographic directory listing equals sequence order.
func filename(sequence uint64) string {
	return fmt.Sprintf("snapshot_%06d.json", sequence)
}

// SaveRuntime writes a runtime snapshot of state at sequence into dir,
// atomically: the content is written to a temp file in the same
// directory, fsynced, then renamed into place.
func SaveRuntime(dir string, sequence uint64, state *domain.OrgState) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir: %v", ErrIoError, err)
	}

	snap := RuntimeSnapshot{
		Sequence:      sequence,
		CanonicalJSON: string(canon.Serialize(state)),
		Hash:          canon.Hash(state),
		KernelVersion: domain.KernelVersion,
	}

	content, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerializationError, err)
	}

	path := filepath.Join(dir, filename(sequence))
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: create temp: %v", ErrIoError, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: write: %v", ErrIoError, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: fsync: %v", ErrIoError, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close: %v", ErrIoError, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("%w: rename: %v", ErrIoError, err)
	}

	return path, nil
}

// LoadRuntime reads the runtime snapshot at the given sequence from
// dir, or ErrNotFound if it does not exist.
func LoadRuntime(dir string, sequence uint64) (*RuntimeSnapshot, error) {
	path := filepath.Join(dir, filename(sequence))
	return loadRuntimeFile(path)
}

func loadRuntimeFile(path string) (*RuntimeSnapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read: %v", ErrIoError, err)
	}
	var snap RuntimeSnapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializationError, err)
	}
	return &snap, nil
}

// LoadLatestRuntime scans dir for snapshot_NNNNNN.json files and
// returns the one with the highest parseable sequence, or nil if none
// exist.
func LoadLatestRuntime(dir string) (*RuntimeSnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: readdir: %v", ErrIoError, err)
	}

	var best uint64
	var found bool
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		rest, ok := strings.CutPrefix(name, "snapshot_")
		if !ok {
			continue
		}
		seqStr, ok := strings.CutSuffix(rest, ".json")
		if !ok {
			continue
		}
		seq, err := strconv.ParseUint(seqStr, 10, 64)
		if err != nil {
			continue
		}
		if !found || seq > best {
			best = seq
			found = true
		}
	}

	if !found {
		return nil, nil
	}
	return LoadRuntime(dir, best)
}

// VerifyRuntimeHash reports whether snap's embedded hash matches the
// SHA-256 of its own canonical_json field — the snapshot's internal
// tamper check.
func VerifyRuntimeHash(snap *RuntimeSnapshot) bool {
	sum := sha256.Sum256([]byte(snap.CanonicalJSON))
	return hex.EncodeToString(sum[:]) == snap.Hash
}
