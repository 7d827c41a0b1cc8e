// Package orglog is the runtime's structured logging wrapper. The
// kernel (arithmetic, domain, graphutil, invariant, kernel, canon)
// never imports this package — it stays pure and log-free. Only the
// engine and session layers log, and only at debug/warn
// level for non-fatal, diagnostic visibility into transition
// outcomes.
package orglog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger wraps a logiface.Logger bound to the stumpy JSON backend. A
// nil *Logger is valid and silently discards every call, so runtime
// components can accept a caller-supplied logger without a nil check
// on every call site.
type Logger struct {
	inner *logiface.Logger[*stumpy.Event]
}

// New returns a Logger writing newline-delimited JSON to w.
func New(w io.Writer) *Logger {
	return &Logger{
		inner: stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(w)),
			stumpy.L.WithLevel(logiface.LevelDebug),
		),
	}
}

// Default returns a Logger writing to os.Stderr.
func Default() *Logger {
	return New(os.Stderr)
}

// TransitionApplied logs a successful kernel transition at debug level.
func (l *Logger) TransitionApplied(eventType string, sequence uint64, reason string) {
	if l == nil || l.inner == nil {
		return
	}
	l.inner.Debug().
		Str("event_type", eventType).
		Uint64("sequence", sequence).
		Str("reason", reason).
		Log("transition applied")
}

// TransitionRejected logs a rejected event at warning level.
func (l *Logger) TransitionRejected(eventType string, sequence uint64, err error) {
	if l == nil || l.inner == nil {
		return
	}
	l.inner.Warning().
		Str("event_type", eventType).
		Uint64("sequence", sequence).
		Err(err).
		Log("transition rejected")
}

// SnapshotWritten logs a completed snapshot write at debug level.
func (l *Logger) SnapshotWritten(sequence uint64, hash string) {
	if l == nil || l.inner == nil {
		return
	}
	l.inner.Debug().
		Uint64("sequence", sequence).
		Str("hash", hash).
		Log("snapshot written")
}
