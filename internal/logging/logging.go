// Package logging wires a single log/slog logger for sync and doctor
// operations, matching the teacher's own cmd/bd, which is built on
// log/slog rather than a third-party logging library.
package logging

import (
	"log/slog"
	"os"
)

// New returns a text-handler logger writing to stderr at level, the
// same shape the teacher constructs per-daemon (slog.New +
// slog.NewTextHandler) rather than a shared global.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Discard is a logger that drops everything, used by tests and by
// quiet/--json CLI modes where structured log lines would corrupt
// machine-readable output.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WithSync returns a child logger pre-bound to the fields every
// sync-engine log line carries: branch and remote.
func WithSync(l *slog.Logger, branch, remote string) *slog.Logger {
	return l.With("branch", branch, "remote", remote)
}
