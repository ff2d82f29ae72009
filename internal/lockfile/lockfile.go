// Package lockfile implements the advisory lock on <tbd>/.lock that
// guards a sync round (spec.md §5, "implementations may take an
// advisory lock"). It is adapted from the teacher's daemon lock
// (internal/lockfile in steveyegge/beads), simplified from a
// long-lived daemon lock to a short-held per-sync lock, and ported to
// this repo's single-purpose use case.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLockBusy is returned when a non-blocking lock cannot be acquired
// because another process holds it.
var ErrLockBusy = errors.New("lock busy: held by another process")

// LockInfo is the JSON payload written into the lock file, useful for a
// human or doctor diagnosing a stuck lock.
type LockInfo struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Operation string    `json:"operation"`
}

// FileName is the lock file's name under the <tbd>/ root.
const FileName = ".lock"

// Lock represents a held advisory lock; Release must be called exactly
// once to unlock and remove the file.
type Lock struct {
	file *os.File
	path string
}

// TryAcquire attempts to take the exclusive, non-blocking lock at
// <tbdRoot>/.lock, stamping it with the current PID and operation name.
// Returns ErrLockBusy if another process holds it.
func TryAcquire(tbdRoot, operation string) (*Lock, error) {
	// The very first sync in a repository runs before anything else has
	// created the tbd root.
	if err := os.MkdirAll(tbdRoot, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(tbdRoot, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644) // #nosec G304 -- path is under the caller's own tbd root
	if err != nil {
		return nil, err
	}
	if err := flockExclusiveNonBlock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			return nil, ErrLockBusy
		}
		return nil, err
	}

	info := LockInfo{PID: os.Getpid(), StartedAt: time.Now(), Operation: operation}
	data, err := json.Marshal(info)
	if err == nil {
		_ = f.Truncate(0)
		_, _ = f.Seek(0, 0)
		_, _ = f.Write(data)
		_ = f.Sync()
	}

	return &Lock{file: f, path: path}, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = flockUnlock(l.file)
	err := l.file.Close()
	_ = os.Remove(l.path)
	return err
}

// ReadInfo reads the current lock file's contents without acquiring it.
func ReadInfo(tbdRoot string) (*LockInfo, error) {
	path := filepath.Join(tbdRoot, FileName)
	data, err := os.ReadFile(path) // #nosec G304 -- path is under the caller's own tbd root
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("malformed lock file: %w", err)
	}
	return &info, nil
}
