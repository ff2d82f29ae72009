package lockfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := TryAcquire(dir, "sync")
	require.NoError(t, err)
	require.NotNil(t, lock)

	info, err := ReadInfo(dir)
	require.NoError(t, err)
	require.Equal(t, "sync", info.Operation)

	require.NoError(t, lock.Release())

	_, err = ReadInfo(dir)
	require.Error(t, err, "lock file should be removed after release")
}

func TestTryAcquireBusy(t *testing.T) {
	dir := t.TempDir()

	lock, err := TryAcquire(dir, "sync")
	require.NoError(t, err)
	defer lock.Release()

	_, err = TryAcquire(dir, "sync")
	require.ErrorIs(t, err, ErrLockBusy)
}

func TestReadInfoMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadInfo(filepath.Join(dir, "nope"))
	require.Error(t, err)
}
