package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/tbd/internal/store"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	issue := sampleIssue()

	require.NoError(t, store.Write(dir, issue))

	got, err := store.Read(dir, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.ID, got.ID)
	assert.Equal(t, issue.Title, got.Title)
}

func TestReadMissingIsNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := store.Read(dir, "is-nonexistent")
	require.Error(t, err)
}

func TestWriteLeavesNoTmpSibling(t *testing.T) {
	dir := t.TempDir()
	issue := sampleIssue()
	require.NoError(t, store.Write(dir, issue))

	entries, err := os.ReadDir(store.IssuesDir(dir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, issue.ID+".md", entries[0].Name())
}

func TestListSkipsTmpFiles(t *testing.T) {
	dir := t.TempDir()
	issue := sampleIssue()
	require.NoError(t, store.Write(dir, issue))

	orphan := filepath.Join(store.IssuesDir(dir), "is-orphan.md.tmp")
	require.NoError(t, os.WriteFile(orphan, []byte("partial"), 0o644))

	issues, err := store.List(dir)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, issue.ID, issues[0].ID)
}

func TestListOnMissingDirectoryIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	issues, err := store.List(filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestOrphanTempFilesAndSweep(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(store.IssuesDir(dir), 0o755))
	tmp1 := filepath.Join(store.IssuesDir(dir), "is-a.md.tmp")
	tmp2 := filepath.Join(store.IssuesDir(dir), "is-b.md.tmp")
	require.NoError(t, os.WriteFile(tmp1, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(tmp2, []byte("x"), 0o644))

	orphans, err := store.OrphanTempFiles(dir)
	require.NoError(t, err)
	assert.Len(t, orphans, 2)

	n, err := store.SweepTempFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := store.OrphanTempFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestListFailsOnMalformedFileNamingTheOffender(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(store.IssuesDir(dir), 0o755))
	bad := filepath.Join(store.IssuesDir(dir), "is-bad.md")
	require.NoError(t, os.WriteFile(bad, []byte("not yaml front matter"), 0o644))

	_, err := store.List(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is-bad.md")
}
