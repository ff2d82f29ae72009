package attic_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jlevy/tbd/internal/attic"
)

func TestWriteCreatesAticDirAndNamesFileByDayIDField(t *testing.T) {
	root := t.TempDir()
	entry := attic.Entry{
		IssueID:   "is-abc",
		Field:     "title",
		Local:     "local title",
		Remote:    "remote title",
		Chosen:    "local title",
		Timestamp: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}

	path, err := attic.Write(root, entry)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, attic.RelDir, "20260304-is-abc-title.yml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var loaded attic.Entry
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, "is-abc", loaded.IssueID)
	assert.Equal(t, "local title", loaded.Chosen)
}

func TestWriteAddsNumericSuffixOnCollision(t *testing.T) {
	root := t.TempDir()
	entry := attic.Entry{
		IssueID:   "is-abc",
		Field:     "title",
		Timestamp: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	}

	first, err := attic.Write(root, entry)
	require.NoError(t, err)
	second, err := attic.Write(root, entry)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(root, attic.RelDir, "20260304-is-abc-title-2.yml"), second)
}

func TestWriteAllWritesEveryEntryAndReturnsAllPaths(t *testing.T) {
	root := t.TempDir()
	entries := []attic.Entry{
		{IssueID: "is-a", Field: "title", Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{IssueID: "is-b", Field: "status", Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	paths, err := attic.WriteAll(root, entries)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestWriteAllOnEmptySliceWritesNothing(t *testing.T) {
	root := t.TempDir()
	paths, err := attic.WriteAll(root, nil)
	require.NoError(t, err)
	assert.Empty(t, paths)

	_, statErr := os.Stat(filepath.Join(root, attic.RelDir))
	assert.True(t, os.IsNotExist(statErr))
}
