package mapping_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/tbd/internal/mapping"
)

func TestLoadMissingFileReturnsEmptyMapping(t *testing.T) {
	m, err := mapping.Load(filepath.Join(t.TempDir(), "ids.yml"))
	require.NoError(t, err)
	assert.Empty(t, m.ShortToID)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.yml")
	m := mapping.New()
	m.Bind("a1", "is-one")
	m.Bind("a2", "is-two")
	m.Generator = 7

	require.NoError(t, m.Save(path))

	loaded, err := mapping.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "is-one", loaded.ShortToID["a1"])
	assert.Equal(t, "is-two", loaded.ShortToID["a2"])
	assert.Equal(t, uint64(7), loaded.Generator)
}

func TestLoadRecoversEntriesOnlyInReverseView(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.yml")
	content := "short_to_permanent:\n  a1: is-one\npermanent_to_short:\n  is-one: a1\n  is-two: a2\ngenerator: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := mapping.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "is-one", m.ShortToID["a1"])
	assert.Equal(t, "is-two", m.ShortToID["a2"], "an entry present only in the reverse view should still load")
}

func TestSaveWritesBothViews(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.yml")
	m := mapping.New()
	m.Bind("a1", "is-one")
	require.NoError(t, m.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "short_to_permanent:")
	assert.Contains(t, string(data), "permanent_to_short:")
}

func TestBindReplacesStaleReverseEntry(t *testing.T) {
	m := mapping.New()
	m.Bind("a1", "is-one")
	m.Bind("a2", "is-one") // same id gets a new short id

	_, stillBound := m.ShortToID["a1"]
	assert.False(t, stillBound, "old short id a1 should no longer point at is-one")
	assert.Equal(t, "is-one", m.ShortToID["a2"])
	short, ok := m.ShortFor("is-one")
	require.True(t, ok)
	assert.Equal(t, "a2", short)
}

func TestResolveAcceptsShortDisplayAndPermanentForms(t *testing.T) {
	m := mapping.New()
	m.Bind("a1", "is-01ARZ3NDEKTSV4RRFFQ69G5FAV")

	id, ok := m.Resolve("a1", "tbd")
	require.True(t, ok)
	assert.Equal(t, "is-01ARZ3NDEKTSV4RRFFQ69G5FAV", id)

	id, ok = m.Resolve("tbd-a1", "tbd")
	require.True(t, ok)
	assert.Equal(t, "is-01ARZ3NDEKTSV4RRFFQ69G5FAV", id)

	id, ok = m.Resolve("is-01ARZ3NDEKTSV4RRFFQ69G5FAV", "tbd")
	require.True(t, ok)
	assert.Equal(t, "is-01ARZ3NDEKTSV4RRFFQ69G5FAV", id)

	_, ok = m.Resolve("nope", "tbd")
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	m := mapping.New()
	m.Bind("a1", "is-one")
	c := m.Clone()
	c.Bind("a2", "is-two")

	assert.NotContains(t, m.ShortToID, "a2")
	assert.Contains(t, c.ShortToID, "a2")
}
