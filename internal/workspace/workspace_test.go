package workspace_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/tbd/internal/idgen"
	"github.com/jlevy/tbd/internal/mapping"
	"github.com/jlevy/tbd/internal/types"
	"github.com/jlevy/tbd/internal/workspace"
)

func newIssue(id string, updatedAt time.Time) *types.Issue {
	return &types.Issue{
		ID:        id,
		Title:     "issue " + id,
		Status:    types.StatusOpen,
		Kind:      types.KindTask,
		Version:   1,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func TestSaveWritesAllIssuesWithoutUpdatesOnly(t *testing.T) {
	root := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)
	issues := []*types.Issue{
		newIssue(idgen.NewPermanentID(), now),
		newIssue(idgen.NewPermanentID(), now.Add(-time.Hour)),
	}

	n, err := workspace.Save(root, workspace.OutboxName, issues, false, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := workspace.Load(root, workspace.OutboxName)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestSaveUpdatesOnlyFiltersByTimestamp(t *testing.T) {
	root := t.TempDir()
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issues := []*types.Issue{
		newIssue(idgen.NewPermanentID(), since.Add(-time.Hour)), // older, skipped
		newIssue(idgen.NewPermanentID(), since.Add(time.Hour)),  // newer, kept
	}

	n, err := workspace.Save(root, workspace.OutboxName, issues, true, since)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExistsIsFalseForEmptyWorkspace(t *testing.T) {
	root := t.TempDir()
	exists, err := workspace.Exists(root, workspace.OutboxName)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSaveMergeOnlyOverwritesWhenNewer(t *testing.T) {
	root := t.TempDir()
	id := idgen.NewPermanentID()
	older := newIssue(id, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := workspace.Save(root, workspace.OutboxName, []*types.Issue{older}, false, time.Time{})
	require.NoError(t, err)

	stale := newIssue(id, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	stale.Title = "stale update"
	written, err := workspace.SaveMerge(root, workspace.OutboxName, []*types.Issue{stale})
	require.NoError(t, err)
	assert.Equal(t, 0, written, "an older copy should not overwrite the existing snapshot")

	fresh := newIssue(id, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	fresh.Title = "fresh update"
	written, err = workspace.SaveMerge(root, workspace.OutboxName, []*types.Issue{fresh})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	loaded, err := workspace.Load(root, workspace.OutboxName)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "fresh update", loaded[0].Title)
}

func TestSaveMergeLeavesUntouchedIssuesInPlace(t *testing.T) {
	root := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)
	untouched := newIssue(idgen.NewPermanentID(), now)
	_, err := workspace.Save(root, workspace.OutboxName, []*types.Issue{untouched}, false, time.Time{})
	require.NoError(t, err)

	added := newIssue(idgen.NewPermanentID(), now)
	_, err = workspace.SaveMerge(root, workspace.OutboxName, []*types.Issue{added})
	require.NoError(t, err)

	loaded, err := workspace.Load(root, workspace.OutboxName)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestClearRemovesTheWholeWorkspace(t *testing.T) {
	root := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)
	issues := []*types.Issue{newIssue(idgen.NewPermanentID(), now), newIssue(idgen.NewPermanentID(), now)}
	_, err := workspace.Save(root, workspace.OutboxName, issues, false, time.Time{})
	require.NoError(t, err)

	m := mapping.New()
	m.Bind("a1", issues[0].ID)
	require.NoError(t, workspace.SaveMapping(root, workspace.OutboxName, m))

	require.NoError(t, workspace.Clear(root, workspace.OutboxName))

	exists, err := workspace.Exists(root, workspace.OutboxName)
	require.NoError(t, err)
	assert.False(t, exists)
	_, statErr := os.Stat(workspace.RelDir(root, workspace.OutboxName))
	assert.True(t, os.IsNotExist(statErr), "the workspace directory itself should be gone")
}

func TestSaveMappingRoundTrips(t *testing.T) {
	root := t.TempDir()
	m := mapping.New()
	m.Bind("a1", idgen.NewPermanentID())
	require.NoError(t, workspace.SaveMapping(root, "snap", m))

	loaded, err := workspace.LoadMapping(root, "snap")
	require.NoError(t, err)
	assert.Equal(t, m.ShortToID, loaded.ShortToID)
}

func TestLoadMappingOnMissingFileReturnsEmptyMapping(t *testing.T) {
	root := t.TempDir()
	m, err := workspace.LoadMapping(root, workspace.OutboxName)
	require.NoError(t, err)
	assert.Empty(t, m.ShortToID)
}
