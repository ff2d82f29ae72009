package merge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/tbd/internal/merge"
	"github.com/jlevy/tbd/internal/types"
)

func baseIssue() *types.Issue {
	return &types.Issue{
		ID:        "is-01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Title:     "Fix login",
		Status:    types.StatusOpen,
		Kind:      types.KindBug,
		Priority:  2,
		Version:   1,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestMergeDisjointFieldsProduceNoConflicts covers spec.md §8 scenario 3:
// local and remote each change a different field, so the merge should
// pick up both changes without recording either as a conflict.
func TestMergeDisjointFieldsProduceNoConflicts(t *testing.T) {
	ancestor := baseIssue()

	local := baseIssue()
	local.Status = types.StatusInProgress
	local.Version = 2
	local.UpdatedAt = ancestor.UpdatedAt.Add(time.Hour)

	remote := baseIssue()
	remote.Priority = 0
	remote.Version = 2
	remote.UpdatedAt = ancestor.UpdatedAt.Add(2 * time.Hour)

	result := merge.Merge(ancestor, local, remote, time.Now())

	assert.Empty(t, result.Conflicts, "changes to disjoint fields should never conflict")
	assert.Equal(t, types.StatusInProgress, result.Issue.Status)
	assert.Equal(t, 0, result.Issue.Priority)
}

func TestMergeSameFieldBothSidesIsConflictAndNewerWins(t *testing.T) {
	ancestor := baseIssue()

	local := baseIssue()
	local.Title = "Fix login bug"
	local.Version = 2
	local.UpdatedAt = ancestor.UpdatedAt.Add(2 * time.Hour)

	remote := baseIssue()
	remote.Title = "Fix auth flow"
	remote.Version = 2
	remote.UpdatedAt = ancestor.UpdatedAt.Add(time.Hour)

	result := merge.Merge(ancestor, local, remote, time.Now())

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "title", result.Conflicts[0].Field)
	assert.Equal(t, "Fix login bug", result.Issue.Title, "local is newer by updated_at and should win")
}

// TestMergeNilAncestorTreatsEveryDifferenceAsConflict covers the case
// where two clones independently created an issue that collided on
// permanent id (spec.md §9 open question): there is no common ancestor,
// so every differing field must be recorded.
func TestMergeNilAncestorTreatsEveryDifferenceAsConflict(t *testing.T) {
	local := baseIssue()
	local.Title = "Local title"
	local.Priority = 1
	local.Version = 1
	local.UpdatedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	remote := baseIssue()
	remote.Title = "Remote title"
	remote.Priority = 3
	remote.Version = 1
	remote.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	result := merge.Merge(nil, local, remote, time.Now())

	fields := map[string]bool{}
	for _, c := range result.Conflicts {
		fields[c.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["priority"])
}

func TestMergeNotesConcatenatesDistinctSuffix(t *testing.T) {
	ancestor := baseIssue()
	ancestor.Notes = "line1"

	local := baseIssue()
	local.Notes = "line1\nline2"
	local.Version = 2

	remote := baseIssue()
	remote.Notes = "line1"
	remote.Version = 2

	result := merge.Merge(ancestor, local, remote, time.Now())
	assert.Equal(t, "line1\nline2", result.Issue.Notes)
}

func TestMergeUnionsLabelsFromBothSides(t *testing.T) {
	ancestor := baseIssue()

	local := baseIssue()
	local.Labels = []string{"frontend", "urgent"}
	local.Version = 2

	remote := baseIssue()
	remote.Labels = []string{"urgent", "backend"}
	remote.Version = 2

	result := merge.Merge(ancestor, local, remote, time.Now())
	assert.ElementsMatch(t, []string{"frontend", "urgent", "backend"}, result.Issue.Labels)
}

func TestMergeUnionsDependenciesByTypeAndTarget(t *testing.T) {
	ancestor := baseIssue()

	local := baseIssue()
	local.Dependencies = []types.Dependency{{Type: types.DependencyBlocks, Target: "is-1"}}
	local.Version = 2

	remote := baseIssue()
	remote.Dependencies = []types.Dependency{{Type: types.DependencyBlocks, Target: "is-2"}}
	remote.Version = 2

	result := merge.Merge(ancestor, local, remote, time.Now())
	require.Len(t, result.Issue.Dependencies, 2)
}

func TestMergeChildOrderHintsLongerListWins(t *testing.T) {
	ancestor := baseIssue()

	local := baseIssue()
	local.ChildOrderHints = []string{"is-1", "is-2", "is-3"}
	local.Version = 2

	remote := baseIssue()
	remote.ChildOrderHints = []string{"is-1", "is-2"}
	remote.Version = 2

	result := merge.Merge(ancestor, local, remote, time.Now())
	assert.Equal(t, []string{"is-1", "is-2", "is-3"}, result.Issue.ChildOrderHints)
}

func TestMergeVersionIsMaxPlusOne(t *testing.T) {
	ancestor := baseIssue()

	local := baseIssue()
	local.Version = 5

	remote := baseIssue()
	remote.Version = 3

	result := merge.Merge(ancestor, local, remote, time.Now())
	assert.Equal(t, 6, result.Issue.Version)
}

func TestMergeExtensionsLocalWinsOnKeyCollision(t *testing.T) {
	ancestor := baseIssue()

	local := baseIssue()
	local.Extensions = types.Extensions{"github_id": "local-42", "only_local": true}

	remote := baseIssue()
	remote.Extensions = types.Extensions{"github_id": "remote-99", "only_remote": true}

	result := merge.Merge(ancestor, local, remote, time.Now())
	assert.Equal(t, "local-42", result.Issue.Extensions["github_id"])
	assert.Equal(t, true, result.Issue.Extensions["only_local"])
	assert.Equal(t, true, result.Issue.Extensions["only_remote"])
}
