package issues_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/tbd/internal/idgen"
	"github.com/jlevy/tbd/internal/issues"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/types"
)

func newService(t *testing.T) *issues.Service {
	t.Helper()
	s := issues.NewService(t.TempDir(), "tbd")
	base := time.Date(2025, 11, 5, 14, 2, 17, 0, time.UTC)
	s.Now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return s
}

func TestCreateAssignsIDsAndDefaults(t *testing.T) {
	s := newService(t)

	issue, short, err := s.Create(issues.CreateOptions{Title: "Fix login"})
	require.NoError(t, err)
	assert.True(t, idgen.IsPermanentID(issue.ID))
	assert.NotEmpty(t, short)
	assert.Equal(t, types.KindTask, issue.Kind)
	assert.Equal(t, types.StatusOpen, issue.Status)
	assert.Equal(t, 2, issue.Priority)
	assert.Equal(t, 1, issue.Version)

	read, err := store.Read(s.Root, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fix login", read.Title)
}

func TestCreateRequiresTitle(t *testing.T) {
	s := newService(t)
	_, _, err := s.Create(issues.CreateOptions{})
	require.Error(t, err)
}

func TestCreateInheritsSpecPathFromParent(t *testing.T) {
	s := newService(t)

	parent, _, err := s.Create(issues.CreateOptions{Title: "Epic", SpecPath: "docs/specs/auth.md"})
	require.NoError(t, err)

	child, _, err := s.Create(issues.CreateOptions{Title: "Subtask", ParentID: parent.ID})
	require.NoError(t, err)
	assert.Equal(t, "docs/specs/auth.md", child.SpecPath)

	// An explicit spec_path beats inheritance.
	other, _, err := s.Create(issues.CreateOptions{Title: "Other", ParentID: parent.ID, SpecPath: "docs/specs/other.md"})
	require.NoError(t, err)
	assert.Equal(t, "docs/specs/other.md", other.SpecPath)
}

func TestCreatePreservesExternalIDToken(t *testing.T) {
	s := newService(t)

	_, short, err := s.Create(issues.CreateOptions{Title: "Imported", ExternalID: "tbd-100"})
	require.NoError(t, err)
	assert.Equal(t, "100", short)

	// A second import of the same token falls back to fresh allocation.
	_, short2, err := s.Create(issues.CreateOptions{Title: "Imported again", ExternalID: "jira-100"})
	require.NoError(t, err)
	assert.NotEqual(t, "100", short2)
}

func TestResolveAcceptsAllThreeForms(t *testing.T) {
	s := newService(t)
	issue, short, err := s.Create(issues.CreateOptions{Title: "Findable"})
	require.NoError(t, err)

	for _, input := range []string{short, "tbd-" + short, issue.ID} {
		got, err := s.Resolve(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, issue.ID, got)
	}

	_, err = s.Resolve("nope")
	require.Error(t, err)
}

func TestUpdateBumpsVersionAndUpdatedAt(t *testing.T) {
	s := newService(t)
	issue, short, err := s.Create(issues.CreateOptions{Title: "Before"})
	require.NoError(t, err)

	updated, err := s.Update(short, func(i *types.Issue) error {
		i.Title = "After"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, issue.Version+1, updated.Version)
	assert.True(t, updated.UpdatedAt.After(issue.UpdatedAt))
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	s := newService(t)
	issue, _, err := s.Create(issues.CreateOptions{Title: "Loner"})
	require.NoError(t, err)

	_, err = s.Update(issue.ID, func(i *types.Issue) error {
		i.ParentID = i.ID
		return nil
	})
	require.Error(t, err)
}

func TestSpecPathPropagatesToMatchingChildren(t *testing.T) {
	s := newService(t)

	parent, _, err := s.Create(issues.CreateOptions{Title: "Epic", SpecPath: "docs/old.md"})
	require.NoError(t, err)
	inherited, _, err := s.Create(issues.CreateOptions{Title: "Inherited", ParentID: parent.ID})
	require.NoError(t, err)
	divergent, _, err := s.Create(issues.CreateOptions{Title: "Divergent", ParentID: parent.ID, SpecPath: "docs/mine.md"})
	require.NoError(t, err)

	_, err = s.Update(parent.ID, func(i *types.Issue) error {
		i.SpecPath = "docs/new.md"
		return nil
	})
	require.NoError(t, err)

	got, err := store.Read(s.Root, inherited.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs/new.md", got.SpecPath, "child matching the old value follows the parent")

	kept, err := store.Read(s.Root, divergent.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs/mine.md", kept.SpecPath, "child with its own spec_path is untouched")
}

func TestCloseSetsStatusAndReason(t *testing.T) {
	s := newService(t)
	_, short, err := s.Create(issues.CreateOptions{Title: "Done soon"})
	require.NoError(t, err)

	closed, err := s.Close(short, "fixed upstream")
	require.NoError(t, err)
	assert.Equal(t, types.StatusClosed, closed.Status)
	assert.Equal(t, "fixed upstream", closed.CloseReason)
	assert.NotEmpty(t, closed.ClosedAt)
}

func TestDisplayID(t *testing.T) {
	s := newService(t)
	issue, short, err := s.Create(issues.CreateOptions{Title: "Shown"})
	require.NoError(t, err)
	assert.Equal(t, "tbd-"+short, s.DisplayID(issue.ID))
	assert.Equal(t, "is-unmapped", s.DisplayID("is-unmapped"))
}
