package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/tbd/internal/idgen"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/types"
)

func sampleIssue() *types.Issue {
	return &types.Issue{
		ID:        idgen.NewPermanentIDAt(time.Date(2025, 11, 5, 14, 2, 17, 0, time.UTC)),
		Version:   1,
		Title:     "Fix login",
		Kind:      types.KindBug,
		Status:    types.StatusOpen,
		Priority:  1,
		CreatedAt: time.Date(2025, 11, 5, 14, 2, 17, 0, time.UTC),
		UpdatedAt: time.Date(2025, 11, 5, 14, 2, 17, 0, time.UTC),
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	issue := sampleIssue()
	issue.Labels = []string{"b", "a"}
	issue.Dependencies = []types.Dependency{{Type: types.DependencyBlocks, Target: idgen.NewPermanentID()}}
	issue.Description = "does the thing"
	issue.Notes = "some notes"

	text, err := store.Serialize(issue)
	require.NoError(t, err)

	parsed, err := store.Parse(text)
	require.NoError(t, err)

	assert.Equal(t, issue.ID, parsed.ID)
	assert.Equal(t, issue.Title, parsed.Title)
	assert.Equal(t, issue.Kind, parsed.Kind)
	assert.Equal(t, issue.Status, parsed.Status)
	assert.Equal(t, issue.Priority, parsed.Priority)
	assert.ElementsMatch(t, []string{"a", "b"}, parsed.Labels)
	assert.Equal(t, issue.Dependencies, parsed.Dependencies)
	assert.Equal(t, issue.Description, parsed.Description)
	assert.Equal(t, issue.Notes, parsed.Notes)
	assert.True(t, issue.CreatedAt.Equal(parsed.CreatedAt))
	assert.True(t, issue.UpdatedAt.Equal(parsed.UpdatedAt))
}

func TestSerializeElidesEmptyOptionalFields(t *testing.T) {
	issue := sampleIssue()
	text, err := store.Serialize(issue)
	require.NoError(t, err)

	assert.NotContains(t, text, "labels:")
	assert.NotContains(t, text, "parent_id:")
	assert.NotContains(t, text, "assignee:")
	assert.NotContains(t, text, "## Description")
	assert.NotContains(t, text, "## Notes")
}

func TestParsePreservesUnknownKeysInExtensions(t *testing.T) {
	issue := sampleIssue()
	text, err := store.Serialize(issue)
	require.NoError(t, err)

	withExtra := text[:len(text)-4] + "\nimported_from: tbd-100\n---\n"
	parsed, err := store.Parse(withExtra)
	require.NoError(t, err)
	assert.Equal(t, "tbd-100", parsed.Extensions["imported_from"])
}

func TestSerializeIsDeterministic(t *testing.T) {
	issue := sampleIssue()
	issue.Extensions = types.Extensions{
		"zeta_key": "z", "imported_from": "tbd-100", "alpha_key": 1,
	}
	first, err := store.Serialize(issue)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := store.Serialize(issue)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParseRejectsMissingFrontMatterDelimiter(t *testing.T) {
	_, err := store.Parse("title: no delimiter\n")
	require.Error(t, err)
}

func TestParseRejectsUnterminatedFrontMatter(t *testing.T) {
	_, err := store.Parse("---\ntitle: x\n")
	require.Error(t, err)
}

func TestSerializeRejectsInvalidIssue(t *testing.T) {
	issue := sampleIssue()
	issue.Title = ""
	_, err := store.Serialize(issue)
	assert.Error(t, err)
}

func TestParseExtractsSectionsRegardlessOfOrder(t *testing.T) {
	issue := sampleIssue()
	issue.Description = "desc text"
	issue.Notes = "notes text"
	text, err := store.Serialize(issue)
	require.NoError(t, err)

	parsed, err := store.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "desc text", parsed.Description)
	assert.Equal(t, "notes text", parsed.Notes)
}
