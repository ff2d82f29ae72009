package doctor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/tbd/internal/doctor"
	"github.com/jlevy/tbd/internal/gitx"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/worktree"
)

func TestCheckCloneScenarioOKOnFreshRepo(t *testing.T) {
	repoPath := setupTestRepo(t)
	client := gitx.New(repoPath)
	mgr := worktree.New(repoPath, "tbd-sync", "origin", client)
	dc := doctor.Context{MainClient: client, Manager: mgr, Branch: "tbd-sync", Remote: "origin"}

	result := doctor.CheckCloneScenario(context.Background(), dc, false)
	assert.Equal(t, doctor.StatusOK, result.Status)
	assert.Contains(t, result.Message, "fresh clone")
}

func TestCheckWorktreeStateWarnsOnMissingWithoutFix(t *testing.T) {
	repoPath := setupTestRepo(t)
	client := gitx.New(repoPath)
	mgr := worktree.New(repoPath, "tbd-sync", "origin", client)
	dc := doctor.Context{MainClient: client, Manager: mgr}

	result := doctor.CheckWorktreeState(context.Background(), dc, false)
	assert.Equal(t, doctor.StatusWarn, result.Status)
	assert.True(t, result.Fixable)
}

func TestCheckWorktreeStateFixesMissing(t *testing.T) {
	repoPath := setupTestRepo(t)
	client := gitx.New(repoPath)
	mgr := worktree.New(repoPath, "tbd-sync", "origin", client)
	dc := doctor.Context{MainClient: client, Manager: mgr}

	result := doctor.CheckWorktreeState(context.Background(), dc, true)
	assert.Equal(t, doctor.StatusOK, result.Status)

	status, err := mgr.Classify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, worktree.StatusValid, status)
}

func TestCheckDataLocationMigratesFallbackWhenFixed(t *testing.T) {
	repoPath := setupTestRepo(t)
	client := gitx.New(repoPath)
	mgr := worktree.New(repoPath, "tbd-sync", "origin", client)
	dc := doctor.Context{MainClient: client, Manager: mgr}
	ctx := context.Background()

	require.NoError(t, mgr.Init(ctx))

	issue := validIssue("fallback issue")
	require.NoError(t, store.Write(mgr.FallbackDataSyncRoot(), issue))

	warn := doctor.CheckDataLocation(ctx, dc, false)
	assert.Equal(t, doctor.StatusWarn, warn.Status)

	fixed := doctor.CheckDataLocation(ctx, dc, true)
	assert.Equal(t, doctor.StatusOK, fixed.Status)

	hasFallback, err := mgr.HasFallbackData()
	require.NoError(t, err)
	assert.False(t, hasFallback)
}
