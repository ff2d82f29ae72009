package doctor

import (
	"context"
	"fmt"

	"github.com/jlevy/tbd/internal/gitx"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/worktree"
)

// CheckWorktreeState classifies the data-plane worktree (spec.md §4.4)
// and, with fix set, routes any non-valid state through repair,
// migrating any stray fallback-path data into the repaired worktree.
func CheckWorktreeState(ctx context.Context, dc Context, fix bool) DiagnosticResult {
	if dc.Manager == nil {
		return DiagnosticResult{Name: "worktree state", Status: StatusError, Message: "no worktree manager configured"}
	}
	status, err := dc.Manager.Classify(ctx)
	if err != nil {
		return DiagnosticResult{Name: "worktree state", Status: StatusError, Message: "could not classify worktree", Details: err.Error()}
	}
	if status == worktree.StatusValid {
		return DiagnosticResult{Name: "worktree state", Status: StatusOK, Message: "valid", Path: dc.Manager.Path()}
	}
	if !fix {
		suggestion := "run `tbd doctor --fix` or `tbd sync --fix`"
		if status == worktree.StatusWrongBranch {
			// Re-attaching is non-destructive, so a plain sync fixes it too.
			suggestion = "run `tbd sync` or `tbd doctor --fix`"
		}
		return DiagnosticResult{
			Name:       "worktree state",
			Status:     StatusWarn,
			Message:    fmt.Sprintf("worktree is %s", status),
			Path:       dc.Manager.Path(),
			Fixable:    true,
			Suggestion: suggestion,
		}
	}
	backup, err := dc.Manager.Repair(ctx, status)
	if err != nil {
		return DiagnosticResult{Name: "worktree state", Status: StatusError, Message: "repair failed", Details: err.Error()}
	}
	if backup != "" {
		if _, err := dc.Manager.MigrateDataToWorktree(ctx); err != nil {
			return DiagnosticResult{Name: "worktree state", Status: StatusError, Message: "repaired, but migrating backed-up data failed", Path: backup, Details: err.Error()}
		}
		return DiagnosticResult{Name: "worktree state", Status: StatusOK, Message: fmt.Sprintf("repaired from %s (backup kept at %s)", status, backup)}
	}
	return DiagnosticResult{Name: "worktree state", Status: StatusOK, Message: fmt.Sprintf("repaired from %s", status)}
}

// CheckDataLocation reports whether issue data still lives at the
// pre-worktree fallback path (spec.md §4.4), migrating it into the
// worktree when fix is set.
func CheckDataLocation(ctx context.Context, dc Context, fix bool) DiagnosticResult {
	if dc.Manager == nil {
		return DiagnosticResult{Name: "data location", Status: StatusError, Message: "no worktree manager configured"}
	}
	hasFallback, err := dc.Manager.HasFallbackData()
	if err != nil {
		return DiagnosticResult{Name: "data location", Status: StatusError, Message: "could not check fallback path", Details: err.Error()}
	}
	if !hasFallback {
		return DiagnosticResult{Name: "data location", Status: StatusOK, Message: "data lives in the worktree"}
	}
	if !fix {
		return DiagnosticResult{
			Name:       "data location",
			Status:     StatusWarn,
			Message:    "issue data found at the fallback path outside the worktree",
			Path:       dc.Manager.FallbackDataSyncRoot(),
			Fixable:    true,
			Suggestion: "run `tbd doctor --fix` to migrate it into the worktree",
		}
	}
	result, err := dc.Manager.MigrateDataToWorktree(ctx)
	if err != nil {
		return DiagnosticResult{Name: "data location", Status: StatusError, Message: "migration failed", Details: err.Error()}
	}
	return DiagnosticResult{Name: "data location", Status: StatusOK, Message: fmt.Sprintf("migrated %d issue(s) into the worktree", len(result.MigratedIssueIDs))}
}

// CheckSyncBranches reports whether the sync branch exists locally and
// on the remote, and whether the two have diverged.
func CheckSyncBranches(ctx context.Context, dc Context, _ bool) DiagnosticResult {
	if dc.Manager == nil {
		return DiagnosticResult{Name: "sync branches", Status: StatusOK, Message: "skipped (no worktree manager)"}
	}
	localExists := dc.MainClient.BranchExists(ctx, dc.Branch)
	if !localExists {
		return DiagnosticResult{
			Name:       "sync branches",
			Status:     StatusWarn,
			Message:    fmt.Sprintf("local branch %q does not exist yet", dc.Branch),
			Suggestion: "run `tbd sync` to create it",
		}
	}

	remoteRef := dc.Remote + "/" + dc.Branch
	wt := gitx.New(dc.Manager.Path())
	if err := wt.Fetch(ctx, dc.Remote, dc.Branch); err != nil {
		return DiagnosticResult{Name: "sync branches", Status: StatusWarn, Message: "could not fetch remote branch", Details: err.Error()}
	}
	ahead, aheadErr := wt.RevListCount(ctx, remoteRef, dc.Branch)
	behind, behindErr := wt.RevListCount(ctx, dc.Branch, remoteRef)
	if aheadErr != nil || behindErr != nil {
		return DiagnosticResult{
			Name:    "sync branches",
			Status:  StatusWarn,
			Message: fmt.Sprintf("remote branch %q not found", remoteRef),
		}
	}
	if ahead == 0 && behind == 0 {
		return DiagnosticResult{Name: "sync branches", Status: StatusOK, Message: "local and remote are in sync"}
	}
	return DiagnosticResult{
		Name:       "sync branches",
		Status:     StatusWarn,
		Message:    fmt.Sprintf("diverged: %d ahead, %d behind", ahead, behind),
		Suggestion: "run `tbd sync`",
	}
}

// CheckLocalDataRemoteEmpty cross-checks a suspicious configuration: the
// local worktree carries issues but the remote sync branch carries none,
// which usually means the first push never happened.
func CheckLocalDataRemoteEmpty(ctx context.Context, dc Context, _ bool) DiagnosticResult {
	if dc.Manager == nil {
		return DiagnosticResult{Name: "local-data/remote-empty", Status: StatusOK, Message: "skipped (no worktree manager)"}
	}
	localIssues, err := store.List(dc.Manager.DataSyncRoot())
	if err != nil || len(localIssues) == 0 {
		return DiagnosticResult{Name: "local-data/remote-empty", Status: StatusOK, Message: "no local issues to compare"}
	}

	remoteRef := dc.Remote + "/" + dc.Branch
	wt := gitx.New(dc.Manager.Path())
	_, found, err := wt.Show(ctx, remoteRef, "issues")
	if err != nil {
		return DiagnosticResult{Name: "local-data/remote-empty", Status: StatusOK, Message: "could not inspect remote tree; skipping"}
	}
	if !found {
		return DiagnosticResult{
			Name:       "local-data/remote-empty",
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%d local issue(s) exist but the remote sync branch has no issues directory", len(localIssues)),
			Suggestion: "run `tbd sync` to push local data",
		}
	}
	return DiagnosticResult{Name: "local-data/remote-empty", Status: StatusOK, Message: "remote has data"}
}

// CheckCloneScenario recognizes a freshly cloned repository where tbd
// has not yet been initialized locally: no worktree, no local sync
// branch, and an empty fallback store. This is an expected, benign
// state rather than a defect — the check exists so doctor does not cry
// wolf on a clone that simply hasn't run its first sync.
func CheckCloneScenario(ctx context.Context, dc Context, _ bool) DiagnosticResult {
	if dc.Manager == nil {
		return DiagnosticResult{Name: "clone scenario", Status: StatusOK, Message: "skipped (no worktree manager)"}
	}
	status, err := dc.Manager.Classify(ctx)
	if err != nil {
		return DiagnosticResult{Name: "clone scenario", Status: StatusOK, Message: "skipped (could not classify worktree)"}
	}
	localBranchExists := dc.MainClient.BranchExists(ctx, dc.Branch)
	fallbackIssues, _ := store.List(dc.Manager.FallbackDataSyncRoot())

	if status == worktree.StatusMissing && !localBranchExists && len(fallbackIssues) == 0 {
		return DiagnosticResult{
			Name:       "clone scenario",
			Status:     StatusOK,
			Message:    "fresh clone; no tbd state yet",
			Suggestion: "run `tbd sync` to initialize and pull remote issues",
		}
	}
	return DiagnosticResult{Name: "clone scenario", Status: StatusOK, Message: "not a fresh clone"}
}

// CheckSyncConsistency verifies the worktree's HEAD agrees with the
// local sync branch tip, and reports ahead/behind counts against the
// remote-tracking branch (when it exists) one more time as a final
// cross-check independent of CheckSyncBranches's remote-only framing.
func CheckSyncConsistency(ctx context.Context, dc Context, _ bool) DiagnosticResult {
	if dc.Manager == nil {
		return DiagnosticResult{Name: "sync consistency", Status: StatusOK, Message: "skipped (no worktree manager)"}
	}
	status, err := dc.Manager.Classify(ctx)
	if err != nil || status != worktree.StatusValid {
		return DiagnosticResult{Name: "sync consistency", Status: StatusOK, Message: "skipped (worktree not valid; see worktree state check)"}
	}

	wtClient := gitx.New(dc.Manager.Path())
	wtHead, err := wtClient.RevParse(ctx, "HEAD")
	if err != nil {
		return DiagnosticResult{Name: "sync consistency", Status: StatusError, Message: "could not read worktree HEAD", Details: err.Error()}
	}
	branchHead, err := dc.MainClient.RevParse(ctx, dc.Branch)
	if err != nil {
		return DiagnosticResult{Name: "sync consistency", Status: StatusWarn, Message: fmt.Sprintf("local branch %q has no commits yet", dc.Branch)}
	}
	if wtHead != branchHead {
		return DiagnosticResult{
			Name:    "sync consistency",
			Status:  StatusError,
			Message: "worktree HEAD does not match the local sync branch tip",
			Details: fmt.Sprintf("worktree=%s branch=%s", wtHead, branchHead),
		}
	}
	msg := "worktree HEAD matches local sync branch"
	remoteRef := dc.Remote + "/" + dc.Branch
	ahead, aheadErr := wtClient.RevListCount(ctx, remoteRef, dc.Branch)
	behind, behindErr := wtClient.RevListCount(ctx, dc.Branch, remoteRef)
	if aheadErr == nil && behindErr == nil {
		msg += fmt.Sprintf(" (%d ahead, %d behind %s)", ahead, behind, remoteRef)
	}
	return DiagnosticResult{Name: "sync consistency", Status: StatusOK, Message: msg}
}
