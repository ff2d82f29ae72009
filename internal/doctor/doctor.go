// Package doctor is a pure composition over gitx, store, and worktree:
// it never invents its own checks on raw git or
// filesystem state, only reads results those packages already expose
// (spec.md §4.6).
package doctor

import (
	"context"

	"github.com/jlevy/tbd/internal/gitx"
	"github.com/jlevy/tbd/internal/worktree"
)

// Status values for DiagnosticResult, matching spec.md §4.6's
// "status ∈ {ok,warn,error}" exactly (not "warning" — this is the
// deliberate rename from the teacher's three-value set).
const (
	StatusOK    = "ok"
	StatusWarn  = "warn"
	StatusError = "error"
)

// DiagnosticResult is one independent check's outcome.
type DiagnosticResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Path       string `json:"path,omitempty"`
	Details    string `json:"details,omitempty"`
	Fixable    bool   `json:"fixable,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Context bundles what every check needs: the tbd root, the sync
// configuration, and a ready client for the main repository. Checks
// build their own gitx.Client for the worktree as needed.
type Context struct {
	RepoRoot   string
	TbdRoot    string
	Branch     string
	Remote     string
	MainClient *gitx.Client
	Manager    *worktree.Manager
}

// RunAll runs every independent check in spec.md §4.6's list and
// returns their results in a fixed, stable order. fix controls whether
// fixable checks (orphan temp files, worktree state, data location)
// perform their repair
// instead of just reporting.
func RunAll(ctx context.Context, dc Context, fix bool) []DiagnosticResult {
	checks := []func(context.Context, Context, bool) DiagnosticResult{
		CheckGitVersion,
		CheckConfig,
		CheckIssuesDirectory,
		CheckOrphanedDependencies,
		CheckDuplicatePermanentIDs,
		CheckOrphanTempFiles,
		CheckIssueFieldValidity,
		CheckWorktreeState,
		CheckDataLocation,
		CheckSyncBranches,
		CheckLocalDataRemoteEmpty,
		CheckCloneScenario,
		CheckSyncConsistency,
	}

	results := make([]DiagnosticResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, check(ctx, dc, fix))
	}
	return results
}

// HasErrors reports whether any result is at error severity, used by
// `tbd doctor` to decide its process exit code.
func HasErrors(results []DiagnosticResult) bool {
	for _, r := range results {
		if r.Status == StatusError {
			return true
		}
	}
	return false
}
