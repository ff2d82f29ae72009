package doctor

import (
	"context"
	"fmt"

	"github.com/jlevy/tbd/internal/store"
)

// CheckIssuesDirectory reports whether the issues directory exists and
// is readable under the current data-sync root.
func CheckIssuesDirectory(_ context.Context, dc Context, _ bool) DiagnosticResult {
	root := dataSyncRoot(dc)
	issues, err := store.List(root)
	if err != nil {
		return DiagnosticResult{
			Name:    "issues directory",
			Status:  StatusError,
			Message: "could not list issues",
			Path:    store.IssuesDir(root),
			Details: err.Error(),
		}
	}
	return DiagnosticResult{
		Name:    "issues directory",
		Status:  StatusOK,
		Message: fmt.Sprintf("%d issue(s)", len(issues)),
		Path:    store.IssuesDir(root),
	}
}

// CheckOrphanedDependencies reports dependencies that reference a
// permanent id with no corresponding issue file.
func CheckOrphanedDependencies(_ context.Context, dc Context, _ bool) DiagnosticResult {
	root := dataSyncRoot(dc)
	issues, err := store.List(root)
	if err != nil {
		return DiagnosticResult{Name: "orphaned dependencies", Status: StatusError, Message: "could not list issues", Details: err.Error()}
	}
	present := make(map[string]bool, len(issues))
	for _, i := range issues {
		present[i.ID] = true
	}
	var orphans []string
	for _, i := range issues {
		for _, dep := range i.Dependencies {
			if !present[dep.Target] {
				orphans = append(orphans, fmt.Sprintf("%s -> %s", i.ID, dep.Target))
			}
		}
		if i.ParentID != "" && !present[i.ParentID] {
			orphans = append(orphans, fmt.Sprintf("%s -> %s (parent)", i.ID, i.ParentID))
		}
	}
	if len(orphans) > 0 {
		return DiagnosticResult{
			Name:    "orphaned dependencies",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%d dependency reference(s) point to missing issues", len(orphans)),
			Details: fmt.Sprintf("%v", orphans),
		}
	}
	return DiagnosticResult{Name: "orphaned dependencies", Status: StatusOK, Message: "no orphaned dependencies"}
}

// CheckDuplicatePermanentIDs reports permanent ids carried by more than
// one issue file, which should never happen
// since the file name is derived from the id itself; this check exists
// as a structural sanity net against a corrupted mapping or copy error.
func CheckDuplicatePermanentIDs(_ context.Context, dc Context, _ bool) DiagnosticResult {
	root := dataSyncRoot(dc)
	issues, err := store.List(root)
	if err != nil {
		return DiagnosticResult{Name: "duplicate permanent ids", Status: StatusError, Message: "could not list issues", Details: err.Error()}
	}
	seen := make(map[string]bool, len(issues))
	var dupes []string
	for _, i := range issues {
		if seen[i.ID] {
			dupes = append(dupes, i.ID)
		}
		seen[i.ID] = true
	}
	if len(dupes) > 0 {
		return DiagnosticResult{
			Name:    "duplicate permanent ids",
			Status:  StatusError,
			Message: fmt.Sprintf("%d duplicate id(s)", len(dupes)),
			Details: fmt.Sprintf("%v", dupes),
		}
	}
	return DiagnosticResult{Name: "duplicate permanent ids", Status: StatusOK, Message: "no duplicates"}
}

// CheckOrphanTempFiles reports .tmp siblings left by a crashed writer
// (spec.md §4.2), fixing them with store.SweepTempFiles when fix is set.
func CheckOrphanTempFiles(_ context.Context, dc Context, fix bool) DiagnosticResult {
	root := dataSyncRoot(dc)
	orphans, err := store.OrphanTempFiles(root)
	if err != nil {
		return DiagnosticResult{Name: "orphan temp files", Status: StatusError, Message: "could not scan for .tmp files", Details: err.Error()}
	}
	if len(orphans) == 0 {
		return DiagnosticResult{Name: "orphan temp files", Status: StatusOK, Message: "none found"}
	}
	if fix {
		n, err := store.SweepTempFiles(root)
		if err != nil {
			return DiagnosticResult{Name: "orphan temp files", Status: StatusError, Message: "sweep failed", Details: err.Error()}
		}
		return DiagnosticResult{Name: "orphan temp files", Status: StatusOK, Message: fmt.Sprintf("removed %d orphan temp file(s)", n)}
	}
	return DiagnosticResult{
		Name:       "orphan temp files",
		Status:     StatusWarn,
		Message:    fmt.Sprintf("%d orphan .tmp file(s) found", len(orphans)),
		Details:    fmt.Sprintf("%v", orphans),
		Fixable:    true,
		Suggestion: "run `tbd doctor --fix`",
	}
}

// CheckIssueFieldValidity runs store.Validate over every issue,
// surfacing the first batch of validation failures.
func CheckIssueFieldValidity(_ context.Context, dc Context, _ bool) DiagnosticResult {
	root := dataSyncRoot(dc)
	issues, err := store.List(root)
	if err != nil {
		return DiagnosticResult{Name: "issue field validity", Status: StatusError, Message: "could not list issues", Details: err.Error()}
	}
	var bad []string
	for _, i := range issues {
		if err := store.Validate(i); err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", i.ID, err))
		}
	}
	if len(bad) > 0 {
		return DiagnosticResult{
			Name:    "issue field validity",
			Status:  StatusError,
			Message: fmt.Sprintf("%d issue(s) fail validation", len(bad)),
			Details: fmt.Sprintf("%v", bad),
		}
	}
	return DiagnosticResult{Name: "issue field validity", Status: StatusOK, Message: fmt.Sprintf("%d issue(s) valid", len(issues))}
}

// dataSyncRoot resolves where issues currently live: the worktree's
// data-sync root when a manager is configured, else the tbd root itself
// (tests exercising store checks in isolation).
func dataSyncRoot(dc Context) string {
	if dc.Manager == nil {
		return dc.TbdRoot
	}
	return dc.Manager.DataSyncRoot()
}
