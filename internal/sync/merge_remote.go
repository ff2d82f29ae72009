package sync

import (
	"context"
	"fmt"
	"os"

	"github.com/jlevy/tbd/internal/attic"
	"github.com/jlevy/tbd/internal/gitx"
	"github.com/jlevy/tbd/internal/mapping"
	"github.com/jlevy/tbd/internal/merge"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/terrors"
	"github.com/jlevy/tbd/internal/types"
)

// mergeRemote implements spec.md §4.5 step 4: attempt a plain git merge
// of remoteRef into the worktree; on a clean merge, just reconcile the
// mapping; on conflict, fall back to field-level merge per issue.
func (e *Engine) mergeRemote(ctx context.Context, wt *gitx.Client, remoteRef string) ([]attic.Entry, bool, error) {
	mergeErr := wt.Merge(ctx, remoteRef)
	if mergeErr == nil {
		changed, err := e.reconcileMappings(ctx, wt)
		return nil, changed, err
	}

	conflictFiles, grepErr := wt.GrepConflictMarkers(ctx)
	if grepErr != nil {
		return nil, false, grepErr
	}
	if len(conflictFiles) == 0 {
		// Merge failed for a reason other than content conflicts (bad
		// ref, dirty tree, ...): this is not the field-merge path.
		return nil, false, terrors.SyncTransient("merge failed", mergeErr)
	}

	conflicts, err := e.fieldMergeConflicts(ctx, wt, remoteRef)
	if err != nil {
		return nil, false, err
	}
	return conflicts, true, nil
}

// reconcileMappings restores missing mapping entries for every issue
// file present in the worktree, preferring short ids recovered from the
// remote's historical mapping, and commits the mapping file if anything
// changed. It runs on every sync round (spec.md §4.3), both after a
// clean merge and on the nothing-to-merge path.
func (e *Engine) reconcileMappings(ctx context.Context, wt *gitx.Client) (bool, error) {
	mapPath := wt.Dir + "/" + mapping.FileName
	m, err := mapping.Load(mapPath)
	if err != nil {
		return false, err
	}
	ids, err := e.presentIssueIDs(ctx, wt)
	if err != nil {
		return false, err
	}
	changed := m.Reconcile(ids, e.historicalLookup(ctx, wt))
	if len(changed) == 0 {
		return false, nil
	}
	if err := m.Save(mapPath); err != nil {
		return false, err
	}
	if err := wt.AddAll(ctx); err != nil {
		return false, err
	}
	msg := fmt.Sprintf("tbd sync: reconcile %d missing ID mapping(s)", len(changed))
	if err := wt.Commit(ctx, msg, true); err != nil {
		return false, err
	}
	return true, nil
}

// fieldMergeConflicts implements spec.md §4.5 step 4d: for every local
// issue, read the remote copy via `git show`; where present, run the
// field-level merge and write the result; accumulate attic entries;
// merge the two mapping files; reconcile remaining unmapped ids; guard
// against surviving conflict markers before committing.
//
// The working tree is mid-conflict here, so conflicted issue files
// carry textual markers and cannot be parsed from disk. The local side
// is instead read from HEAD: step 2 committed all pending worktree
// changes before the fetch, so HEAD is exactly the local state.
func (e *Engine) fieldMergeConflicts(ctx context.Context, wt *gitx.Client, remoteRef string) ([]attic.Entry, error) {
	now := e.Now()
	localPaths, err := wt.LsTreeNames(ctx, "HEAD", "issues")
	if err != nil {
		return nil, err
	}

	var allConflicts []attic.Entry
	for _, relPath := range localPaths {
		localContent, found, err := wt.Show(ctx, "HEAD", relPath)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		local, err := store.Parse(localContent)
		if err != nil {
			return nil, fmt.Errorf("parsing local copy of %s: %w", relPath, err)
		}

		content, found, err := wt.Show(ctx, remoteRef, relPath)
		if err != nil {
			return nil, err
		}
		if !found {
			continue // only local has this issue; its content stands as-is
		}
		remoteIssue, err := store.Parse(content)
		if err != nil {
			return nil, fmt.Errorf("parsing remote copy of %s: %w", local.ID, err)
		}

		ancestorIssue := e.readAncestor(ctx, wt, remoteRef, relPath)

		result := merge.Merge(ancestorIssue, local, remoteIssue, now)
		if err := store.Write(wt.Dir, result.Issue); err != nil {
			return nil, err
		}
		allConflicts = append(allConflicts, result.Conflicts...)
	}

	if err := e.mergeMappingsAfterConflict(ctx, wt, remoteRef); err != nil {
		return nil, err
	}

	if _, err := attic.WriteAll(wt.Dir, allConflicts); err != nil {
		return nil, err
	}

	if err := wt.AddAll(ctx); err != nil {
		return nil, err
	}
	remaining, err := wt.GrepConflictMarkers(ctx)
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return nil, terrors.Bug("conflict markers survived staging", remaining)
	}
	if err := wt.Commit(ctx, "tbd sync: resolved merge conflicts", true); err != nil {
		return nil, err
	}
	return allConflicts, nil
}

// readAncestor finds the merge-base content of an issue file, if any.
// A missing ancestor (the issue did not exist there, or the merge-base
// itself cannot be resolved) is reported as nil, which merge.Merge
// treats conservatively as "every differing field is a conflict".
func (e *Engine) readAncestor(ctx context.Context, wt *gitx.Client, remoteRef, relPath string) *types.Issue {
	base, err := wt.Run(ctx, "merge-base", "HEAD", remoteRef)
	if err != nil || base == "" {
		return nil
	}
	content, found, err := wt.Show(ctx, base, relPath)
	if err != nil || !found {
		return nil
	}
	issue, err := store.Parse(content)
	if err != nil {
		return nil
	}
	return issue
}

func (e *Engine) mergeMappingsAfterConflict(ctx context.Context, wt *gitx.Client, remoteRef string) error {
	// Both sides are read from their committed refs: the on-disk mapping
	// file may be conflict-marked at this point.
	local, err := e.mappingAtRef(ctx, wt, "HEAD")
	if err != nil {
		return err
	}
	remote, err := e.mappingAtRef(ctx, wt, remoteRef)
	if err != nil {
		return err
	}

	merged := mapping.Merge(local, remote)

	ids, err := e.presentIssueIDs(ctx, wt)
	if err != nil {
		return err
	}
	merged.Reconcile(ids, e.historicalLookup(ctx, wt))

	return merged.Save(wt.Dir + "/" + mapping.FileName)
}

// mappingAtRef parses the mapping file as committed at ref, returning
// an empty mapping when the file does not exist there.
func (e *Engine) mappingAtRef(ctx context.Context, wt *gitx.Client, ref string) (*mapping.Mapping, error) {
	content, found, err := wt.Show(ctx, ref, mapping.FileName)
	if err != nil {
		return nil, err
	}
	if !found {
		return mapping.New(), nil
	}
	tmp := writeTempFile(content)
	defer os.Remove(tmp)
	return mapping.Load(tmp)
}
