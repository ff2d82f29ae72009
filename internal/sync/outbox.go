package sync

import (
	"context"
	"fmt"

	"github.com/jlevy/tbd/internal/gitx"
	"github.com/jlevy/tbd/internal/mapping"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/types"
	"github.com/jlevy/tbd/internal/workspace"
)

// importOutbox implements spec.md §4.5's "Two-phase outbox import":
// issues saved to the outbox workspace by a prior permanent-push-failure
// recovery are written into the worktree, committed, and pushed again.
// The outbox is deleted only once the push actually lands, so a second
// failure leaves the recovery data intact for the next attempt.
func (e *Engine) importOutbox(ctx context.Context, wt *gitx.Client) (bool, error) {
	present, err := workspace.Exists(e.TbdRoot, workspace.OutboxName)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}

	issues, err := workspace.Load(e.TbdRoot, workspace.OutboxName)
	if err != nil {
		return false, err
	}

	for _, issue := range issues {
		if err := store.Write(wt.Dir, issue); err != nil {
			return false, err
		}
	}

	presentIDs, err := e.presentIssueIDs(ctx, wt)
	if err != nil {
		return false, err
	}
	mapPath := wt.Dir + "/" + mapping.FileName
	m, err := mapping.Load(mapPath)
	if err != nil {
		return false, err
	}
	if changed := m.Reconcile(presentIDs, e.historicalLookup(ctx, wt)); len(changed) > 0 {
		if err := m.Save(mapPath); err != nil {
			return false, err
		}
	}

	statuses, err := wt.Status(ctx)
	if err != nil {
		return false, err
	}
	if len(statuses) == 0 {
		// The worktree already carried this data (e.g. it arrived via
		// the merge that just ran); nothing new to push, so the outbox
		// is redundant.
		return false, workspace.Clear(e.TbdRoot, workspace.OutboxName)
	}

	if err := wt.AddAll(ctx); err != nil {
		return false, err
	}
	msg := fmt.Sprintf("tbd sync: import outbox (%d issue(s))", len(issues))
	if err := wt.Commit(ctx, msg, true); err != nil {
		return false, err
	}

	remoteRef := e.Remote + "/" + e.Branch
	pushErr := wt.PushWithRetry(ctx, e.Remote, e.Branch, func(ctx context.Context) (int, error) {
		conflicts, _, err := e.mergeRemote(ctx, wt, remoteRef)
		return len(conflicts), err
	})
	if pushErr != nil {
		// Preserve the outbox: the next sync attempt will retry the
		// import instead of losing this recovery data.
		return false, pushErr
	}

	if err := workspace.Clear(e.TbdRoot, workspace.OutboxName); err != nil {
		return false, err
	}
	return true, nil
}

// autoSaveOutbox implements spec.md §4.5 step 8: on a permanent push
// failure, every issue modified since the last successful sync is
// merged into the outbox workspace so a later `tbd sync` can retry
// delivery without the user having to manually recover anything. The
// worktree's mapping is snapshotted alongside, keeping the outbox
// self-contained. The returned error is non-nil only if the save
// itself fails; the triggering push failure is reported separately by
// the caller.
func (e *Engine) autoSaveOutbox(ctx context.Context, wt *gitx.Client) error {
	issues, err := store.List(wt.Dir)
	if err != nil {
		return err
	}
	since := LoadLastSyncAt(e.TbdRoot)
	var modified []*types.Issue
	for _, issue := range issues {
		if since.IsZero() || issue.UpdatedAt.After(since) {
			modified = append(modified, issue)
		}
	}
	if _, err := workspace.SaveMerge(e.TbdRoot, workspace.OutboxName, modified); err != nil {
		return err
	}
	m, err := mapping.Load(wt.Dir + "/" + mapping.FileName)
	if err != nil {
		return err
	}
	return workspace.SaveMapping(e.TbdRoot, workspace.OutboxName, m)
}
