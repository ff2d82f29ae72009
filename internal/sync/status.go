package sync

import (
	"context"
	"strconv"

	"github.com/jlevy/tbd/internal/gitx"
)

// remoteLogCap bounds how many remote-only commit summaries Status
// reports, per spec.md §4.5 "Status reporting" ("up to a cap").
const remoteLogCap = 20

// Status is a read-only summary of sync state: ahead/behind counts,
// local worktree changes, and a capped log of remote-only commits. It
// fetches the remote sync branch to compute them, which updates only the
// remote-tracking ref; it performs no merge, commit, or push — only the
// main Sync path changes the sync branch or the worktree.
type Status struct {
	Ahead        int
	Behind       int
	LocalChanges []string // porcelain paths with pending local changes
	RemoteLog    []string // one-line summaries, newest first, capped
}

// Status implements `sync --status` (spec.md §4.5). It does not acquire
// the sync lock: apart from that fetch it only reads, so it can run
// concurrently with an in-progress sync without interfering.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	wt := e.worktreeClient()

	local, err := wt.Status(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(local))
	for _, s := range local {
		paths = append(paths, s.Path)
	}

	remoteExists := true
	if err := wt.Fetch(ctx, e.Remote, e.Branch); err != nil {
		if !isUnbornRemoteRef(gitx.ErrText(err)) {
			return nil, err
		}
		remoteExists = false
	}
	remoteRef := e.Remote + "/" + e.Branch

	if !remoteExists {
		out, err := wt.Run(ctx, "rev-list", "--count", e.Branch)
		if err != nil {
			return nil, err
		}
		ahead, convErr := strconv.Atoi(out)
		if convErr != nil {
			return nil, convErr
		}
		return &Status{Ahead: ahead, LocalChanges: paths}, nil
	}

	ahead, err := wt.RevListCount(ctx, remoteRef, e.Branch)
	if err != nil {
		return nil, err
	}
	behind, err := wt.RevListCount(ctx, e.Branch, remoteRef)
	if err != nil {
		return nil, err
	}

	remoteLog, err := wt.LogOneline(ctx, e.Branch, remoteRef, remoteLogCap)
	if err != nil {
		return nil, err
	}

	return &Status{
		Ahead:        ahead,
		Behind:       behind,
		LocalChanges: paths,
		RemoteLog:    remoteLog,
	}, nil
}
