// Package sync implements the pull-merge-push pipeline: the heart of
// the system (spec.md §4.5). It orchestrates the git adapter, storage,
// mapping, field-level merge, attic, and workspace packages to carry out
// a complete sync round, including push retry and outbox recovery.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jlevy/tbd/internal/attic"
	"github.com/jlevy/tbd/internal/gitx"
	"github.com/jlevy/tbd/internal/lockfile"
	"github.com/jlevy/tbd/internal/logging"
	"github.com/jlevy/tbd/internal/mapping"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/terrors"
	"github.com/jlevy/tbd/internal/workspace"
	"github.com/jlevy/tbd/internal/worktree"
)

// Engine coordinates one repository's sync state.
type Engine struct {
	TbdRoot    string
	Branch     string
	Remote     string
	AutoSave   bool // save to outbox on permanent push failure
	MainClient *gitx.Client
	Manager    *worktree.Manager
	Now        func() time.Time // overridable for deterministic tests
	Log        *slog.Logger
}

// New builds an Engine. mainClient must be rooted at the main repository.
func New(tbdRoot, branch, remote string, autoSave bool, mainClient *gitx.Client) *Engine {
	log := logging.New(slog.LevelInfo)
	return &Engine{
		TbdRoot:    tbdRoot,
		Branch:     branch,
		Remote:     remote,
		AutoSave:   autoSave,
		MainClient: mainClient,
		Manager:    worktree.New(tbdRoot, branch, remote, mainClient),
		Now:        time.Now,
		Log:        logging.WithSync(log, branch, remote),
	}
}

// FileTally counts new/updated/deleted files in one direction of change.
type FileTally struct {
	New, Updated, Deleted int
}

// Result is the outcome of a full sync round.
type Result struct {
	Ahead, Behind  int
	LocalChanges   FileTally
	RemoteChanges  FileTally
	Conflicts      []attic.Entry
	MappingChanged bool
	OutboxImported bool
	NoOp           bool // "Already in sync"
	State          string
}

const (
	stateSynced   = "synced"
	stateLostPush = "lost-push"
)

// worktreeClient returns a gitx.Client rooted at the data-plane worktree.
func (e *Engine) worktreeClient() *gitx.Client {
	return gitx.New(e.Manager.Path())
}

// Sync runs the full pull-merge-push pipeline (spec.md §4.5). fix
// permits auto-repair of a prunable/corrupted worktree; without it those
// states fail with a typed error rather than silently repairing
// themselves, per spec.md §4.5 step 1.
func (e *Engine) Sync(ctx context.Context, fix bool) (*Result, error) {
	lock, err := lockfile.TryAcquire(e.TbdRoot, "sync")
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	if err := e.healthGate(ctx, fix); err != nil {
		return nil, err
	}

	wt := e.worktreeClient()
	res := &Result{}

	if err := e.resumeInterruptedMerge(ctx, wt, fix); err != nil {
		return nil, err
	}

	localTally, err := e.commitPendingChanges(ctx, wt)
	if err != nil {
		return nil, err
	}
	res.LocalChanges = localTally

	// The sync branch may not exist on the remote at all yet (the very
	// first sync in a repo's lifetime, before anything has been pushed).
	// Fetching it then fails with "couldn't find remote ref"; that is not
	// a transient network error, just an unborn branch, so treat it as
	// zero commits behind rather than failing the sync.
	remoteExists := true
	if err := wt.Fetch(ctx, e.Remote, e.Branch); err != nil {
		if !isUnbornRemoteRef(gitx.ErrText(err)) {
			return nil, terrors.SyncTransient("fetch failed", err)
		}
		remoteExists = false
	}

	remoteRef := e.Remote + "/" + e.Branch
	var behind int
	if remoteExists {
		b, err := wt.RevListCount(ctx, e.Branch, remoteRef)
		if err != nil {
			return nil, err
		}
		behind = b
	}
	res.Behind = behind

	if behind > 0 {
		remoteTally, err := e.tallyDiff(ctx, wt, e.Branch, remoteRef)
		if err != nil {
			return nil, err
		}
		res.RemoteChanges = remoteTally

		conflicts, mappingChanged, err := e.mergeRemote(ctx, wt, remoteRef)
		if err != nil {
			return nil, err
		}
		res.Conflicts = conflicts
		res.MappingChanged = mappingChanged
		if len(conflicts) > 0 {
			e.Log.Info("resolved field-level conflicts", "count", len(conflicts))
		}
	} else {
		// Reconciliation runs every sync, not only after a merge
		// (spec.md §4.3): a fresh clone that just adopted the remote
		// branch has issue files but possibly no mapping entries.
		changed, err := e.reconcileMappings(ctx, wt)
		if err != nil {
			return nil, err
		}
		res.MappingChanged = changed
	}

	var ahead int
	if remoteExists {
		a, err := wt.RevListCount(ctx, remoteRef, e.Branch)
		if err != nil {
			return nil, err
		}
		ahead = a
	} else {
		out, err := wt.Run(ctx, "rev-list", "--count", e.Branch)
		if err != nil {
			return nil, err
		}
		a, convErr := strconv.Atoi(out)
		if convErr != nil {
			return nil, convErr
		}
		ahead = a
	}
	res.Ahead = ahead

	if ahead == 0 && behind == 0 {
		res.NoOp = true
		res.State = stateSynced
		e.recordSyncSuccess()
		return res, nil
	}

	if ahead > 0 {
		pushErr := wt.PushWithRetry(ctx, e.Remote, e.Branch, func(ctx context.Context) (int, error) {
			conflicts, _, err := e.mergeRemote(ctx, wt, remoteRef)
			return len(conflicts), err
		})
		if pushErr != nil {
			if terrors.Is(pushErr, terrors.KindSyncPermanent) && e.AutoSave {
				e.Log.Warn("push failed permanently; saving to outbox", "error", pushErr)
				if saveErr := e.autoSaveOutbox(ctx, wt); saveErr != nil {
					return nil, saveErr
				}
				res.State = stateLostPush
				var te *terrors.Error
				if errors.As(pushErr, &te) {
					pushErr = te.WithPath(workspace.RelDir(e.TbdRoot, workspace.OutboxName)).
						WithSuggestion("restore push access, then re-run `tbd sync`; the outbox imports automatically")
				}
				return res, pushErr
			}
			e.Log.Warn("push failed", "error", pushErr)
			res.State = stateLostPush
			return res, pushErr
		}

		imported, err := e.importOutbox(ctx, wt)
		if err != nil {
			return nil, err
		}
		res.OutboxImported = imported
	}

	res.State = stateSynced
	e.recordSyncSuccess()
	return res, nil
}

// recordSyncSuccess stamps state.yml with the moment this sync round
// completed, so the next outbox auto-save and workspace save
// --updates-only know the cutoff for "modified since the last
// successful sync". A write failure is logged, not fatal: the sync
// itself already succeeded.
func (e *Engine) recordSyncSuccess() {
	if err := saveLastSyncAt(e.TbdRoot, e.Now()); err != nil {
		e.Log.Warn("could not update state.yml", "error", err)
	}
}

// resumeInterruptedMerge handles a worktree left mid-merge by an
// interrupt (spec.md §5): with fix set, the merge is aborted if
// conflict markers remain, otherwise completed; without fix, the state
// is surfaced rather than silently mutated.
func (e *Engine) resumeInterruptedMerge(ctx context.Context, wt *gitx.Client, fix bool) error {
	if _, err := wt.Run(ctx, "rev-parse", "-q", "--verify", "MERGE_HEAD"); err != nil {
		return nil // no merge in progress
	}
	if !fix {
		return terrors.SyncTransient("a previous merge was interrupted and left the worktree mid-merge", nil).
			WithPath(wt.Dir).
			WithSuggestion("run `tbd sync --fix` to resume or abort it")
	}
	files, err := wt.GrepConflictMarkers(ctx)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		e.Log.Warn("aborting interrupted merge with unresolved conflicts", "files", len(files))
		return wt.MergeAbort(ctx)
	}
	if err := wt.AddAll(ctx); err != nil {
		return err
	}
	return wt.Commit(ctx, "tbd sync: resolved merge conflicts", true)
}

// healthGate reads the worktree's health and either auto-creates a
// missing worktree or, for prunable/corrupted states, requires fix
// (spec.md §4.5 step 1).
func (e *Engine) healthGate(ctx context.Context, fix bool) error {
	status, err := e.Manager.Classify(ctx)
	if err != nil {
		return err
	}
	switch status {
	case worktree.StatusValid:
		return nil
	case worktree.StatusWrongBranch:
		// Detached or on the wrong branch: a plain re-checkout fixes it,
		// no destructive repair and no fix flag required.
		return e.Manager.EnsureAttached(ctx)
	case worktree.StatusMissing:
		return e.Manager.Init(ctx)
	case worktree.StatusPrunable:
		if !fix {
			return terrors.WorktreeMissing(e.Manager.Path()).WithSuggestion("run `tbd sync --fix`")
		}
		_, err := e.Manager.Repair(ctx, status)
		return err
	case worktree.StatusCorrupted:
		if !fix {
			return terrors.WorktreeCorrupted(e.Manager.Path()).WithSuggestion("run `tbd sync --fix`")
		}
		backup, err := e.Manager.Repair(ctx, status)
		if err != nil {
			return err
		}
		if backup != "" {
			if _, migErr := e.Manager.MigrateDataToWorktree(ctx); migErr != nil {
				return migErr
			}
		}
		return nil
	default:
		return fmt.Errorf("unhandled worktree status %v", status)
	}
}

// commitPendingChanges stages and commits any dirty worktree state
// (spec.md §4.5 step 2), returning file-level tallies parsed from the
// porcelain status.
func (e *Engine) commitPendingChanges(ctx context.Context, wt *gitx.Client) (FileTally, error) {
	statuses, err := wt.Status(ctx)
	if err != nil {
		return FileTally{}, err
	}
	if len(statuses) == 0 {
		return FileTally{}, nil
	}

	var tally FileTally
	for _, s := range statuses {
		switch {
		case s.IsDeleted():
			tally.Deleted++
		case s.IsNew():
			tally.New++
		case s.IsModified():
			tally.Updated++
		}
	}

	if err := wt.AddAll(ctx); err != nil {
		return FileTally{}, err
	}
	msg := fmt.Sprintf("tbd sync: %s (%d file(s))", e.Now().UTC().Format(time.RFC3339), len(statuses))
	if err := wt.Commit(ctx, msg, true); err != nil {
		return FileTally{}, err
	}
	return tally, nil
}

func (e *Engine) presentIssueIDs(ctx context.Context, wt *gitx.Client) ([]string, error) {
	issues, err := store.List(wt.Dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.ID)
	}
	return ids, nil
}

// historicalLookup builds a mapping.HistoricalLookup that reads a
// permanent id's historical short id from the remote branch's mapping
// file via `git show` (spec.md §4.3, "consulting a historical mapping
// read from the remote branch").
func (e *Engine) historicalLookup(ctx context.Context, wt *gitx.Client) mapping.HistoricalLookup {
	remoteRef := e.Remote + "/" + e.Branch
	var cached *mapping.Mapping
	return func(id string) (string, bool) {
		if cached == nil {
			content, found, err := wt.Show(ctx, remoteRef, mapping.FileName)
			if err != nil || !found {
				cached = mapping.New()
			} else {
				tmpPath := writeTempFile(content)
				m, parseErr := mapping.Load(tmpPath)
				_ = os.Remove(tmpPath)
				if parseErr != nil {
					cached = mapping.New()
				} else {
					cached = m
				}
			}
		}
		return cached.ShortFor(id)
	}
}

// tallyDiff computes a file-level tally for the diff from..to.
func (e *Engine) tallyDiff(ctx context.Context, wt *gitx.Client, from, to string) (FileTally, error) {
	diffs, err := wt.DiffNameStatus(ctx, from, to)
	if err != nil {
		return FileTally{}, err
	}
	var tally FileTally
	for _, d := range diffs {
		switch {
		case strings.HasPrefix(d.Code, "A"):
			tally.New++
		case strings.HasPrefix(d.Code, "M"):
			tally.Updated++
		case strings.HasPrefix(d.Code, "D"):
			tally.Deleted++
		}
	}
	return tally, nil
}
