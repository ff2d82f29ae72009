// Package worktree owns the data-plane worktree: an auxiliary git
// working tree attached to the sync branch, its lifecycle, health
// classification, and repair (spec.md §4.4).
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlevy/tbd/internal/gitx"
	"github.com/jlevy/tbd/internal/terrors"
)

// RelPath is the worktree's fixed location relative to the tbd root
// (spec.md §3, "Worktree").
const RelPath = "data-sync-worktree"

// DataSyncSubdir is the subdirectory inside the worktree (and inside the
// tbd root, for the pre-worktree fallback path) where issues, mappings,
// and the attic live.
const DataSyncSubdir = "data-sync"

// Status classifies the worktree's health (spec.md §4.4).
// StatusWrongBranch splits the lightweight case out of corrupted: the
// directory is a healthy registered worktree whose HEAD resolves, it is
// just detached or on the wrong branch, and a plain checkout
// (EnsureAttached) fixes it without a backup-and-reinit.
type Status int

const (
	StatusValid Status = iota
	StatusMissing
	StatusPrunable
	StatusWrongBranch
	StatusCorrupted
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusMissing:
		return "missing"
	case StatusPrunable:
		return "prunable"
	case StatusWrongBranch:
		return "wrong-branch"
	case StatusCorrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// Manager owns the worktree at a fixed path under tbdRoot, attached to
// syncBranch, using client to run git against the main repository.
type Manager struct {
	TbdRoot    string
	SyncBranch string
	Remote     string
	Client     *gitx.Client // rooted at the main repository
}

// New builds a Manager. client must be rooted at the main repository
// (not the worktree), since worktree add/remove/prune are run from there.
func New(tbdRoot, syncBranch, remote string, client *gitx.Client) *Manager {
	return &Manager{TbdRoot: tbdRoot, SyncBranch: syncBranch, Remote: remote, Client: client}
}

// Path returns the worktree's directory.
func (m *Manager) Path() string {
	return filepath.Join(m.TbdRoot, RelPath)
}

// DataSyncRoot returns the directory that storage and mapping resolve
// issues and ids.yml under, when the worktree is valid: the worktree
// root itself, which is what the sync engine reads and writes (the
// worktree's entire tracked tree IS the data-sync root; DataSyncSubdir
// only names the equivalent location under the pre-worktree fallback
// path, see FallbackDataSyncRoot).
func (m *Manager) DataSyncRoot() string {
	return m.Path()
}

// FallbackDataSyncRoot is the non-worktree location issues may have been
// written to before the worktree existed (spec.md §4.4,
// migrate_data_to_worktree).
func (m *Manager) FallbackDataSyncRoot() string {
	return filepath.Join(m.TbdRoot, DataSyncSubdir)
}

// Classify probes the worktree's directory and git's worktree registry
// to determine its Status.
func (m *Manager) Classify(ctx context.Context) (Status, error) {
	path := m.Path()
	_, statErr := os.Stat(path)
	dirExists := statErr == nil

	entries, err := m.Client.WorktreeList(ctx)
	if err != nil {
		return StatusCorrupted, err
	}
	var registered bool
	for _, e := range entries {
		if samePath(e.Path, path) {
			registered = true
			break
		}
	}

	switch {
	case !dirExists && !registered:
		return StatusMissing, nil
	case !dirExists && registered:
		return StatusPrunable, nil
	case dirExists && !registered:
		return StatusCorrupted, nil
	}

	wtClient := gitx.New(path)
	branch, err := wtClient.CurrentBranch(ctx)
	if err != nil || strings.TrimSpace(branch) == "" {
		return StatusCorrupted, nil
	}
	if _, err := wtClient.RevParse(ctx, "HEAD"); err != nil {
		return StatusCorrupted, nil
	}
	if branch != m.SyncBranch {
		// Covers a detached HEAD too, where CurrentBranch yields "HEAD".
		return StatusWrongBranch, nil
	}
	return StatusValid, nil
}

func samePath(a, b string) bool {
	pa, errA := filepath.Abs(a)
	pb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return pa == pb
}

// EnsureAttached re-attaches the worktree to SyncBranch if it currently
// points at the wrong branch or is detached.
func (m *Manager) EnsureAttached(ctx context.Context) error {
	path := m.Path()
	wtClient := gitx.New(path)
	branch, err := wtClient.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if branch == m.SyncBranch {
		return nil
	}
	_, err = wtClient.Run(ctx, "checkout", m.SyncBranch)
	return err
}

// Init creates SyncBranch if it does not exist (as an empty orphan
// commit), adds the worktree, and verifies its health.
func (m *Manager) Init(ctx context.Context) error {
	if !m.Client.BranchExists(ctx, m.SyncBranch) {
		adopted, err := m.adoptRemoteBranch(ctx)
		if err != nil {
			return fmt.Errorf("adopting existing sync branch from remote: %w", err)
		}
		if !adopted {
			// Creating an orphan branch checks out the branch in the main
			// repo's working copy; we isolate the index so this never
			// disturbs the user's staged changes (spec.md §4.1, §5).
			if err := m.Client.WithIsolatedIndex(func(ctx context.Context) error {
				return m.Client.CreateEmptyBranch(ctx, m.SyncBranch,
					fmt.Sprintf("tbd sync: initialize %s", m.SyncBranch))
			}); err != nil {
				return fmt.Errorf("creating sync branch: %w", err)
			}
			// Return to the branch the user had checked out before we
			// borrowed the working copy for the orphan commit.
			if prev, err := m.Client.Run(ctx, "rev-parse", "--abbrev-ref", "@{-1}"); err == nil && prev != "" {
				_, _ = m.Client.Run(ctx, "checkout", prev)
			}
		}
	}

	path := m.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := m.Client.WorktreeAdd(ctx, path, m.SyncBranch); err != nil {
		return fmt.Errorf("adding worktree: %w", err)
	}

	status, err := m.Classify(ctx)
	if err != nil {
		return err
	}
	if status != StatusValid {
		return terrors.WorktreeCorrupted(path)
	}
	return nil
}

// adoptRemoteBranch creates the local sync branch from the remote's copy
// when the remote already has it, so a second clone joins the existing
// sync history instead of starting an unrelated orphan branch of its own
// (spec.md §4.4). It returns false, nil when the remote has no such
// branch (including "no remote configured yet"), signaling the caller to
// fall back to orphan creation.
func (m *Manager) adoptRemoteBranch(ctx context.Context) (bool, error) {
	if _, err := m.Client.Run(ctx, "fetch", m.Remote, m.SyncBranch); err != nil {
		return false, nil
	}
	if _, err := m.Client.Run(ctx, "branch", m.SyncBranch, "FETCH_HEAD"); err != nil {
		return false, err
	}
	return true, nil
}

// Repair routes to the appropriate recovery path for a non-valid status
// (spec.md §4.4). It returns the path of any corrupted-directory backup
// it created, so the caller can migrate stray issue data out of it.
func (m *Manager) Repair(ctx context.Context, status Status) (backupPath string, err error) {
	switch status {
	case StatusValid:
		return "", nil
	case StatusWrongBranch:
		return "", m.EnsureAttached(ctx)
	case StatusMissing:
		return "", m.Init(ctx)
	case StatusPrunable:
		if err := m.Client.WorktreePrune(ctx); err != nil {
			return "", err
		}
		return "", m.Init(ctx)
	case StatusCorrupted:
		path := m.Path()
		backup := fmt.Sprintf("%s.corrupted-%s", path, time.Now().UTC().Format("20060102T150405Z"))
		if _, statErr := os.Stat(path); statErr == nil {
			if err := os.Rename(path, backup); err != nil {
				return "", err
			}
		} else {
			backup = ""
		}
		_, _ = m.Client.Run(ctx, "worktree", "remove", path, "--force")
		_ = m.Client.WorktreePrune(ctx)
		if err := m.Init(ctx); err != nil {
			return backup, err
		}
		return backup, nil
	default:
		return "", fmt.Errorf("unknown worktree status %v", status)
	}
}
