package gitx

import (
	"context"
	"strconv"
	"strings"
)

// FileStatus is one line of `git status --porcelain` output.
type FileStatus struct {
	// Code is the two-letter porcelain status code, e.g. "A ", " M", "??".
	Code string
	Path string
}

// IsNew, IsModified, IsDeleted classify a porcelain code for the file
// tallies the sync engine reports after committing pending changes
// (spec.md §4.5 step 2).
func (s FileStatus) IsNew() bool      { return strings.Contains(s.Code, "A") || s.Code == "??" }
func (s FileStatus) IsModified() bool { return strings.Contains(s.Code, "M") }
func (s FileStatus) IsDeleted() bool  { return strings.Contains(s.Code, "D") }

// Status runs `git status --porcelain` and parses it into FileStatus
// entries.
func (c *Client) Status(ctx context.Context) ([]FileStatus, error) {
	out, err := c.Run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var statuses []FileStatus
	for i, line := range strings.Split(out, "\n") {
		// Run trims its output, which drops the leading space of a first
		// entry such as " M path"; restore it before slicing.
		if i == 0 && len(line) > 2 && line[1] == ' ' && line[2] != ' ' {
			line = " " + line
		}
		if len(line) < 4 {
			continue
		}
		statuses = append(statuses, FileStatus{Code: line[:2], Path: strings.TrimSpace(line[3:])})
	}
	return statuses, nil
}

// AddAll stages every change (`git add -A`).
func (c *Client) AddAll(ctx context.Context) error {
	_, err := c.Run(ctx, "add", "-A")
	return err
}

// Commit creates a commit with message, optionally bypassing user hooks
// with --no-verify (spec.md §4.5 step 4d, §5 "Hooks bypass").
func (c *Client) Commit(ctx context.Context, message string, noVerify bool) error {
	args := []string{"commit", "-m", message}
	if noVerify {
		args = append(args, "--no-verify")
	}
	_, err := c.Run(ctx, args...)
	return err
}

// Merge merges ref into the current branch of c.Dir.
func (c *Client) Merge(ctx context.Context, ref string) error {
	_, err := c.Run(ctx, "merge", ref, "--no-edit")
	return err
}

// MergeAbort aborts an in-progress merge, used when a resumed sync finds
// conflict markers it decides not to complete (spec.md §5,
// "Cancellation & timeouts").
func (c *Client) MergeAbort(ctx context.Context) error {
	_, err := c.Run(ctx, "merge", "--abort")
	return err
}

// RevParse resolves a ref to a commit hash.
func (c *Client) RevParse(ctx context.Context, ref string) (string, error) {
	return c.Run(ctx, "rev-parse", ref)
}

// RevListCount returns the number of commits reachable from `to` but not
// `from` (`git rev-list --count from..to`), used for ahead/behind counts.
func (c *Client) RevListCount(ctx context.Context, from, to string) (int, error) {
	out, err := c.Run(ctx, "rev-list", "--count", from+".."+to)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

// DiffNameStatus returns the name-status diff between two refs.
func (c *Client) DiffNameStatus(ctx context.Context, from, to string) ([]FileStatus, error) {
	out, err := c.Run(ctx, "diff", "--name-status", from, to)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var statuses []FileStatus
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		statuses = append(statuses, FileStatus{Code: fields[0], Path: fields[1]})
	}
	return statuses, nil
}

// LogOneline returns up to max one-line summaries of commits reachable
// from `to` but not `from`, newest first, used for the capped remote-
// changes log in `sync --status` (spec.md §4.5 "Status reporting").
func (c *Client) LogOneline(ctx context.Context, from, to string, max int) ([]string, error) {
	out, err := c.Run(ctx, "log", "--oneline", "-n", strconv.Itoa(max), from+".."+to)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Show reads path as it exists at ref (`git show ref:path`), returning
// (content, found). A missing path at that ref is not an error: found
// is simply false, matching how the sync engine probes "does the remote
// have this issue" without special-casing git's exit status.
func (c *Client) Show(ctx context.Context, ref, path string) (content string, found bool, err error) {
	out, runErr := c.Run(ctx, "show", ref+":"+path)
	if runErr != nil {
		if re, ok := runErr.(*RunError); ok {
			if strings.Contains(re.Stderr, "exists on disk, but not in") ||
				strings.Contains(re.Stderr, "does not exist") {
				return "", false, nil
			}
		}
		return "", false, runErr
	}
	return out, true, nil
}

// LsTreeNames lists the tracked file paths under dir as of ref
// (`git ls-tree -r --name-only ref dir`). A dir absent at that ref
// yields an empty list, not an error.
func (c *Client) LsTreeNames(ctx context.Context, ref, dir string) ([]string, error) {
	out, err := c.Run(ctx, "ls-tree", "-r", "--name-only", ref, dir)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Fetch fetches branch from remote.
func (c *Client) Fetch(ctx context.Context, remote, branch string) error {
	_, err := c.Run(ctx, "fetch", remote, branch)
	return err
}

// Push pushes branch to remote.
func (c *Client) Push(ctx context.Context, remote, branch string) error {
	_, err := c.Run(ctx, "push", remote, branch)
	return err
}

// GrepConflictMarkers scans the tracked files of the working tree for
// unresolved conflict markers. It is the merge guard in spec.md §4.5
// step 4d, run after staging and before a field-merge commit is allowed,
// and it also detects a conflicted merge while the index is unmerged.
func (c *Client) GrepConflictMarkers(ctx context.Context) ([]string, error) {
	out, err := c.Run(ctx, "grep", "-l", "^<<<<<<< ")
	if err != nil {
		if re, ok := err.(*RunError); ok && re.Err != nil {
			// grep exits 1 when there are no matches; that's success here.
			if exitCode(re.Err) == 1 {
				return nil, nil
			}
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// WorktreeEntry is one line of `git worktree list --porcelain`.
type WorktreeEntry struct {
	Path   string
	Head   string
	Branch string
}

// WorktreeList lists all registered worktrees.
func (c *Client) WorktreeList(ctx context.Context) ([]WorktreeEntry, error) {
	out, err := c.Run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	var entries []WorktreeEntry
	var cur WorktreeEntry
	flush := func() {
		if cur.Path != "" {
			entries = append(entries, cur)
		}
		cur = WorktreeEntry{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			cur.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(line, "branch ")
		}
	}
	flush()
	return entries, nil
}

// WorktreeAdd attaches a new worktree at path on branch. The branch
// must already exist; worktree.Manager.Init creates it first.
func (c *Client) WorktreeAdd(ctx context.Context, path, branch string) error {
	_, err := c.Run(ctx, "worktree", "add", path, branch)
	return err
}

// WorktreeRemove detaches a worktree registration (the directory itself
// must already be gone or empty for a non-forced remove).
func (c *Client) WorktreeRemove(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove", path}
	if force {
		args = append(args, "--force")
	}
	_, err := c.Run(ctx, args...)
	return err
}

// WorktreePrune removes stale worktree administrative files for
// directories that no longer exist.
func (c *Client) WorktreePrune(ctx context.Context) error {
	_, err := c.Run(ctx, "worktree", "prune")
	return err
}

// BranchExists reports whether branch exists locally.
func (c *Client) BranchExists(ctx context.Context, branch string) bool {
	_, err := c.Run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// CreateEmptyBranch creates branch as an orphan with a single empty
// commit, used by worktree init when the sync branch does not exist yet.
func (c *Client) CreateEmptyBranch(ctx context.Context, branch, message string) error {
	if _, err := c.Run(ctx, "checkout", "--orphan", branch); err != nil {
		return err
	}
	if _, err := c.Run(ctx, "rm", "-rf", "--cached", "."); err != nil {
		return err
	}
	_, err := c.Run(ctx, "commit", "--allow-empty", "-m", message)
	return err
}

func exitCode(err error) int {
	type exitCoder interface{ ExitCode() int }
	if ee, ok := err.(exitCoder); ok {
		return ee.ExitCode()
	}
	return -1
}
