// Package gitx is the narrow typed surface over the git binary that
// every other component goes through (spec.md §4.1). No package outside
// gitx invokes `exec.Command("git", ...)` directly.
package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Client runs git commands rooted at Dir (a repository root or a
// worktree directory — both are valid git command contexts).
type Client struct {
	Dir string
}

// New returns a Client rooted at dir.
func New(dir string) *Client {
	return &Client{Dir: dir}
}

// Run is the pure subprocess primitive: git(args...) -> trimmed stdout.
// stderr is attached to the returned error so classification (see
// classify.go) always has the text it needs.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	return runIn(ctx, c.Dir, args...)
}

// RunIn runs git in an explicit directory, independent of c.Dir. Used
// when a single Client needs to touch both the main checkout and the
// worktree in one call sequence.
func (c *Client) RunIn(ctx context.Context, dir string, args ...string) (string, error) {
	return runIn(ctx, dir, args...)
}

func runIn(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return strings.TrimSpace(stdout.String()), &RunError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RunError wraps a failed git invocation with the args and stderr text,
// which classify.go pattern-matches against.
type RunError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, e.Stderr)
}

func (e *RunError) Unwrap() error { return e.Err }

// CurrentBranch returns the checked-out branch name of c.Dir.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	return c.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// GitRoot returns the top-level working directory of c.Dir's repository.
func (c *Client) GitRoot(ctx context.Context) (string, error) {
	return c.Run(ctx, "rev-parse", "--show-toplevel")
}

// IsInRepo reports whether c.Dir is inside a git repository.
func (c *Client) IsInRepo(ctx context.Context) bool {
	_, err := c.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// VersionInfo is the parsed result of `git --version`.
type VersionInfo struct {
	Major, Minor, Patch int
	Supported           bool
}

// MinSupportedVersion is the pinned floor from spec.md §4.1.
var MinSupportedVersion = VersionInfo{Major: 2, Minor: 20, Patch: 0}

// CheckVersion parses the installed git's version and reports whether it
// meets MinSupportedVersion.
func (c *Client) CheckVersion(ctx context.Context) (VersionInfo, error) {
	out, err := c.Run(ctx, "--version")
	if err != nil {
		return VersionInfo{}, err
	}
	return parseVersion(out)
}

func parseVersion(out string) (VersionInfo, error) {
	fields := strings.Fields(out)
	for _, f := range fields {
		parts := strings.SplitN(f, ".", 3)
		if len(parts) < 2 {
			continue
		}
		major, err1 := strconv.Atoi(firstDigits(parts[0]))
		minor, err2 := strconv.Atoi(firstDigits(parts[1]))
		if err1 != nil || err2 != nil {
			continue
		}
		patch := 0
		if len(parts) == 3 {
			patch, _ = strconv.Atoi(firstDigits(parts[2]))
		}
		v := VersionInfo{Major: major, Minor: minor, Patch: patch}
		v.Supported = meetsMinimum(v, MinSupportedVersion)
		return v, nil
	}
	return VersionInfo{}, fmt.Errorf("could not parse git version from %q", out)
}

func firstDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

func meetsMinimum(v, min VersionInfo) bool {
	if v.Major != min.Major {
		return v.Major > min.Major
	}
	if v.Minor != min.Minor {
		return v.Minor > min.Minor
	}
	return v.Patch >= min.Patch
}

// WithIsolatedIndex runs fn with GIT_INDEX_FILE pointed at a temporary
// path for the duration of the call, restoring the prior environment on
// every exit path, so main-branch operations on data-sync state never
// perturb the user's staged changes (spec.md §4.1, §5).
func (c *Client) WithIsolatedIndex(fn func(ctx context.Context) error) error {
	return c.withIsolatedIndexCtx(context.Background(), fn)
}

func (c *Client) withIsolatedIndexCtx(ctx context.Context, fn func(ctx context.Context) error) error {
	// git rejects an existing zero-byte index file, so the index path
	// lives in a fresh directory and git creates the file itself.
	dir, err := os.MkdirTemp("", "tbd-index-*")
	if err != nil {
		return err
	}
	tmpPath := filepath.Join(dir, "index")
	defer os.RemoveAll(dir) // #nosec G104 -- best-effort cleanup of a scratch temp dir

	prior, hadPrior := os.LookupEnv("GIT_INDEX_FILE")
	if err := os.Setenv("GIT_INDEX_FILE", tmpPath); err != nil {
		return err
	}
	defer func() {
		if hadPrior {
			_ = os.Setenv("GIT_INDEX_FILE", prior)
		} else {
			_ = os.Unsetenv("GIT_INDEX_FILE")
		}
	}()

	return fn(ctx)
}

// HooksDir returns the git hooks directory for c.Dir, worktree-aware
// (hooks live in the common git dir, not a per-worktree one), adapted
// from the teacher's internal/git.GetGitHooksDir.
func (c *Client) HooksDir(ctx context.Context) (string, error) {
	gitDir, err := c.Run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(c.Dir, gitDir)
	}
	return filepath.Join(gitDir, "hooks"), nil
}
