package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jlevy/tbd/internal/terrors"
	"github.com/jlevy/tbd/internal/types"
)

const (
	issuesSubdir = "issues"
	fileExt      = ".md"
	tmpSuffix    = ".tmp"
)

// IssuesDir returns the issues directory under a data-sync root.
func IssuesDir(dataSyncRoot string) string {
	return filepath.Join(dataSyncRoot, issuesSubdir)
}

// PathFor returns the file path for an issue id under a data-sync root.
func PathFor(dataSyncRoot, id string) string {
	return filepath.Join(IssuesDir(dataSyncRoot), id+fileExt)
}

// Read loads and parses a single issue by id. A missing file is reported
// as a typed NotFound error; a malformed file surfaces Parse's
// Validation error unchanged so the caller sees exactly what is wrong.
func Read(dataSyncRoot, id string) (*types.Issue, error) {
	path := PathFor(dataSyncRoot, id)
	data, err := os.ReadFile(path) // #nosec G304 -- path built from validated id + worktree root
	if os.IsNotExist(err) {
		return nil, terrors.NotFound(fmt.Sprintf("issue %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Write serializes and atomically replaces an issue's file: write to a
// sibling <id>.md.tmp, fsync, then rename. A reader never observes a
// half-written file (spec.md §4.2); a crash leaves at most one
// sweepable .tmp.
func Write(dataSyncRoot string, issue *types.Issue) error {
	dir := IssuesDir(dataSyncRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	text, err := Serialize(issue)
	if err != nil {
		return err
	}
	final := PathFor(dataSyncRoot, issue.ID)
	tmp := final + tmpSuffix

	// #nosec G306 -- issue files are not sensitive, 0644 is the repo convention
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return err
	}
	f, err := os.OpenFile(tmp, os.O_RDWR, 0o644) // #nosec G304 -- tmp is our own just-written file
	if err == nil {
		_ = f.Sync()
		_ = f.Close()
	}
	return os.Rename(tmp, final)
}

// List enumerates every issue under a data-sync root, skipping .tmp
// siblings. A single malformed issue file fails the whole call with a
// typed error naming the offending id, rather than silently dropping it.
func List(dataSyncRoot string) ([]*types.Issue, error) {
	dir := IssuesDir(dataSyncRoot)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var issues []*types.Issue
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, tmpSuffix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- name from ReadDir of a trusted directory
		if err != nil {
			return nil, err
		}
		issue, err := Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		issues = append(issues, issue)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })
	return issues, nil
}

// OrphanTempFiles returns the paths of .tmp siblings left by a crashed
// writer, for doctor's temp-file sweep check.
func OrphanTempFiles(dataSyncRoot string) ([]string, error) {
	dir := IssuesDir(dataSyncRoot)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), tmpSuffix) {
			orphans = append(orphans, filepath.Join(dir, e.Name()))
		}
	}
	return orphans, nil
}

// SweepTempFiles deletes every orphan .tmp file, used by `doctor --fix`.
func SweepTempFiles(dataSyncRoot string) (int, error) {
	orphans, err := OrphanTempFiles(dataSyncRoot)
	if err != nil {
		return 0, err
	}
	for _, path := range orphans {
		if err := os.Remove(path); err != nil {
			return 0, err
		}
	}
	return len(orphans), nil
}
