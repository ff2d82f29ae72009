package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jlevy/tbd/internal/gitx"
	"github.com/jlevy/tbd/internal/store"
)

// MigrationResult reports what MigrateDataToWorktree moved.
type MigrationResult struct {
	MigratedIssueIDs []string
	BackupPath       string
}

// MigrateDataToWorktree copies issue files discovered at the
// non-worktree fallback path into the worktree, commits them on the
// sync branch, and moves the originals to a timestamped backup
// directory (spec.md §4.4). It is a no-op if the fallback path has no
// issues.
func (m *Manager) MigrateDataToWorktree(ctx context.Context) (*MigrationResult, error) {
	fallback := m.FallbackDataSyncRoot()
	issues, err := store.List(fallback)
	if err != nil {
		return nil, fmt.Errorf("listing fallback issues: %w", err)
	}
	if len(issues) == 0 {
		return &MigrationResult{}, nil
	}

	target := m.DataSyncRoot()
	var ids []string
	for _, issue := range issues {
		if err := store.Write(target, issue); err != nil {
			return nil, fmt.Errorf("migrating issue %s: %w", issue.ID, err)
		}
		ids = append(ids, issue.ID)
	}

	wtClient := gitx.New(m.Path())
	if err := wtClient.AddAll(ctx); err != nil {
		return nil, err
	}
	statuses, err := wtClient.Status(ctx)
	if err != nil {
		return nil, err
	}
	if len(statuses) > 0 {
		msg := fmt.Sprintf("tbd sync: migrate %d issue(s) into worktree", len(ids))
		if err := wtClient.Commit(ctx, msg, true); err != nil {
			return nil, err
		}
	}

	backup := fmt.Sprintf("%s.migrated-%s", fallback, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(filepath.Dir(backup), 0o755); err != nil {
		return nil, err
	}
	if err := os.Rename(fallback, backup); err != nil {
		return nil, err
	}

	return &MigrationResult{MigratedIssueIDs: ids, BackupPath: backup}, nil
}

// HasFallbackData reports whether issue files exist at the non-worktree
// fallback path, used by doctor's "data location" check.
func (m *Manager) HasFallbackData() (bool, error) {
	issues, err := store.List(m.FallbackDataSyncRoot())
	if err != nil {
		return false, err
	}
	return len(issues) > 0, nil
}
