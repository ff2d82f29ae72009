// Package workspace implements named snapshots of the issue store living
// on the main branch (spec.md §3 "Workspace"), including the reserved
// "outbox" workspace used for sync-failure recovery (spec.md §4.5
// "Two-phase outbox import").
package workspace

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jlevy/tbd/internal/mapping"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/types"
)

// OutboxName is the reserved workspace name for permanent-push-failure
// recovery.
const OutboxName = "outbox"

// RelDir returns a named workspace's directory under the tbd root.
func RelDir(tbdRoot, name string) string {
	return filepath.Join(tbdRoot, "workspaces", name)
}

// Exists reports whether a workspace has any content.
func Exists(tbdRoot, name string) (bool, error) {
	issues, err := store.List(RelDir(tbdRoot, name))
	if err != nil {
		return false, err
	}
	return len(issues) > 0, nil
}

// Save writes issues into a workspace's snapshot layout. If updatesOnly
// is true, only issues whose UpdatedAt is after since are written
// (spec.md §3, "Saving to a workspace with updates_only").
func Save(tbdRoot, name string, issues []*types.Issue, updatesOnly bool, since time.Time) (int, error) {
	dir := RelDir(tbdRoot, name)
	count := 0
	for _, issue := range issues {
		if updatesOnly && !issue.UpdatedAt.After(since) {
			continue
		}
		if err := store.Write(dir, issue); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// SaveMerge writes issues into a workspace, merging with any existing
// snapshot content rather than overwriting it wholesale: an issue
// already present in the workspace is replaced only if the new copy is
// newer, and issues not touched by this call are left as-is. This is
// the "merging with any existing outbox snapshot" behavior spec.md §4.5
// step 8 requires of permanent-failure auto-save.
func SaveMerge(tbdRoot, name string, issues []*types.Issue) (int, error) {
	dir := RelDir(tbdRoot, name)
	existing, err := store.List(dir)
	if err != nil {
		return 0, err
	}
	existingByID := make(map[string]*types.Issue, len(existing))
	for _, e := range existing {
		existingByID[e.ID] = e
	}

	written := 0
	for _, issue := range issues {
		if prior, ok := existingByID[issue.ID]; ok && !issue.UpdatedAt.After(prior.UpdatedAt) {
			continue
		}
		if err := store.Write(dir, issue); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// Load reads every issue from a workspace snapshot. Workspace contents
// are authoritative snapshots, not deltas (spec.md §3): an import never
// depends on mapping state older than the workspace itself.
func Load(tbdRoot, name string) ([]*types.Issue, error) {
	return store.List(RelDir(tbdRoot, name))
}

// SaveMapping snapshots a mapping into the workspace's own
// mappings/ids.yml, making the workspace self-contained: an import
// never depends on mapping state older than the workspace itself
// (spec.md §3 "Workspace" invariants).
func SaveMapping(tbdRoot, name string, m *mapping.Mapping) error {
	return m.Save(filepath.Join(RelDir(tbdRoot, name), mapping.FileName))
}

// LoadMapping reads a workspace's own mapping snapshot, if present.
func LoadMapping(tbdRoot, name string) (*mapping.Mapping, error) {
	path := filepath.Join(RelDir(tbdRoot, name), mapping.FileName)
	return mapping.Load(path)
}

// Clear deletes a workspace entirely — issues, mapping snapshot, and
// the directory itself — used once its contents have been durably
// imported elsewhere (spec.md §4.5 "Two-phase outbox import" steps 2
// and 4; after a successful import the outbox no longer exists).
func Clear(tbdRoot, name string) error {
	return os.RemoveAll(RelDir(tbdRoot, name))
}
