package store

import (
	"fmt"

	"github.com/jlevy/tbd/internal/idgen"
	"github.com/jlevy/tbd/internal/terrors"
	"github.com/jlevy/tbd/internal/types"
)

// Validate checks the invariants spec.md §3 places on an Issue: id
// format, known kind/status, priority range, and the no-self-parent
// rule from §9. It does not check cross-issue invariants (orphan
// dependencies, cycles beyond self-parent) — those are doctor's job
// because they require seeing the whole store.
func Validate(issue *types.Issue) error {
	if issue.ID == "" {
		return terrors.Validation("issue id is required")
	}
	if !idgen.IsPermanentID(issue.ID) {
		return terrors.Validation(fmt.Sprintf("malformed permanent id %q", issue.ID))
	}
	if issue.Title == "" {
		return terrors.Validation("issue title is required")
	}
	if !types.ValidKinds[issue.Kind] {
		return terrors.Validation(fmt.Sprintf("unknown kind %q", issue.Kind))
	}
	if !types.ValidStatuses[issue.Status] {
		return terrors.Validation(fmt.Sprintf("unknown status %q", issue.Status))
	}
	if issue.Priority < types.MinPriority || issue.Priority > types.MaxPriority {
		return terrors.Validation(fmt.Sprintf("priority %d out of range [%d,%d]", issue.Priority, types.MinPriority, types.MaxPriority))
	}
	if issue.IsSelfParent() {
		return terrors.Validation("issue cannot be its own parent")
	}
	for _, d := range issue.Dependencies {
		if d.Type != types.DependencyBlocks {
			return terrors.Validation(fmt.Sprintf("unknown dependency type %q", d.Type))
		}
	}
	return nil
}
