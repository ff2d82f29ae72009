// Package merge implements the field-level three-way merge of a single
// issue (spec.md §4.5 "Field-level merge"), adapted from the teacher's
// internal/merge (vendored from github.com/neongreen/mono, 3-way
// JSONL issue merge) to this repo's YAML Issue schema and union/
// last-writer-wins field rules instead of the teacher's line-oriented
// JSONL conflict markers.
package merge

import (
	"time"

	"github.com/jlevy/tbd/internal/attic"
	"github.com/jlevy/tbd/internal/types"
)

// Result is the outcome of merging one issue: the merged value plus
// every field-level conflict it required a choice for.
type Result struct {
	Issue     *types.Issue
	Conflicts []attic.Entry
}

// Merge performs the three-way merge described in spec.md §4.5. ancestor
// may be nil (e.g. two clones independently created an issue that
// collided on permanent id — spec.md §9 "Open question"); in that case
// every differing field is treated as a conflict.
func Merge(ancestor, local, remote *types.Issue, now time.Time) Result {
	merged := &types.Issue{ID: local.ID}
	var conflicts []attic.Entry

	localNewer := isNewer(local, remote)

	// resolve applies the three-way rule for one scalar field: a change
	// on only one side propagates silently; a change on both sides (or
	// any difference when the ancestor is unknown) is a conflict,
	// settled last-writer-wins and recorded for the attic.
	resolve := func(field string, ancestorVal, localVal, remoteVal interface{}) interface{} {
		if fieldsEqual(localVal, remoteVal) {
			return localVal
		}
		if ancestorVal != nil && fieldsEqual(ancestorVal, localVal) {
			return remoteVal // only remote changed
		}
		if ancestorVal != nil && fieldsEqual(ancestorVal, remoteVal) {
			return localVal // only local changed
		}
		chosen := remoteVal
		if localNewer {
			chosen = localVal
		}
		conflicts = append(conflicts, attic.Entry{
			IssueID:   local.ID,
			Field:     field,
			Local:     localVal,
			Remote:    remoteVal,
			Chosen:    chosen,
			Timestamp: now,
		})
		return chosen
	}

	var ancestorTitle, ancestorDesc, ancestorStatus, ancestorKind interface{}
	var ancestorAssignee, ancestorDue, ancestorDeferred, ancestorParent interface{}
	var ancestorSpec, ancestorClosedAt, ancestorCloseReason, ancestorExtURL interface{}
	var ancestorPriority interface{}
	if ancestor != nil {
		ancestorTitle, ancestorDesc = ancestor.Title, ancestor.Description
		ancestorStatus, ancestorKind = ancestor.Status, ancestor.Kind
		ancestorAssignee, ancestorDue = ancestor.Assignee, ancestor.DueDate
		ancestorDeferred, ancestorParent = ancestor.DeferredUntil, ancestor.ParentID
		ancestorSpec, ancestorClosedAt = ancestor.SpecPath, ancestor.ClosedAt
		ancestorCloseReason, ancestorExtURL = ancestor.CloseReason, ancestor.ExternalIssueURL
		ancestorPriority = ancestor.Priority
	}

	merged.Title = resolve("title", ancestorTitle, local.Title, remote.Title).(string)
	merged.Description = resolve("description", ancestorDesc, local.Description, remote.Description).(string)
	merged.Notes = mergeNotes(local.Notes, remote.Notes)
	merged.Status = resolve("status", ancestorStatus, local.Status, remote.Status).(types.Status)
	merged.Priority = resolve("priority", ancestorPriority, local.Priority, remote.Priority).(int)
	merged.Kind = resolve("kind", ancestorKind, local.Kind, remote.Kind).(types.Kind)
	merged.Assignee = resolve("assignee", ancestorAssignee, local.Assignee, remote.Assignee).(string)
	merged.DueDate = resolve("due_date", ancestorDue, local.DueDate, remote.DueDate).(string)
	merged.DeferredUntil = resolve("deferred_until", ancestorDeferred, local.DeferredUntil, remote.DeferredUntil).(string)
	merged.ParentID = resolve("parent_id", ancestorParent, local.ParentID, remote.ParentID).(string)
	merged.SpecPath = resolve("spec_path", ancestorSpec, local.SpecPath, remote.SpecPath).(string)
	merged.ClosedAt = resolve("closed_at", ancestorClosedAt, local.ClosedAt, remote.ClosedAt).(string)
	merged.CloseReason = resolve("close_reason", ancestorCloseReason, local.CloseReason, remote.CloseReason).(string)
	merged.ExternalIssueURL = resolve("external_issue_url", ancestorExtURL, local.ExternalIssueURL, remote.ExternalIssueURL).(string)

	merged.Labels = unionLabels(local.Labels, remote.Labels)
	merged.Dependencies = unionDependencies(local.Dependencies, remote.Dependencies)
	merged.ChildOrderHints = mergeChildOrderHints(local, remote, localNewer)

	merged.Extensions = mergeExtensions(local.Extensions, remote.Extensions)

	merged.Version = maxInt(local.Version, remote.Version) + 1
	merged.UpdatedAt = maxTime(local.UpdatedAt, remote.UpdatedAt)
	merged.CreatedAt = earliestNonZero(local.CreatedAt, remote.CreatedAt)

	return Result{Issue: merged, Conflicts: conflicts}
}

// isNewer reports whether local should win ties: spec.md §4.5 says
// last-writer-wins by updated_at, ties broken by higher version.
func isNewer(local, remote *types.Issue) bool {
	if !local.UpdatedAt.Equal(remote.UpdatedAt) {
		return local.UpdatedAt.After(remote.UpdatedAt)
	}
	return local.Version >= remote.Version
}

func fieldsEqual(a, b interface{}) bool {
	return a == b
}

// mergeNotes concatenates distinct suffixes rather than picking one
// side, per spec.md §4.5's explicit carve-out for the append-oriented
// notes field.
func mergeNotes(local, remote string) string {
	if local == remote {
		return local
	}
	if local == "" {
		return remote
	}
	if remote == "" {
		return local
	}
	// Whichever side's text is a prefix of the other's contributes only
	// its suffix, avoiding duplicated history when one side is a strict
	// continuation of the other.
	if len(remote) > len(local) && remote[:len(local)] == local {
		if suffix := remote[len(local):]; suffix[0] != '\n' {
			return local + "\n" + suffix
		}
		return remote
	}
	if len(local) > len(remote) && local[:len(remote)] == remote {
		if suffix := local[len(remote):]; suffix[0] != '\n' {
			return remote + "\n" + suffix
		}
		return local
	}
	return local + "\n" + remote
}

func unionLabels(a, b []string) []string {
	set := map[string]bool{}
	var out []string
	for _, l := range a {
		if !set[l] {
			set[l] = true
			out = append(out, l)
		}
	}
	for _, l := range b {
		if !set[l] {
			set[l] = true
			out = append(out, l)
		}
	}
	return out
}

func unionDependencies(a, b []types.Dependency) []types.Dependency {
	seen := map[string]bool{}
	var out []types.Dependency
	for _, d := range a {
		if !seen[d.Key()] {
			seen[d.Key()] = true
			out = append(out, d)
		}
	}
	for _, d := range b {
		if !seen[d.Key()] {
			seen[d.Key()] = true
			out = append(out, d)
		}
	}
	return out
}

// mergeChildOrderHints picks the longer ordered list, ties broken by
// updated_at (spec.md §4.5 "Ordered lists (longer wins...)").
func mergeChildOrderHints(local, remote *types.Issue, localNewer bool) []string {
	if len(local.ChildOrderHints) > len(remote.ChildOrderHints) {
		return local.ChildOrderHints
	}
	if len(remote.ChildOrderHints) > len(local.ChildOrderHints) {
		return remote.ChildOrderHints
	}
	if localNewer {
		return local.ChildOrderHints
	}
	return remote.ChildOrderHints
}

// mergeExtensions unions opaque extension keys, local winning on key
// collision (extensions carry importer-stamped ids that should not
// silently disappear on merge, but do not warrant a attic conflict
// entry — spec.md treats them as an opaque passthrough, not a merge
// field in their own right).
func mergeExtensions(local, remote types.Extensions) types.Extensions {
	if local == nil && remote == nil {
		return nil
	}
	out := types.Extensions{}
	for k, v := range remote {
		out[k] = v
	}
	for k, v := range local {
		out[k] = v
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliestNonZero(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	if a.Before(b) {
		return a
	}
	return b
}
