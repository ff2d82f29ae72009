// Package types defines the core data model shared by storage, merge,
// mapping and sync: the Issue, its enums, and the opaque extensions
// bag that preserves unknown front matter verbatim.
package types

import "time"

// Kind enumerates the kinds of work an issue can represent.
type Kind string

const (
	KindBug     Kind = "bug"
	KindFeature Kind = "feature"
	KindTask    Kind = "task"
	KindEpic    Kind = "epic"
	KindChore   Kind = "chore"
)

// ValidKinds is the set of kinds accepted on write.
var ValidKinds = map[Kind]bool{
	KindBug: true, KindFeature: true, KindTask: true, KindEpic: true, KindChore: true,
}

// Status enumerates the lifecycle states of an issue.
type Status string

const (
	StatusOpen        Status = "open"
	StatusInProgress  Status = "in_progress"
	StatusBlocked     Status = "blocked"
	StatusDeferred    Status = "deferred"
	StatusClosed      Status = "closed"
)

// ValidStatuses is the set of statuses accepted on write.
var ValidStatuses = map[Status]bool{
	StatusOpen: true, StatusInProgress: true, StatusBlocked: true,
	StatusDeferred: true, StatusClosed: true,
}

// MinPriority and MaxPriority bound the priority field; 0 is highest.
const (
	MinPriority = 0
	MaxPriority = 4
)

// DependencyType enumerates edge kinds between issues. "blocks" is the
// only kind in scope; the type exists so the wire format can grow
// without a breaking change.
type DependencyType string

const DependencyBlocks DependencyType = "blocks"

// Dependency is a directed edge from the owning issue to Target.
type Dependency struct {
	Type   DependencyType `yaml:"type"`
	Target string         `yaml:"target"`
}

// Key returns the (type, target) comparison key used by set merges.
func (d Dependency) Key() string {
	return string(d.Type) + "|" + d.Target
}

// Extensions is an opaque mapping preserved verbatim across read/write.
// It holds front-matter keys the schema does not know about, most
// commonly original ids stamped in by importers.
type Extensions map[string]interface{}

// Issue is the unit of work tracked by the system. Field tags give the
// stable YAML key order used by Serialize; json tags exist only so the
// field-level merge machinery (which keys conflict records) can use the
// same struct without a second definition.
type Issue struct {
	ID      string `yaml:"id" json:"id"`
	Version int    `yaml:"version" json:"version"`

	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"-" json:"description"`
	Notes       string `yaml:"-" json:"notes"`

	Kind     Kind   `yaml:"kind" json:"kind"`
	Status   Status `yaml:"status" json:"status"`
	Priority int    `yaml:"priority" json:"priority"`

	Labels       []string     `yaml:"labels,omitempty" json:"labels,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	ParentID        string   `yaml:"parent_id,omitempty" json:"parent_id,omitempty"`
	ChildOrderHints []string `yaml:"child_order_hints,omitempty" json:"child_order_hints,omitempty"`
	SpecPath        string   `yaml:"spec_path,omitempty" json:"spec_path,omitempty"`

	Assignee          string `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	DueDate           string `yaml:"due_date,omitempty" json:"due_date,omitempty"`
	DeferredUntil     string `yaml:"deferred_until,omitempty" json:"deferred_until,omitempty"`
	ClosedAt          string `yaml:"closed_at,omitempty" json:"closed_at,omitempty"`
	CloseReason       string `yaml:"close_reason,omitempty" json:"close_reason,omitempty"`
	ExternalIssueURL  string `yaml:"external_issue_url,omitempty" json:"external_issue_url,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`

	Extensions Extensions `yaml:"-" json:"extensions,omitempty"`
}

// Touch bumps Version and sets UpdatedAt, matching the invariant that
// version, updated_at, and file mtime stay consistent on every mutation.
func (i *Issue) Touch(now time.Time) {
	i.Version++
	i.UpdatedAt = now
}

// IsSelfParent reports whether ParentID refers to the issue itself,
// the one cycle validators must reject outright (spec.md §9).
func (i *Issue) IsSelfParent() bool {
	return i.ParentID != "" && i.ParentID == i.ID
}

// LabelSet returns Labels as a set for union-style merge comparisons.
func (i *Issue) LabelSet() map[string]bool {
	set := make(map[string]bool, len(i.Labels))
	for _, l := range i.Labels {
		set[l] = true
	}
	return set
}

// DependencySet returns Dependencies keyed by (type, target).
func (i *Issue) DependencySet() map[string]Dependency {
	set := make(map[string]Dependency, len(i.Dependencies))
	for _, d := range i.Dependencies {
		set[d.Key()] = d
	}
	return set
}

// IssueProvider is the minimal read surface the list command reads open
// issues through; store.Provider satisfies it.
type IssueProvider interface {
	GetOpenIssues() ([]*Issue, error)
	GetIssuePrefix() string
}
