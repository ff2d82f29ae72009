// Package issues implements the mutation operations of the data model
// (spec.md §3): creating an issue with its permanent and short ids,
// updating it under the version/updated_at invariant, spec_path
// inheritance and propagation, and closing. Storage writes resolve
// through the data-sync root the caller obtained from the worktree
// manager; this package never chooses its own paths.
package issues

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jlevy/tbd/internal/idgen"
	"github.com/jlevy/tbd/internal/mapping"
	"github.com/jlevy/tbd/internal/store"
	"github.com/jlevy/tbd/internal/terrors"
	"github.com/jlevy/tbd/internal/types"
)

// Service performs issue mutations against one data-sync root.
type Service struct {
	Root   string // data-sync root, resolved through the worktree manager
	Prefix string // display id prefix, e.g. "tbd"
	Now    func() time.Time
}

// NewService builds a Service over a data-sync root.
func NewService(root, prefix string) *Service {
	return &Service{Root: root, Prefix: prefix, Now: time.Now}
}

func (s *Service) mappingPath() string {
	return filepath.Join(s.Root, mapping.FileName)
}

// CreateOptions carries the caller-supplied fields for a new issue.
// Zero values get defaults: kind task, status open, priority 2.
type CreateOptions struct {
	Title       string
	Description string
	Notes       string
	Kind        types.Kind
	Status      types.Status
	Priority    *int
	Labels      []string
	ParentID    string
	SpecPath    string
	Assignee    string
	DueDate     string
	// ExternalID is an imported tracker id such as "tbd-100"; its
	// trailing token is preserved as the short id when free (spec.md
	// §4.3 path (a)).
	ExternalID string
	// Extensions are opaque keys stamped in by importers, preserved
	// verbatim in the front matter.
	Extensions types.Extensions
}

// Create allocates a permanent id and a short id, applies spec_path
// inheritance from the parent (spec.md §3), writes the issue file, and
// persists the updated mapping. It returns the issue and its short id.
func (s *Service) Create(opts CreateOptions) (*types.Issue, string, error) {
	if opts.Title == "" {
		return nil, "", terrors.Validation("issue title is required")
	}
	now := s.Now().UTC().Truncate(time.Second)

	issue := &types.Issue{
		ID:          idgen.NewPermanentIDAt(now),
		Version:     1,
		Title:       opts.Title,
		Description: opts.Description,
		Notes:       opts.Notes,
		Kind:        opts.Kind,
		Status:      opts.Status,
		Priority:    2,
		Labels:      opts.Labels,
		ParentID:    opts.ParentID,
		SpecPath:    opts.SpecPath,
		Assignee:    opts.Assignee,
		DueDate:     opts.DueDate,
		Extensions:  opts.Extensions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if issue.Kind == "" {
		issue.Kind = types.KindTask
	}
	if issue.Status == "" {
		issue.Status = types.StatusOpen
	}
	if opts.Priority != nil {
		issue.Priority = *opts.Priority
	}

	// spec_path is inherited from the parent on creation unless set
	// explicitly (spec.md §3).
	if issue.SpecPath == "" && issue.ParentID != "" {
		parent, err := store.Read(s.Root, issue.ParentID)
		if err != nil {
			return nil, "", terrors.NotFound(fmt.Sprintf("parent issue %s not found", issue.ParentID))
		}
		issue.SpecPath = parent.SpecPath
	}

	if err := store.Validate(issue); err != nil {
		return nil, "", err
	}

	m, err := mapping.Load(s.mappingPath())
	if err != nil {
		return nil, "", err
	}
	alloc := m.Allocator()
	var short string
	if opts.ExternalID != "" {
		if preserved, ok := alloc.TryPreserve(idgen.ExternalIDToken(opts.ExternalID)); ok {
			short = preserved
		}
	}
	if short == "" {
		short = alloc.Next()
	}
	m.Bind(short, issue.ID)
	m.AdoptAllocator(alloc)

	if err := store.Write(s.Root, issue); err != nil {
		return nil, "", err
	}
	if err := m.Save(s.mappingPath()); err != nil {
		return nil, "", err
	}
	return issue, short, nil
}

// Resolve translates a short id, a "<prefix>-<short>" display id, or a
// permanent id into the permanent id, failing with a typed NotFound.
func (s *Service) Resolve(input string) (string, error) {
	m, err := mapping.Load(s.mappingPath())
	if err != nil {
		return "", err
	}
	id, ok := m.Resolve(input, s.Prefix)
	if !ok {
		return "", terrors.NotFound(fmt.Sprintf("no issue matching %q", input))
	}
	return id, nil
}

// Get reads an issue by any accepted id form.
func (s *Service) Get(input string) (*types.Issue, error) {
	id, err := s.Resolve(input)
	if err != nil {
		return nil, err
	}
	return store.Read(s.Root, id)
}

// Update applies mutate to the issue named by input, bumps version and
// updated_at, and writes the result. When mutate changes spec_path, the
// new value propagates to children that either had no spec_path or
// matched the old parent value (spec.md §3).
func (s *Service) Update(input string, mutate func(*types.Issue) error) (*types.Issue, error) {
	issue, err := s.Get(input)
	if err != nil {
		return nil, err
	}
	oldSpecPath := issue.SpecPath

	if err := mutate(issue); err != nil {
		return nil, err
	}
	if issue.IsSelfParent() {
		return nil, terrors.Validation("issue cannot be its own parent")
	}
	issue.Touch(s.Now().UTC().Truncate(time.Second))
	if err := store.Validate(issue); err != nil {
		return nil, err
	}
	if err := store.Write(s.Root, issue); err != nil {
		return nil, err
	}

	if issue.SpecPath != oldSpecPath {
		if err := s.propagateSpecPath(issue.ID, oldSpecPath, issue.SpecPath); err != nil {
			return nil, err
		}
	}
	return issue, nil
}

// propagateSpecPath pushes a parent's changed spec_path down to children
// whose spec_path was unset or still matched the old parent value.
func (s *Service) propagateSpecPath(parentID, oldPath, newPath string) error {
	all, err := store.List(s.Root)
	if err != nil {
		return err
	}
	now := s.Now().UTC().Truncate(time.Second)
	for _, child := range all {
		if child.ParentID != parentID {
			continue
		}
		if child.SpecPath != "" && child.SpecPath != oldPath {
			continue
		}
		child.SpecPath = newPath
		child.Touch(now)
		if err := store.Write(s.Root, child); err != nil {
			return err
		}
	}
	return nil
}

// Close sets an issue's status to closed with a close timestamp and
// optional reason.
func (s *Service) Close(input, reason string) (*types.Issue, error) {
	return s.Update(input, func(issue *types.Issue) error {
		issue.Status = types.StatusClosed
		issue.ClosedAt = s.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
		issue.CloseReason = reason
		return nil
	})
}

// List enumerates every issue under the service's root.
func (s *Service) List() ([]*types.Issue, error) {
	return store.List(s.Root)
}

// DisplayID renders an issue's human-facing "<prefix>-<short>" form,
// falling back to the permanent id when no mapping entry exists yet.
func (s *Service) DisplayID(id string) string {
	m, err := mapping.Load(s.mappingPath())
	if err == nil {
		if short, ok := m.ShortFor(id); ok {
			return s.Prefix + "-" + short
		}
	}
	return id
}
