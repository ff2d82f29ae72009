// Package store reads and writes issues as YAML-front-matter Markdown
// files (spec.md §4.2) and enumerates a directory of them.
package store

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jlevy/tbd/internal/terrors"
	"github.com/jlevy/tbd/internal/types"
)

const (
	frontMatterDelim = "---"
	descriptionHead  = "## Description"
	notesHead        = "## Notes"
)

// frontMatter is the strict schema used to parse known keys; anything
// else present in the document lands in Extensions via frontMatterRaw.
type frontMatter struct {
	Type    string `yaml:"type"`
	ID      string `yaml:"id"`
	Version int    `yaml:"version"`

	Title string `yaml:"title"`

	Kind     types.Kind   `yaml:"kind"`
	Status   types.Status `yaml:"status"`
	Priority int          `yaml:"priority"`

	Labels       []string           `yaml:"labels,omitempty"`
	Dependencies []types.Dependency `yaml:"dependencies,omitempty"`

	ParentID        string   `yaml:"parent_id,omitempty"`
	ChildOrderHints []string `yaml:"child_order_hints,omitempty"`
	SpecPath        string   `yaml:"spec_path,omitempty"`

	Assignee         string `yaml:"assignee,omitempty"`
	DueDate          string `yaml:"due_date,omitempty"`
	DeferredUntil    string `yaml:"deferred_until,omitempty"`
	ClosedAt         string `yaml:"closed_at,omitempty"`
	CloseReason      string `yaml:"close_reason,omitempty"`
	ExternalIssueURL string `yaml:"external_issue_url,omitempty"`

	CreatedAt string `yaml:"created_at"`
	UpdatedAt string `yaml:"updated_at"`
}

// knownKeys lists every schema key, used to split the raw document into
// (known fields) and (everything else -> Extensions).
var knownKeys = map[string]bool{
	"type": true, "id": true, "version": true, "title": true, "kind": true,
	"status": true, "priority": true, "labels": true, "dependencies": true,
	"parent_id": true, "child_order_hints": true, "spec_path": true,
	"assignee": true, "due_date": true, "deferred_until": true,
	"closed_at": true, "close_reason": true, "external_issue_url": true,
	"created_at": true, "updated_at": true,
}

// Parse decodes the YAML+Markdown issue format into an Issue. The YAML
// itself is parsed strictly, but field values are not validated here:
// reads stay permissive so doctor can surface invalid issues instead of
// being unable to read them at all. Unknown front-matter keys are
// retained verbatim in Extensions; Description and Notes are extracted
// by heading.
func Parse(text string) (*types.Issue, error) {
	body, rest, err := splitFrontMatter(text)
	if err != nil {
		return nil, err
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(body), &fm); err != nil {
		return nil, terrors.Validation(fmt.Sprintf("invalid front matter YAML: %v", err))
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(body), &raw); err != nil {
		return nil, terrors.Validation(fmt.Sprintf("invalid front matter YAML: %v", err))
	}
	ext := types.Extensions{}
	for k, v := range raw {
		if !knownKeys[k] {
			ext[k] = v
		}
	}

	issue := &types.Issue{
		ID:               fm.ID,
		Version:          fm.Version,
		Title:            fm.Title,
		Kind:             fm.Kind,
		Status:           fm.Status,
		Priority:         fm.Priority,
		Labels:           fm.Labels,
		Dependencies:     fm.Dependencies,
		ParentID:         fm.ParentID,
		ChildOrderHints:  fm.ChildOrderHints,
		SpecPath:         fm.SpecPath,
		Assignee:         fm.Assignee,
		DueDate:          fm.DueDate,
		DeferredUntil:    fm.DeferredUntil,
		ClosedAt:         fm.ClosedAt,
		CloseReason:      fm.CloseReason,
		ExternalIssueURL: fm.ExternalIssueURL,
		Extensions:       ext,
	}

	if fm.CreatedAt != "" {
		t, err := parseTime(fm.CreatedAt)
		if err != nil {
			return nil, terrors.Validation("invalid created_at: " + err.Error())
		}
		issue.CreatedAt = t
	}
	if fm.UpdatedAt != "" {
		t, err := parseTime(fm.UpdatedAt)
		if err != nil {
			return nil, terrors.Validation("invalid updated_at: " + err.Error())
		}
		issue.UpdatedAt = t
	}

	issue.Description, issue.Notes = extractSections(rest)

	return issue, nil
}

// splitFrontMatter separates the leading "---\n...\n---\n" block from the
// rest of the document, failing on a malformed (unterminated) block so a
// partial read never silently yields an empty issue.
func splitFrontMatter(text string) (frontMatter string, rest string, err error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return "", "", terrors.Validation("missing YAML front matter delimiter")
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelim {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return "", "", terrors.Validation("unterminated YAML front matter block")
}

// extractSections pulls the "## Description" and "## Notes" bodies out
// of the Markdown tail, in whichever order they appear.
func extractSections(body string) (description, notes string) {
	lines := strings.Split(body, "\n")
	var current *strings.Builder
	var desc, note strings.Builder
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case descriptionHead:
			current = &desc
			continue
		case notesHead:
			current = &note
			continue
		}
		if current != nil {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	return strings.TrimSpace(desc.String()), strings.TrimSpace(note.String())
}

// Serialize renders an Issue back to the YAML+Markdown format with a
// stable key order and elided empty optional fields, trailing newline.
func Serialize(issue *types.Issue) (string, error) {
	if err := Validate(issue); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(frontMatterDelim + "\n")

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key string, value interface{}) {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			scalarOrSeqNode(value),
		)
	}

	add("type", "is")
	add("id", issue.ID)
	add("version", issue.Version)
	add("title", issue.Title)
	add("kind", string(issue.Kind))
	add("status", string(issue.Status))
	add("priority", issue.Priority)
	if len(issue.Labels) > 0 {
		sorted := append([]string(nil), issue.Labels...)
		sort.Strings(sorted)
		add("labels", sorted)
	}
	if len(issue.Dependencies) > 0 {
		add("dependencies", issue.Dependencies)
	}
	if issue.ParentID != "" {
		add("parent_id", issue.ParentID)
	}
	if len(issue.ChildOrderHints) > 0 {
		add("child_order_hints", issue.ChildOrderHints)
	}
	if issue.SpecPath != "" {
		add("spec_path", issue.SpecPath)
	}
	if issue.Assignee != "" {
		add("assignee", issue.Assignee)
	}
	if issue.DueDate != "" {
		add("due_date", issue.DueDate)
	}
	if issue.DeferredUntil != "" {
		add("deferred_until", issue.DeferredUntil)
	}
	if issue.ClosedAt != "" {
		add("closed_at", issue.ClosedAt)
	}
	if issue.CloseReason != "" {
		add("close_reason", issue.CloseReason)
	}
	if issue.ExternalIssueURL != "" {
		add("external_issue_url", issue.ExternalIssueURL)
	}
	add("created_at", formatTime(issue.CreatedAt))
	add("updated_at", formatTime(issue.UpdatedAt))
	extKeys := make([]string, 0, len(issue.Extensions))
	for k := range issue.Extensions {
		extKeys = append(extKeys, k)
	}
	sort.Strings(extKeys)
	for _, k := range extKeys {
		add(k, issue.Extensions[k])
	}

	out, err := yaml.Marshal(node)
	if err != nil {
		return "", err
	}
	b.Write(out)
	b.WriteString(frontMatterDelim + "\n")

	if issue.Description != "" {
		b.WriteString("\n" + descriptionHead + "\n" + issue.Description + "\n")
	}
	if issue.Notes != "" {
		b.WriteString("\n" + notesHead + "\n" + issue.Notes + "\n")
	}

	return b.String(), nil
}

func scalarOrSeqNode(value interface{}) *yaml.Node {
	var n yaml.Node
	_ = n.Encode(value)
	return &n
}

