package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlevy/tbd/internal/config"
	"github.com/jlevy/tbd/internal/issues"
	"github.com/jlevy/tbd/internal/terrors"
	"github.com/jlevy/tbd/internal/types"
	"github.com/jlevy/tbd/internal/worktree"
)

var (
	createKindFlag     string
	createPriorityFlag int
	createParentFlag   string
	createLabelsFlag   []string
	createSpecFlag     string
	createAssigneeFlag string
	createDescFlag     string
	createExternalFlag string
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		svc, _, err := issueService(ctx, true)
		if err != nil {
			return err
		}

		parentID := createParentFlag
		if parentID != "" {
			parentID, err = svc.Resolve(parentID)
			if err != nil {
				return err
			}
		}

		prio := createPriorityFlag
		issue, short, err := svc.Create(issues.CreateOptions{
			Title:       args[0],
			Description: createDescFlag,
			Kind:        types.Kind(createKindFlag),
			Priority:    &prio,
			Labels:      createLabelsFlag,
			ParentID:    parentID,
			SpecPath:    createSpecFlag,
			Assignee:    createAssigneeFlag,
			ExternalID:  createExternalFlag,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created %s-%s (%s)\n", svc.Prefix, short, issue.ID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createKindFlag, "kind", "task", "issue kind (bug, feature, task, epic, chore)")
	createCmd.Flags().IntVar(&createPriorityFlag, "priority", 2, "priority 0-4 (0 is highest)")
	createCmd.Flags().StringVar(&createParentFlag, "parent", "", "parent issue (any id form)")
	createCmd.Flags().StringSliceVar(&createLabelsFlag, "label", nil, "label (repeatable)")
	createCmd.Flags().StringVar(&createSpecFlag, "spec", "", "repo-relative spec document path")
	createCmd.Flags().StringVar(&createAssigneeFlag, "assignee", "", "assignee")
	createCmd.Flags().StringVar(&createDescFlag, "description", "", "issue description")
	createCmd.Flags().StringVar(&createExternalFlag, "external-id", "", "imported external id whose token becomes the short id when free")
}

// issueService resolves the data-sync root through the worktree manager
// and returns an issue service over it, plus the tbd root for callers
// that need sibling state (workspaces, state.yml). write marks commands
// that mutate the issue store; only those may lazily create a missing
// worktree, so read commands never change repo state as a side effect.
func issueService(ctx context.Context, write bool) (*issues.Service, string, error) {
	tbdRoot, mainClient, err := resolveTbdRoot(ctx)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(tbdRoot)
	if err != nil {
		return nil, "", err
	}

	manager := worktree.New(tbdRoot, branchFlag, remoteFlag, mainClient)
	root, err := resolveDataRoot(ctx, tbdRoot, manager, write)
	if err != nil {
		return nil, "", err
	}
	return issues.NewService(root, cfg.DisplayIDPrefix), tbdRoot, nil
}

// resolveDataRoot maps worktree health to a usable data-sync root.
// An uninitialized repository (no config, no worktree) surfaces
// NotInitialized pointing at `tbd init`; an initialized one whose
// worktree has not been created yet is lazily initialized on write
// paths only (spec.md §4.4: writes either fail explicitly or trigger
// lazy init) and points read paths at `tbd sync`.
// Prunable/corrupted states surface their typed errors so writes never
// silently fall back to a main-branch-tracked path.
func resolveDataRoot(ctx context.Context, tbdRoot string, manager *worktree.Manager, write bool) (string, error) {
	status, err := manager.Classify(ctx)
	if err != nil {
		return "", err
	}
	switch status {
	case worktree.StatusValid:
		return manager.DataSyncRoot(), nil
	case worktree.StatusWrongBranch:
		if err := manager.EnsureAttached(ctx); err != nil {
			return "", err
		}
		return manager.DataSyncRoot(), nil
	case worktree.StatusMissing:
		if !config.Exists(tbdRoot) {
			return "", terrors.NotInitialized("tbd is not initialized in this repository").
				WithSuggestion("run `tbd init` first")
		}
		if !write {
			return "", terrors.WorktreeMissing(manager.Path()).
				WithSuggestion("run `tbd sync` to create the data-plane worktree")
		}
		if err := manager.Init(ctx); err != nil {
			return "", err
		}
		return manager.DataSyncRoot(), nil
	case worktree.StatusPrunable:
		return "", terrors.WorktreeMissing(manager.Path()).WithSuggestion("run `tbd sync --fix`")
	default:
		return "", terrors.WorktreeCorrupted(manager.Path()).WithSuggestion("run `tbd sync --fix`")
	}
}
