package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlevy/tbd/internal/mapping"
	"github.com/jlevy/tbd/internal/sync"
	"github.com/jlevy/tbd/internal/workspace"
)

var workspaceUpdatesOnlyFlag bool

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage issue snapshots on the main branch",
}

var workspaceSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Snapshot issues into a named workspace",
	Long: `Writes the current issue set (and the id mapping) into
<repo>/.tbd/workspaces/<name>/, an ordinary part of the main branch.
With --updates-only, only issues modified since the last successful
sync are saved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		// Saving a workspace only reads the worktree; the snapshot lands
		// under <tbd>/workspaces on the main branch.
		svc, tbdRoot, err := issueService(ctx, false)
		if err != nil {
			return err
		}

		all, err := svc.List()
		if err != nil {
			return err
		}
		since := sync.LoadLastSyncAt(tbdRoot)
		n, err := workspace.Save(tbdRoot, args[0], all, workspaceUpdatesOnlyFlag, since)
		if err != nil {
			return err
		}
		m, err := mapping.Load(svc.Root + "/" + mapping.FileName)
		if err != nil {
			return err
		}
		if err := workspace.SaveMapping(tbdRoot, args[0], m); err != nil {
			return err
		}
		fmt.Printf("saved %d issue(s) to workspace %q\n", n, args[0])
		return nil
	},
}

func init() {
	workspaceSaveCmd.Flags().BoolVar(&workspaceUpdatesOnlyFlag, "updates-only", false, "only issues modified since the last successful sync")
	workspaceCmd.AddCommand(workspaceSaveCmd)
}
