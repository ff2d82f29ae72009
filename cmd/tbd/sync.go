package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlevy/tbd/internal/sync"
)

var (
	statusFlag   bool
	autoSaveFlag bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the pull-merge-push sync pipeline",
	Long: `Runs the full sync round (spec.md §4.5): commit pending local changes,
fetch, merge if behind, push with retry if ahead, and reconcile the
outbox. With --status, only reports ahead/behind/local/remote changes
without mutating anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		tbdRoot, mainClient, err := resolveTbdRoot(ctx)
		if err != nil {
			return err
		}

		engine := sync.New(tbdRoot, branchFlag, remoteFlag, autoSaveFlag, mainClient)

		if statusFlag {
			st, err := engine.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		}

		result, err := engine.Sync(ctx, fixFlag)
		if result != nil {
			printResult(result)
		}
		return err
	},
}

func init() {
	syncCmd.Flags().BoolVar(&statusFlag, "status", false, "report sync state without mutating anything")
	syncCmd.Flags().BoolVar(&autoSaveFlag, "auto-save", true, "save to the outbox on permanent push failure")
}

func printStatus(st *sync.Status) {
	fmt.Printf("ahead=%d behind=%d local-changes=%d\n", st.Ahead, st.Behind, len(st.LocalChanges))
	if len(st.RemoteLog) > 0 {
		fmt.Println("remote changes:")
		for _, line := range st.RemoteLog {
			fmt.Printf("  %s\n", line)
		}
	}
}

func printResult(r *sync.Result) {
	if r.NoOp {
		fmt.Println("Already in sync")
		return
	}
	fmt.Printf("state=%s ahead=%d behind=%d conflicts=%d outbox-imported=%t\n",
		r.State, r.Ahead, r.Behind, len(r.Conflicts), r.OutboxImported)
}
