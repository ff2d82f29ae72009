package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlevy/tbd/internal/doctor"
	"github.com/jlevy/tbd/internal/worktree"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health diagnostics (spec.md §4.6)",
	Long: `Runs the full set of doctor checks: git version, config, issue storage
invariants, worktree health, and sync-branch consistency. With --fix,
routes auto-repairable checks through their repair paths.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		tbdRoot, mainClient, err := resolveTbdRoot(ctx)
		if err != nil {
			return err
		}

		manager := worktree.New(tbdRoot, branchFlag, remoteFlag, mainClient)
		dctx := doctor.Context{
			RepoRoot:   repoPathFlag,
			TbdRoot:    tbdRoot,
			Branch:     branchFlag,
			Remote:     remoteFlag,
			MainClient: mainClient,
			Manager:    manager,
		}
		results := doctor.RunAll(ctx, dctx, fixFlag)

		if jsonFlag {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				fmt.Printf("[%s] %-28s %s\n", r.Status, r.Name, r.Message)
				if r.Suggestion != "" {
					fmt.Printf("    -> %s\n", r.Suggestion)
				}
			}
		}

		if doctor.HasErrors(results) {
			os.Exit(1)
		}
		return nil
	},
}
