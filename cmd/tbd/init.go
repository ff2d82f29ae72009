package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlevy/tbd/internal/config"
)

var initPrefixFlag string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize tbd in the current repository",
	Long: `Initialize tbd by writing <repo>/.tbd/config.yml. The data-plane
worktree itself is created lazily on the first "tbd sync" (spec.md §4.5
step 1, "auto-creates a missing worktree").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		tbdRoot, _, err := resolveTbdRoot(ctx)
		if err != nil {
			return err
		}
		if err := config.WriteDefault(tbdRoot, initPrefixFlag); err != nil {
			return err
		}
		fmt.Printf("initialized tbd at %s\n", tbdRoot)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initPrefixFlag, "prefix", "", "short id display prefix (default \"tbd\")")
}
