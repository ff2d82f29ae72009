package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlevy/tbd/internal/store"
)

var listAllFlag bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues (open and in-progress by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		svc, _, err := issueService(ctx, false)
		if err != nil {
			return err
		}

		issueList := []*listRow{}
		if listAllFlag {
			all, err := svc.List()
			if err != nil {
				return err
			}
			for _, i := range all {
				issueList = append(issueList, &listRow{svc.DisplayID(i.ID), string(i.Status), i.Priority, i.Title})
			}
		} else {
			provider := store.NewProvider(svc.Root, svc.Prefix)
			open, err := provider.GetOpenIssues()
			if err != nil {
				return err
			}
			for _, i := range open {
				issueList = append(issueList, &listRow{svc.DisplayID(i.ID), string(i.Status), i.Priority, i.Title})
			}
		}

		for _, r := range issueList {
			fmt.Printf("%-12s %-12s p%d  %s\n", r.display, r.status, r.priority, r.title)
		}
		if len(issueList) == 0 {
			fmt.Println("no issues")
		}
		return nil
	},
}

type listRow struct {
	display  string
	status   string
	priority int
	title    string
}

func init() {
	listCmd.Flags().BoolVar(&listAllFlag, "all", false, "include closed, blocked, and deferred issues")
}
