package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlevy/tbd/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one issue in its on-disk format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		svc, _, err := issueService(ctx, false)
		if err != nil {
			return err
		}
		issue, err := svc.Get(args[0])
		if err != nil {
			return err
		}
		text, err := store.Serialize(issue)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

var closeReasonFlag string

var closeCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		svc, _, err := issueService(ctx, true)
		if err != nil {
			return err
		}
		issue, err := svc.Close(args[0], closeReasonFlag)
		if err != nil {
			return err
		}
		fmt.Printf("closed %s\n", svc.DisplayID(issue.ID))
		return nil
	},
}

func init() {
	closeCmd.Flags().StringVar(&closeReasonFlag, "reason", "", "close reason")
}
