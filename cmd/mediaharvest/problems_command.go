package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediaharvest/internal/api"
)

func newProblemsCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "problems",
		Short: "Inspect and clear recorded harvest problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newProblemsListCommand(cmdCtx))
	cmd.AddCommand(newProblemsClearCommand(cmdCtx))
	return cmd
}

func newProblemsListCommand(cmdCtx *commandContext) *cobra.Command {
	var jsonOut bool
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded problems, optionally for one source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			views, err := api.ListProblems(cmd.Context(), store, source)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No problems recorded.")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{
					view.Source,
					truncate(view.URL, 56),
					truncate(view.Message, 64),
					view.ReportedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Source", "URL", "Message", "Reported"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	cmd.Flags().StringVar(&source, "source", "", "Limit to one source")
	return cmd
}

func newProblemsClearCommand(cmdCtx *commandContext) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove recorded problems for a source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := api.ClearProblems(cmd.Context(), store, source)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d problem(s).\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source whose problems to clear")
	cmd.MarkFlagRequired("source")
	return cmd
}
