package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediaharvest/internal/api"
	"mediaharvest/internal/records"
)

func newRecordsCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and manage harvested records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newRecordsListCommand(cmdCtx, "list", "", "List all records for a source"))
	cmd.AddCommand(newRecordsListCommand(cmdCtx, "missing", "missing", "List records not yet published"))
	cmd.AddCommand(newRecordsListCommand(cmdCtx, "ignored", "ignored", "List ignored records"))
	cmd.AddCommand(newRecordsListCommand(cmdCtx, "duplicates", "duplicate", "List records flagged as duplicates"))
	cmd.AddCommand(newRecordsShowCommand(cmdCtx))
	cmd.AddCommand(newRecordsResetCommand(cmdCtx, "reset-ignored", "Clear a record's ignore state, including protected reasons", api.ResetIgnored))
	cmd.AddCommand(newRecordsResetCommand(cmdCtx, "reset-hashes", "Drop computed fingerprints so the next refresh re-hashes", api.ResetHashes))
	cmd.AddCommand(newRecordsResetCommand(cmdCtx, "reset-duplicates", "Clear stored duplicate references", api.ResetDuplicates))

	return cmd
}

func newRecordsListCommand(cmdCtx *commandContext, use, filter, short string) *cobra.Command {
	var jsonOut bool
	var statusFlag string

	cmd := &cobra.Command{
		Use:   use + " <source>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			effective := filter
			if effective == "" {
				effective = statusFlag
			}
			views, err := api.ListRecords(cmd.Context(), store, api.ListRecordsRequest{
				Source: args[0],
				Filter: effective,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, views)
			}
			printRecordTable(cmd, views)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	if filter == "" {
		cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (new, eligible, ignored, duplicate, published) or \"missing\"")
	}
	return cmd
}

func printRecordTable(cmd *cobra.Command, views []api.RecordView) {
	if len(views) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No records found.")
		return
	}
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		detail := view.IgnoredReason
		if detail == "" && len(view.Duplicates) > 0 {
			detail = fmt.Sprintf("%d duplicate ref(s)", len(view.Duplicates))
		}
		rows = append(rows, []string{
			view.SourceID,
			truncate(view.Title, 48),
			view.Status,
			strconv.Itoa(len(view.Variants)),
			detail,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Title", "Status", "Variants", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func newRecordsShowCommand(cmdCtx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <source> <id>",
		Short: "Show one record in full",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			view, err := api.ShowRecord(cmd.Context(), store, args[0], args[1])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s/%s  [%s]\n", view.Source, view.SourceID, view.Status)
			fmt.Fprintf(out, "Title:       %s\n", view.Title)
			if view.SubSource != "" {
				fmt.Fprintf(out, "Sub-source:  %s\n", view.SubSource)
			}
			if view.CapturedAt != "" {
				fmt.Fprintf(out, "Captured:    %s\n", view.CapturedAt)
			}
			if view.Ignored {
				fmt.Fprintf(out, "Ignored:     %s\n", view.IgnoredReason)
			}
			if len(view.Categories) > 0 {
				fmt.Fprintf(out, "Categories:  %s\n", strings.Join(view.Categories, ", "))
			}
			for _, variant := range view.Variants {
				fmt.Fprintf(out, "Variant %-16s sha1=%s size=%d ext=%s published=%s\n",
					variant.Name, orDash(variant.SHA1), variant.SizeBytes, orDash(variant.FileExtension),
					orDash(strings.Join(variant.PublishedNames, ", ")))
			}
			for _, ref := range view.Duplicates {
				fmt.Fprintf(out, "Duplicate    %s/%s (%s, score %.2f)\n", ref.Source, ref.SourceID, ref.Kind, ref.Score)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

type resetFunc func(ctx context.Context, store *records.Store, source, id string) (api.RecordView, error)

func newRecordsResetCommand(cmdCtx *commandContext, use, short string, reset resetFunc) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   use + " <source> <id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			view, err := reset(cmd.Context(), store, args[0], args[1])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Record %s/%s is now %s.\n", view.Source, view.SourceID, view.Status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
