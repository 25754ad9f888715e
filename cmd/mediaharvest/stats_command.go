package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"mediaharvest/internal/api"
)

func newStatsCommand(cmdCtx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats [source]",
		Short: "Show aggregate record counts per source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var views []api.StatsView
			if len(args) == 1 {
				view, err := api.SourceStats(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				views = []api.StatsView{view}
			} else {
				views, err = api.AllStats(cmd.Context(), store)
				if err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, views)
			}
			printStatsTable(cmd, views)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func printStatsTable(cmd *cobra.Command, views []api.StatsView) {
	if len(views) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sources recorded yet.")
		return
	}

	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, statsRow(view.Source, view))
		for _, name := range sortedKeys(view.BySubSource) {
			rows = append(rows, statsRow("  "+name, view.BySubSource[name]))
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Source", "Total", "Published", "Ignored", "Duplicates", "Problems"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
}

func statsRow(label string, view api.StatsView) []string {
	return []string{
		label,
		strconv.Itoa(view.Total),
		strconv.Itoa(view.Published),
		strconv.Itoa(view.Ignored),
		strconv.Itoa(view.Duplicates),
		strconv.Itoa(view.Problems),
	}
}

func sortedKeys(m map[string]api.StatsView) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
