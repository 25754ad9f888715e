package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSourcesCommand(cmdCtx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List configured sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := cmdCtx.loadRegistry()
			if err != nil {
				return err
			}

			names := registry.Names()
			if jsonOut {
				type sourceInfo struct {
					Name       string `json:"name"`
					Kind       string `json:"kind"`
					UploadMode string `json:"upload_mode,omitempty"`
					PageSize   int    `json:"page_size"`
				}
				infos := make([]sourceInfo, 0, len(names))
				for _, name := range names {
					def, _ := registry.Definition(name)
					infos = append(infos, sourceInfo{
						Name:       def.Name,
						Kind:       def.Kind,
						UploadMode: def.UploadMode,
						PageSize:   def.PageSize,
					})
				}
				return writeJSON(cmd, infos)
			}

			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No enabled sources in %s.\n", cfg.Paths.SourcesFile)
				return nil
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				def, _ := registry.Definition(name)
				mode := def.UploadMode
				if mode == "" {
					mode = "(global)"
				}
				rows = append(rows, []string{def.Name, def.Kind, mode, strconv.Itoa(def.PageSize)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Kind", "Upload Mode", "Page Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}
