package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mediaharvest/internal/api"
	"mediaharvest/internal/publish"
)

func newPublishCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		jsonOut bool
		idFlag  string
		shaFlag string
		variant string
	)

	cmd := &cobra.Command{
		Use:   "publish <source>",
		Short: "Publish a record by id or content hash (operator trigger)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if idFlag == "" && shaFlag == "" {
				return fmt.Errorf("one of --id or --sha1 is required")
			}
			if idFlag != "" && len(args) == 0 {
				return fmt.Errorf("publishing by id requires a source argument")
			}

			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			policy, err := publish.NewPolicy(cfg.Publish)
			if err != nil {
				return err
			}
			if policy.Mode() == publish.ModeDisabled {
				return fmt.Errorf("publishing is disabled in configuration")
			}
			publisher := publish.NewDirectoryPublisher(
				filepath.Join(cfg.Paths.DataDir, "published"),
				cfg.FetchTimeoutDuration(),
				nil,
			)

			req := api.PublishRecordRequest{
				SourceID: idFlag,
				SHA1:     shaFlag,
				Variant:  variant,
			}
			if len(args) > 0 {
				req.Source = args[0]
			}
			result, err := api.PublishRecord(cmd.Context(), store, policy, publisher, req)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			if len(result.PublishedNames) == 0 {
				fmt.Fprintf(out, "Nothing published (skipped: %s).\n", strings.Join(result.Skipped, ", "))
				return nil
			}
			fmt.Fprintf(out, "Published %s as %s.\n", result.Record.SourceID, strings.Join(result.PublishedNames, ", "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	cmd.Flags().StringVar(&idFlag, "id", "", "Record stable id")
	cmd.Flags().StringVar(&shaFlag, "sha1", "", "Content hash of the record to publish")
	cmd.Flags().StringVar(&variant, "variant", "", "Publish only the named variant")
	return cmd
}
