package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"mediaharvest/internal/harvest"
	"mediaharvest/internal/logging"
	"mediaharvest/internal/publish"
)

func newHarvestCommand(cmdCtx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "harvest <source>",
		Short: "Run one harvest pass for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := cmdCtx.loadRegistry()
			if err != nil {
				return err
			}
			adapter, ok := registry.Adapter(args[0])
			if !ok {
				return fmt.Errorf("unknown or disabled source %q", args[0])
			}

			logger, err := logging.NewFromConfig(cfg)
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
			if def, ok := registry.Definition(args[0]); ok && def.UploadMode != "" {
				mode, err := publish.ParseMode(def.UploadMode)
				if err != nil {
					return fmt.Errorf("source %s: %w", args[0], err)
				}
				policy = policy.WithMode(mode)
			}

			var publisher publish.Publisher
			if policy.Mode() != publish.ModeDisabled {
				publisher = publish.NewDirectoryPublisher(
					filepath.Join(cfg.Paths.DataDir, "published"),
					cfg.FetchTimeoutDuration(),
					nil,
				)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			harvester := harvest.New(store, cfg, policy, publisher, logger)
			summary, err := harvester.Harvest(ctx, adapter)
			if err != nil && !isCanceled(err) {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, summary)
			}
			rows := [][]string{
				{"Processed", strconv.Itoa(summary.Processed)},
				{"Created", strconv.Itoa(summary.Created)},
				{"Updated", strconv.Itoa(summary.Updated)},
				{"Deleted", strconv.Itoa(summary.Deleted)},
				{"Published", strconv.Itoa(summary.Published)},
				{"Ignored", strconv.Itoa(summary.Ignored)},
				{"Duplicates", strconv.Itoa(summary.Duplicates)},
				{"Problems", strconv.Itoa(summary.Problems)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
