package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediaharvest/internal/daemon"
	"mediaharvest/internal/logging"
)

func newDaemonCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the harvest daemon until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			registry, err := cmdCtx.loadRegistry()
			if err != nil {
				store.Close()
				return err
			}

			d, err := daemon.New(cfg, store, registry, logger)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			d.Stop()
			return nil
		},
	}
}
