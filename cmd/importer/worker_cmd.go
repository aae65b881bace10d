package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Relaticle/relaticle-sub002/modules/importer/services"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background chunk worker until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			worker := services.NewChunkWorker(
				a.registry, a.store, a.sessions, a.chunks, a.pool, a.bus, a.log,
			)
			a.log.Info("chunk worker started")
			if err := worker.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}
