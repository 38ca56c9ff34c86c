package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/booklyapp/bookly/internal/di"
	"github.com/booklyapp/bookly/internal/logger"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API and event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			injector := di.NewContainer(a.flags)

			if err := di.Bootstrap(injector); err != nil {
				_ = injector.Shutdown()
				return err
			}

			log := do.MustInvoke[*logger.Logger](injector)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
			case <-cmd.Context().Done():
			}

			log.Info("Shutting down server gracefully...")

			// The container shuts providers down in reverse dependency order.
			if err := injector.Shutdown(); err != nil {
				log.Error("Shutdown error", "error", err)
			}

			log.Info("Bye")
			return nil
		},
	}

	cmd.Flags().StringVar(&a.flags.Addr, "addr", "", "listen address (default 127.0.0.1:7420)")
	cmd.Flags().StringVar(&a.flags.WatchStorage, "watch", "", "watch sqlite storage for writes from other processes (true/false)")

	return cmd
}
