package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/manualshelf/manualshelf-server/internal/di"
	"github.com/manualshelf/manualshelf-server/internal/logger"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			injector := di.NewContainer(cmd.Flags())

			if err := bootstrap(injector); err != nil {
				return fmt.Errorf("bootstrap server: %w", err)
			}

			log := do.MustInvoke[*logger.Logger](injector)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info("Shutting down server gracefully...")

			// The container shuts services down in reverse dependency order.
			if err := injector.Shutdown(); err != nil {
				log.Error("Shutdown error", "error", err)
			}

			log.Info("Shelf closed")
			return nil
		},
	}
}

// bootstrap turns provider panics into errors so a bad config or a locked
// data directory exits cleanly.
func bootstrap(injector *do.RootScope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return di.Bootstrap(injector)
}
