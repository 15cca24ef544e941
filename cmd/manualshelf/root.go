package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/manualshelf/manualshelf-server/internal/config"
	"github.com/manualshelf/manualshelf-server/internal/di"
	"github.com/manualshelf/manualshelf-server/internal/logger"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "manualshelf",
		Short:         "ManualShelf personal document server",
		Long:          "ManualShelf keeps scanned manuals and their files, tagged and searchable, and serves them over HTTP.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.Version = fmt.Sprintf("%s.%s", version, commit)

	return cmd
}

// withContainer builds a container from the command's flags, runs fn and
// shuts every resolved service down again. Offline commands open the data
// directory themselves, so the server must not be running.
func withContainer(cmd *cobra.Command, fn func(injector *do.RootScope, log *logger.Logger) error) error {
	injector := di.NewContainer(cmd.Flags())

	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	runErr := fn(injector, log)

	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}
	return runErr
}
