package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/manualshelf/manualshelf-server/internal/backup"
	"github.com/manualshelf/manualshelf-server/internal/logger"
)

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <archive.zip>",
		Short: "Write every manual and its files to a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(injector *do.RootScope, log *logger.Logger) error {
				exporter, err := do.Invoke[*backup.Exporter](injector)
				if err != nil {
					return err
				}

				res, err := exporter.ExportFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				log.Info("Export written", "path", res.Path, "manuals", res.Counts.Manuals, "files", res.Counts.Files, "checksum", res.Checksum)
				fmt.Fprintln(cmd.OutOrStdout(), res.Path)
				return nil
			})
		},
	}
}
