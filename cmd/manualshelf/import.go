package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/manualshelf/manualshelf-server/internal/logger"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

func newImportCommand() *cobra.Command {
	var (
		tags []string
		keep bool
	)

	cmd := &cobra.Command{
		Use:   "import <title> <file>...",
		Short: "Create a manual from local files",
		Long:  "Create one manual from the given PDF and image files. Every file receives the same tags.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, paths := args[0], args[1:]

			uploads := make([]service.Upload, 0, len(paths))
			for _, path := range paths {
				//#nosec G304 -- paths are named by the operator on the command line
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				uploads = append(uploads, service.Upload{Name: filepath.Base(path), Data: data})
			}

			return withContainer(cmd, func(injector *do.RootScope, log *logger.Logger) error {
				manuals, err := do.Invoke[*service.ManualService](injector)
				if err != nil {
					return err
				}

				m, err := manuals.Create(cmd.Context(), service.CreateManualInput{
					Title: title,
					Files: uploads,
					Tags:  tags,
				})
				if err != nil {
					return err
				}

				log.Info("Manual imported", "manual_id", m.ID, "title", m.Title, "files", len(m.Files))
				fmt.Fprintln(cmd.OutOrStdout(), m.ID)

				if keep {
					return nil
				}
				for _, path := range paths {
					if err := os.Remove(path); err != nil {
						log.Warn("Imported file could not be removed", "path", path, "error", err)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag every file with this name (repeatable)")
	cmd.Flags().BoolVar(&keep, "keep", true, "Keep the source files after importing")

	return cmd
}
