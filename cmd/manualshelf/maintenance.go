package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/manualshelf/manualshelf-server/internal/logger"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

func newReindexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, func(injector *do.RootScope, _ *logger.Logger) error {
				search, err := do.Invoke[*service.SearchService](injector)
				if err != nil {
					return err
				}

				n, err := search.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d manuals\n", n)
				return nil
			})
		},
	}
}

func newPruneTagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune-tags",
		Short: "Delete tags no file references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, func(injector *do.RootScope, _ *logger.Logger) error {
				tags, err := do.Invoke[*service.TagService](injector)
				if err != nil {
					return err
				}

				ids, err := tags.PruneOrphans(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d orphan tags\n", len(ids))
				return nil
			})
		},
	}
}

func newPrunePayloadsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune-payloads",
		Short: "Delete stored payloads that belong to no file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, func(injector *do.RootScope, _ *logger.Logger) error {
				manuals, err := do.Invoke[*service.ManualService](injector)
				if err != nil {
					return err
				}

				n, err := manuals.CollectPayloads(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d orphan payloads\n", n)
				return nil
			})
		},
	}
}
