// Package main provides the manualshelf command: the server and the
// offline maintenance commands around its data directory.
package main

import (
	"fmt"
	"os"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	root := newRootCommand()

	root.AddCommand(newServeCommand())
	root.AddCommand(newImportCommand())
	root.AddCommand(newExportCommand())
	root.AddCommand(newReindexCommand())
	root.AddCommand(newPruneTagsCommand())
	root.AddCommand(newPrunePayloadsCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
