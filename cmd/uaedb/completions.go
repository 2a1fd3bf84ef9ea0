package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/uaedb/uaedb-go/internal/uaedb/lib"
)

// entryCompletions provides dynamic tab completion for the --entry flag
// by reading the entry directory of the SOURCE bundle argument.
func entryCompletions(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// The source bundle is the first positional argument.
	if len(args) == 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		// Don't return an error, just fail to complete.
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	bundle, err := lib.Parse(raw)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return bundle.EntryPaths(), cobra.ShellCompDirectiveNoFileComp
}
