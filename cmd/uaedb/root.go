package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uaedb/uaedb-go/internal/uaedb/commands"
)

func NewRootCommand() *cobra.Command {
	var (
		entry       string
		uncompress  string
		listEntries bool
		xdelta      string
		workDir     string
		keepWork    bool
	)

	cmd := &cobra.Command{
		Use:   "uaedb SOURCE [PATCH OUTPUT]",
		Short: "Apply xdelta patches to UnityFS asset bundles.",
		Long: `uaedb patches UnityFS asset bundles. Given an original bundle and an
xdelta3 patch it produces a new bundle in which either the whole
uncompressed payload or a single named entry has been updated, re-encoded
to match the reference Unity/UABEA layout.

Without --entry the patch is applied to the bundle's uncompressed form
(UABEA's .decomp shape); if the patcher rejects that, each entry is tried
in turn and exactly one must accept the patch.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case listEntries:
				if len(args) != 1 {
					return fmt.Errorf("%w: --list-entries takes exactly one SOURCE argument", errUsage)
				}
				return commands.ListEntries(args[0], os.Stdout)

			case uncompress != "":
				if len(args) != 1 {
					return fmt.Errorf("%w: --uncompress takes exactly one SOURCE argument", errUsage)
				}
				return commands.Uncompress(args[0], uncompress)

			default:
				if len(args) != 3 {
					cmd.SilenceUsage = false
					return fmt.Errorf("%w: expected SOURCE PATCH OUTPUT", errUsage)
				}
				return commands.Patch(commands.PatchOptions{
					Source:   args[0],
					Patch:    args[1],
					Output:   args[2],
					Entry:    entry,
					Xdelta:   xdelta,
					WorkDir:  workDir,
					KeepWork: keepWork,
				})
			}
		},
	}

	cmd.Flags().StringVar(&entry, "entry", "", "Patch only the named entry inside the bundle")
	cmd.Flags().StringVar(&uncompress, "uncompress", "", "Write the uncompressed (.decomp) form of SOURCE to this path and exit")
	cmd.Flags().BoolVar(&listEntries, "list-entries", false, "Print the entry directory of SOURCE and exit")
	cmd.Flags().StringVar(&xdelta, "xdelta", "", "Path to the xdelta3 executable (default: bundled copy, then PATH)")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "Parent directory for the temporary work directory (default: current directory)")
	cmd.Flags().BoolVar(&keepWork, "keep-work", false, "Keep the work directory instead of deleting it on exit")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
	cmd.RegisterFlagCompletionFunc("entry", entryCompletions)

	return cmd
}
