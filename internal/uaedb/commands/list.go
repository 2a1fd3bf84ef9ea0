package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/uaedb/uaedb-go/internal/uaedb/lib"
)

// ListEntries prints the entry directory of a bundle, one entry per
// line with its offset and size in the uncompressed data stream.
func ListEntries(source string, out io.Writer) error {
	raw, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	bundle, err := lib.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}

	if len(bundle.Entries) == 0 {
		fmt.Fprintf(out, "No entries in %s.\n", source)
		return nil
	}

	fmt.Fprintf(out, "%-12s %-12s %s\n", "OFFSET", "SIZE", "PATH")
	for _, e := range bundle.Entries {
		fmt.Fprintf(out, "%-12d %-12d %s\n", e.Offset, e.Size, e.Path)
	}
	return nil
}
