package commands

import (
	"fmt"
	"os"

	"github.com/uaedb/uaedb-go/internal/uaedb/lib"
)

// Uncompress re-encodes a bundle with every section stored raw and
// writes it to the output path. The result matches UABEA's .decomp
// output for the same input, so patches generated against either tool's
// intermediate interoperate.
func Uncompress(source, output string) error {
	raw, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	bundle, err := lib.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	out, err := lib.WriteUncompressed(bundle)
	if err != nil {
		return err
	}
	if err := lib.WriteFileAtomic(output, out); err != nil {
		return err
	}
	fmt.Printf("Wrote uncompressed bundle to %s (%d entries, %d bytes)\n", output, len(bundle.Entries), len(out))
	return nil
}
