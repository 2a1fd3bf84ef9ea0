package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/uaedb/uaedb-go/internal/uaedb/lib"
)

// errUsage marks command-line mistakes: wrong argument count and flags
// that fail to parse.
var errUsage = errors.New("usage error")

func main() {
	rootCmd := NewRootCommand()
	rootCmd.AddCommand(NewCompletionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit code by its kind.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, lib.ErrFormat):
		return 3
	case errors.Is(err, lib.ErrCodec):
		return 4
	case errors.Is(err, lib.ErrPatcher):
		return 5
	case errors.Is(err, lib.ErrNoEntry):
		return 6
	case errors.Is(err, lib.ErrAmbiguous):
		return 7
	}
	return 1
}
