// Package lib contains the core, reusable services for the uaedb application.
package lib

import "errors"

// Error kinds. Errors about the bundle, the codec and the patcher wrap
// exactly one of these so callers can classify failures with errors.Is
// and map them to exit codes. File-system errors (work directory, output
// file, removal of a stale patcher target) wrap the underlying os error
// instead of a kind.
var (
	// ErrFormat covers malformed or unsupported bundles: bad signature,
	// unsupported version, truncated sections, block totals that do not
	// match the data stream, entries that point outside it.
	ErrFormat = errors.New("bundle format error")

	// ErrCodec covers per-block compression failures: unknown method,
	// decode length mismatch, decoder rejection, encode failure.
	ErrCodec = errors.New("block codec error")

	// ErrPatcher covers external patcher failures: the tool could not be
	// run, exited non-zero, or produced no output.
	ErrPatcher = errors.New("patcher error")

	// ErrNoEntry is returned when no entry matches the requested path,
	// or no entry accepts the patch in auto mode.
	ErrNoEntry = errors.New("no matching entry")

	// ErrAmbiguous is returned when more than one entry accepts the
	// patch in auto mode.
	ErrAmbiguous = errors.New("ambiguous entry selection")
)

// errIncompressible is returned by encodeLZ4 when the compressed form
// would not be smaller than the input. The rebuilder reacts by emitting
// a stored block; it never escapes this package.
var errIncompressible = errors.New("block is incompressible")
