// Package commands contains the command-line operations for the uaedb
// application.
package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/uaedb/uaedb-go/internal/uaedb/lib"
	"github.com/uaedb/uaedb-go/internal/uaedb/types"
)

// PatchOptions configures one patch run.
type PatchOptions struct {
	Source string
	Patch  string
	Output string

	// Entry forces entry mode against the named path. Empty means
	// full-bundle mode with an automatic per-entry fallback.
	Entry string

	// Xdelta overrides discovery of the external patcher executable.
	Xdelta string

	// WorkDir is the parent directory for the temporary work dir; the
	// current directory when empty. KeepWork leaves the work dir behind.
	WorkDir  string
	KeepWork bool

	// Patcher overrides the external xdelta invocation; tests inject an
	// in-process fake here.
	Patcher lib.Patcher
}

// Patch applies an xdelta patch to a UnityFS bundle and writes the
// re-encoded result to the output path.
func Patch(opts PatchOptions) error {
	// 1. Validate the patch path and resolve the patcher before
	// creating any work files, so a bad invocation fails clean.
	info, err := os.Stat(opts.Patch)
	if err != nil {
		return fmt.Errorf("patch file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("patch path must be a file, not a directory: %s", opts.Patch)
	}

	patcher := opts.Patcher
	if patcher == nil {
		x := lib.NewXdeltaPatcher(opts.Xdelta)
		if err := x.Check(); err != nil {
			return err
		}
		patcher = x
	}

	// 2. Read the source bundle into its descriptor.
	raw, err := os.ReadFile(opts.Source)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	bundle, err := lib.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", opts.Source, err)
	}

	// 3. Every intermediate lives in a private work directory that is
	// removed on exit unless the caller asked to keep it.
	work, err := lib.NewWorkDir(opts.WorkDir, opts.KeepWork)
	if err != nil {
		return err
	}
	defer func() {
		work.Close()
		if work.Kept() {
			fmt.Fprintf(os.Stderr, "Work directory kept at: %s\n", work.Path)
		}
	}()

	// 4. Dispatch on mode.
	if opts.Entry != "" {
		return patchEntry(bundle, patcher, work, opts, opts.Entry)
	}
	err = patchFull(bundle, patcher, work, opts)
	if errors.Is(err, lib.ErrPatcher) {
		// The patch may have been generated against a single entry
		// rather than the whole decomp; try each entry in turn.
		return patchAuto(bundle, patcher, work, opts, err)
	}
	return err
}

// patchFull runs full-bundle mode: patch the uncompressed form of the
// whole bundle, then rebuild it against the original descriptor.
func patchFull(bundle *lib.Bundle, patcher lib.Patcher, work *lib.WorkDir, opts PatchOptions) error {
	decomp, err := lib.WriteUncompressed(bundle)
	if err != nil {
		return err
	}
	decompPath := work.File("source.decomp")
	if err := os.WriteFile(decompPath, decomp, 0644); err != nil {
		return fmt.Errorf("write decomp: %w", err)
	}

	patchedPath := work.File("patched.decomp")
	if err := patcher.Apply(decompPath, opts.Patch, patchedPath); err != nil {
		return err
	}
	patchedRaw, err := os.ReadFile(patchedPath)
	if err != nil {
		return fmt.Errorf("read patched decomp: %w", err)
	}

	patched, perr := lib.Parse(patchedRaw)
	if patched == nil {
		return fmt.Errorf("parse patched bundle: %w", perr)
	}

	var data []byte
	if perr == nil {
		data, perr = patched.DataStream()
	}
	if perr != nil {
		// The patched block-info no longer describes the patched
		// payload, which happens when the delta resizes the data region
		// without rewriting the block list. Recover by treating the raw
		// region after the header as the new uncompressed stream; the
		// patched entry directory is kept as-is.
		fmt.Fprintf(os.Stderr, "patched block info is stale, rebuilding from the raw data region (%v)\n", perr)
		data = patched.RawData()
	}

	out, err := lib.Rebuild(bundle, data, patched.Entries)
	if err != nil {
		return err
	}
	return lib.WriteFileAtomic(opts.Output, out)
}

// patchEntry runs entry mode: patch one named entry and splice it back
// into the data stream, shifting later entries if it resized.
func patchEntry(bundle *lib.Bundle, patcher lib.Patcher, work *lib.WorkDir, opts PatchOptions, path string) error {
	data, err := bundle.DataStream()
	if err != nil {
		return err
	}
	target, err := bundle.Entry(path)
	if err != nil {
		return err
	}
	entryBytes, err := bundle.ExtractEntry(data, path)
	if err != nil {
		return err
	}

	srcPath := work.File("entry.bin")
	if err := os.WriteFile(srcPath, entryBytes, 0644); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	patchedPath := work.File("entry.patched")
	if err := patcher.Apply(srcPath, opts.Patch, patchedPath); err != nil {
		return err
	}
	replacement, err := os.ReadFile(patchedPath)
	if err != nil {
		return fmt.Errorf("read patched entry: %w", err)
	}

	newData, newEntries := spliceEntry(data, bundle.Entries, target, replacement)
	out, err := lib.Rebuild(bundle, newData, newEntries)
	if err != nil {
		return err
	}
	return lib.WriteFileAtomic(opts.Output, out)
}

// patchAuto tries the patch against every entry after a full-bundle
// attempt failed with fullErr. Exactly one entry must accept it.
func patchAuto(bundle *lib.Bundle, patcher lib.Patcher, work *lib.WorkDir, opts PatchOptions, fullErr error) error {
	data, err := bundle.DataStream()
	if err != nil {
		return err
	}

	var matches []string
	var patched []byte
	for i, e := range bundle.Entries {
		srcPath := work.File(fmt.Sprintf("entry-%d.bin", i))
		if err := os.WriteFile(srcPath, data[e.Offset:e.Offset+e.Size], 0644); err != nil {
			return fmt.Errorf("write entry: %w", err)
		}
		dstPath := work.File(fmt.Sprintf("entry-%d.patched", i))
		if patcher.Apply(srcPath, opts.Patch, dstPath) != nil {
			continue
		}
		matches = append(matches, e.Path)
		if patched, err = os.ReadFile(dstPath); err != nil {
			return fmt.Errorf("read patched entry: %w", err)
		}
	}

	switch len(matches) {
	case 0:
		return fmt.Errorf("%w: patch does not apply to the bundle or to any single entry (see --list-entries): %v",
			lib.ErrNoEntry, fullErr)
	case 1:
		target, err := bundle.Entry(matches[0])
		if err != nil {
			return err
		}
		newData, newEntries := spliceEntry(data, bundle.Entries, target, patched)
		out, err := lib.Rebuild(bundle, newData, newEntries)
		if err != nil {
			return err
		}
		return lib.WriteFileAtomic(opts.Output, out)
	default:
		return fmt.Errorf("%w: patch applies to %s; pick one with --entry (see --list-entries)",
			lib.ErrAmbiguous, strings.Join(matches, ", "))
	}
}

// spliceEntry replaces one entry's bytes inside the data stream. An
// equal-length replacement is copied in place and the directory is
// returned untouched; a resize rebuilds the stream and shifts the
// offset of every entry that followed the target.
func spliceEntry(data []byte, entries []types.Entry, target types.Entry, replacement []byte) ([]byte, []types.Entry) {
	delta := int64(len(replacement)) - int64(target.Size)
	if delta == 0 {
		out := make([]byte, len(data))
		copy(out, data)
		copy(out[target.Offset:], replacement)
		return out, entries
	}

	out := make([]byte, 0, int64(len(data))+delta)
	out = append(out, data[:target.Offset]...)
	out = append(out, replacement...)
	out = append(out, data[target.Offset+target.Size:]...)

	newEntries := make([]types.Entry, len(entries))
	for i, e := range entries {
		ne := e
		if e.Path == target.Path {
			ne.Size = uint64(len(replacement))
		} else if e.Offset > target.Offset {
			ne.Offset = uint64(int64(e.Offset) + delta)
		}
		newEntries[i] = ne
	}
	return out, newEntries
}
