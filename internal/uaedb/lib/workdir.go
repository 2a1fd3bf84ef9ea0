package lib

import (
	"fmt"
	"os"
	"path/filepath"
)

// WorkDir owns the temporary directory holding every intermediate file
// of one patch operation.
type WorkDir struct {
	Path string
	keep bool
}

// NewWorkDir creates a uaedb-work-* directory under parent, creating
// parent first if needed. An empty parent means the current directory.
func NewWorkDir(parent string, keep bool) (*WorkDir, error) {
	if parent == "" {
		parent = "."
	}
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("create work root %s: %w", parent, err)
	}
	path, err := os.MkdirTemp(parent, "uaedb-work-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &WorkDir{Path: path, keep: keep}, nil
}

// File returns the path of a named file inside the work directory.
func (w *WorkDir) File(name string) string {
	return filepath.Join(w.Path, name)
}

// Kept reports whether Close leaves the directory in place.
func (w *WorkDir) Kept() bool {
	return w.keep
}

// Close removes the work directory and everything inside it, unless the
// caller asked to keep it.
func (w *WorkDir) Close() error {
	if w.keep {
		return nil
	}
	return os.RemoveAll(w.Path)
}

// WriteFileAtomic writes data to a temporary file in the destination's
// directory and renames it into place, so the destination path never
// holds a partial output.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	// Flush to stable storage before the rename makes it visible.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
