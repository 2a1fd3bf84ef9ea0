package lib

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Patcher applies a binary delta: the patch file transforms the source
// file into the target file. The production implementation shells out
// to xdelta3; tests substitute an in-process fake.
type Patcher interface {
	Apply(source, patch, target string) error
}

// XdeltaPatcher runs the external xdelta3 executable.
type XdeltaPatcher struct {
	Path string
}

// NewXdeltaPatcher returns a patcher for the given executable path.
// An empty path selects the default discovery order: a bundled
// runtime/xdelta/xdelta3 next to the running executable, then whatever
// PATH resolves for "xdelta3".
func NewXdeltaPatcher(path string) *XdeltaPatcher {
	if path == "" {
		path = defaultXdeltaPath()
	}
	return &XdeltaPatcher{Path: path}
}

func defaultXdeltaPath() string {
	name := "xdelta3"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "runtime", "xdelta", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "xdelta3"
}

// Check verifies the executable can be found. The orchestrator calls
// this before creating any work files so a missing patcher fails fast.
func (x *XdeltaPatcher) Check() error {
	if strings.ContainsAny(x.Path, `/\`) {
		if _, err := os.Stat(x.Path); err != nil {
			return fmt.Errorf("%w: xdelta executable not found at %s", ErrPatcher, x.Path)
		}
		return nil
	}
	if _, err := exec.LookPath(x.Path); err != nil {
		return fmt.Errorf("%w: xdelta executable %q not found on PATH", ErrPatcher, x.Path)
	}
	return nil
}

// Apply runs "xdelta3 -d -s source patch target" and waits for it to
// exit. A non-zero exit surfaces the tool's combined output; a missing
// or empty target after a clean exit is also a failure.
func (x *XdeltaPatcher) Apply(source, patch, target string) error {
	// xdelta3 refuses to overwrite an existing target.
	if _, err := os.Stat(target); err == nil {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("remove stale target %s: %w", target, err)
		}
	}

	out, err := exec.Command(x.Path, "-d", "-s", source, patch, target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s failed: %v\n%s", ErrPatcher, filepath.Base(x.Path), err, strings.TrimSpace(string(out)))
	}

	info, err := os.Stat(target)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: patcher produced no output at %s", ErrPatcher, target)
	}
	return nil
}
