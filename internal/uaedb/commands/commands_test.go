package commands

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uaedb/uaedb-go/internal/uaedb/lib"
	"github.com/uaedb/uaedb-go/internal/uaedb/types"
)

// bundleEntry is one named file placed in a synthetic bundle.
type bundleEntry struct {
	path string
	data []byte
}

// rawBundle serializes a version-6 UnityFS file with stored block-info
// from explicit parts, so tests can also build inconsistent bundles.
func rawBundle(t *testing.T, blocks []types.Block, entries []types.Entry, data []byte) []byte {
	t.Helper()

	var info bytes.Buffer
	info.Write(bytes.Repeat([]byte{0xAB}, 16))
	binary.Write(&info, binary.BigEndian, uint32(len(blocks)))
	for _, b := range blocks {
		binary.Write(&info, binary.BigEndian, b.UncompressedSize)
		binary.Write(&info, binary.BigEndian, b.CompressedSize)
		binary.Write(&info, binary.BigEndian, b.Flags)
	}
	binary.Write(&info, binary.BigEndian, uint32(len(entries)))
	for _, e := range entries {
		binary.Write(&info, binary.BigEndian, e.Offset)
		binary.Write(&info, binary.BigEndian, e.Size)
		binary.Write(&info, binary.BigEndian, e.Flags)
		info.WriteString(e.Path)
		info.WriteByte(0)
	}

	var buf bytes.Buffer
	buf.WriteString("UnityFS")
	buf.WriteByte(0)
	binary.Write(&buf, binary.BigEndian, uint32(6))
	buf.WriteString("5.x.x")
	buf.WriteByte(0)
	buf.WriteString("2021.3.16f1")
	buf.WriteByte(0)
	sizeOffset := buf.Len()
	binary.Write(&buf, binary.BigEndian, uint64(0))
	binary.Write(&buf, binary.BigEndian, uint32(info.Len()))
	binary.Write(&buf, binary.BigEndian, uint32(info.Len()))
	binary.Write(&buf, binary.BigEndian, uint32(0))
	buf.Write(info.Bytes())
	buf.Write(data)

	out := buf.Bytes()
	binary.BigEndian.PutUint64(out[sizeOffset:], uint64(len(out)))
	return out
}

// buildBundle lays the given entries out back to back in a single
// stored block.
func buildBundle(t *testing.T, entries []bundleEntry) []byte {
	t.Helper()

	var data []byte
	var dir []types.Entry
	for _, e := range entries {
		dir = append(dir, types.Entry{
			Offset: uint64(len(data)),
			Size:   uint64(len(e.data)),
			Flags:  4,
			Path:   e.path,
		})
		data = append(data, e.data...)
	}
	blocks := []types.Block{{
		UncompressedSize: uint32(len(data)),
		CompressedSize:   uint32(len(data)),
	}}
	return rawBundle(t, blocks, dir, data)
}

// writeBundle writes a synthetic bundle into dir and returns its path.
func writeBundle(t *testing.T, dir string, entries []bundleEntry) string {
	t.Helper()
	path := filepath.Join(dir, "source.bundle")
	require.NoError(t, os.WriteFile(path, buildBundle(t, entries), 0644))
	return path
}

// writePatchFile writes a placeholder patch file; the fake patcher
// never reads it.
func writePatchFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "change.xdelta")
	require.NoError(t, os.WriteFile(path, []byte("xdelta-placeholder"), 0644))
	return path
}

// fakePatcher applies a pure in-process transformation instead of
// shelling out to xdelta3.
type fakePatcher struct {
	apply func(source []byte) ([]byte, error)
}

func (f *fakePatcher) Apply(source, patch, target string) error {
	src, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	out, err := f.apply(src)
	if err != nil {
		return fmt.Errorf("%w: %v", lib.ErrPatcher, err)
	}
	return os.WriteFile(target, out, 0644)
}

// parseOutput reads a produced bundle back and decodes its payload.
func parseOutput(t *testing.T, path string) (*lib.Bundle, []byte) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err, "read output bundle")
	b, err := lib.Parse(raw)
	require.NoError(t, err, "parse output bundle")
	data, err := b.DataStream()
	require.NoError(t, err, "decode output data stream")
	return b, data
}

// fill returns n copies of c.
func fill(c byte, n int) []byte {
	return bytes.Repeat([]byte{c}, n)
}
