package lib

import (
	"fmt"

	"github.com/uaedb/uaedb-go/internal/uaedb/types"
)

// bundleSignature is the only container format this tool understands.
const bundleSignature = "UnityFS"

// minFormatVersion is the oldest UnityFS format version with the header
// layout parsed here.
const minFormatVersion = 6

// Bundle is the in-memory descriptor of one parsed bundle: the header,
// the content hash, the block list, the entry directory, and the
// location of the compressed data stream inside the raw bytes. A Bundle
// is never mutated; rebuilds produce a brand-new byte stream.
type Bundle struct {
	Header  types.Header
	Hash    [types.HashSize]byte
	Blocks  []types.Block
	Entries []types.Entry

	// DataStart and DataEnd delimit the compressed data stream within
	// the raw bundle bytes.
	DataStart int
	DataEnd   int

	// headerAligned records whether the header was padded to a 16-byte
	// boundary before the first section (format version 7 and later).
	headerAligned bool

	raw []byte
}

// Parse reads a UnityFS bundle from raw into a descriptor.
//
// When the header and block-info decode cleanly but the block list or
// entry directory breaks an invariant, Parse returns the descriptor
// alongside the error. The patch pipeline relies on this to recover
// from patched files whose block-info no longer describes the payload.
func Parse(raw []byte) (*Bundle, error) {
	r := newByteReader(raw)

	// 1. Fixed header fields.
	sig, err := r.cstring()
	if err != nil {
		return nil, err
	}
	if sig != bundleSignature {
		return nil, fmt.Errorf("%w: unsupported signature %q", ErrFormat, sig)
	}
	version, err := r.u32()
	if err != nil {
		return nil, err
	}
	if version < minFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrFormat, version)
	}
	unityVersion, err := r.cstring()
	if err != nil {
		return nil, err
	}
	engineVersion, err := r.cstring()
	if err != nil {
		return nil, err
	}
	totalSize, err := r.u64()
	if err != nil {
		return nil, err
	}
	compressedInfoSize, err := r.u32()
	if err != nil {
		return nil, err
	}
	uncompressedInfoSize, err := r.u32()
	if err != nil {
		return nil, err
	}
	flags, err := r.u32()
	if err != nil {
		return nil, err
	}

	header := types.Header{
		Signature:                 sig,
		Version:                   version,
		UnityVersion:              unityVersion,
		EngineVersion:             engineVersion,
		TotalSize:                 totalSize,
		CompressedBlockInfoSize:   compressedInfoSize,
		UncompressedBlockInfoSize: uncompressedInfoSize,
		Flags:                     flags,
	}

	// 2. Encrypted bundles carry the encryption bit in one of two
	// positions depending on the engine version that wrote them.
	if flags&encryptionFlag(engineVersion) != 0 {
		return nil, fmt.Errorf("%w: encrypted bundles are not supported", ErrFormat)
	}

	// 3. Format version 7 pads the header to a 16-byte boundary.
	headerAligned := false
	if version >= 7 {
		if err := r.align(16); err != nil {
			return nil, err
		}
		headerAligned = true
	}

	// 4. Locate and read the compressed block-info section, then record
	// where the data stream lives.
	var infoRaw []byte
	dataEnd := len(raw)
	if header.BlockInfoAtEnd() {
		if int(compressedInfoSize) > len(raw) {
			return nil, fmt.Errorf("%w: block info size %d exceeds file size %d", ErrFormat, compressedInfoSize, len(raw))
		}
		dataEnd = len(raw) - int(compressedInfoSize)
		infoRaw = raw[dataEnd:]
	} else {
		infoRaw, err = r.take(int(compressedInfoSize))
		if err != nil {
			return nil, err
		}
		if header.DataAligned() {
			if err := r.align(16); err != nil {
				return nil, err
			}
		}
	}
	dataStart := r.off
	if dataStart > dataEnd {
		return nil, fmt.Errorf("%w: block info overlaps data stream", ErrFormat)
	}

	// 5. Decompress the block-info with the header's method. Each data
	// block carries its own method; the two are independent.
	info, err := DecodeBlock(header.BlockInfoCompression(), infoRaw, int(uncompressedInfoSize))
	if err != nil {
		return nil, fmt.Errorf("decompress block info: %w", err)
	}

	b := &Bundle{
		Header:        header,
		DataStart:     dataStart,
		DataEnd:       dataEnd,
		headerAligned: headerAligned,
		raw:           raw,
	}
	if err := b.parseBlockInfo(info); err != nil {
		return nil, err
	}

	// 6. Invariant checks. A descriptor that fails them is still
	// returned so callers can attempt recovery.
	if err := b.validate(); err != nil {
		return b, err
	}
	return b, nil
}

// parseBlockInfo fills in the hash, block list and entry directory from
// the uncompressed block-info bytes.
func (b *Bundle) parseBlockInfo(info []byte) error {
	r := newByteReader(info)

	hash, err := r.take(types.HashSize)
	if err != nil {
		return err
	}
	copy(b.Hash[:], hash)

	blockCount, err := r.i32()
	if err != nil {
		return err
	}
	if blockCount < 0 {
		return fmt.Errorf("%w: negative block count %d", ErrFormat, blockCount)
	}
	b.Blocks = make([]types.Block, blockCount)
	for i := range b.Blocks {
		if b.Blocks[i].UncompressedSize, err = r.u32(); err != nil {
			return err
		}
		if b.Blocks[i].CompressedSize, err = r.u32(); err != nil {
			return err
		}
		if b.Blocks[i].Flags, err = r.u16(); err != nil {
			return err
		}
	}

	entryCount, err := r.i32()
	if err != nil {
		return err
	}
	if entryCount < 0 {
		return fmt.Errorf("%w: negative entry count %d", ErrFormat, entryCount)
	}
	b.Entries = make([]types.Entry, entryCount)
	for i := range b.Entries {
		if b.Entries[i].Offset, err = r.u64(); err != nil {
			return err
		}
		if b.Entries[i].Size, err = r.u64(); err != nil {
			return err
		}
		if b.Entries[i].Flags, err = r.u32(); err != nil {
			return err
		}
		if b.Entries[i].Path, err = r.cstring(); err != nil {
			return err
		}
	}
	return nil
}

// validate checks the block list and entry directory against the data
// region and each other.
func (b *Bundle) validate() error {
	var compressedTotal uint64
	for _, blk := range b.Blocks {
		compressedTotal += uint64(blk.CompressedSize)
	}
	if compressedTotal > uint64(b.DataEnd-b.DataStart) {
		return fmt.Errorf("%w: blocks claim %d compressed bytes but data region holds %d",
			ErrFormat, compressedTotal, b.DataEnd-b.DataStart)
	}

	total := b.uncompressedTotal()
	seen := make(map[string]bool, len(b.Entries))
	for _, e := range b.Entries {
		if e.Offset+e.Size < e.Offset || e.Offset+e.Size > total {
			return fmt.Errorf("%w: entry %q spans [%d, %d) beyond data stream of %d bytes",
				ErrFormat, e.Path, e.Offset, e.Offset+e.Size, total)
		}
		if seen[e.Path] {
			return fmt.Errorf("%w: duplicate entry path %q", ErrFormat, e.Path)
		}
		seen[e.Path] = true
	}
	return nil
}

// uncompressedTotal is the declared length of the uncompressed data
// stream: the sum of the blocks' uncompressed sizes.
func (b *Bundle) uncompressedTotal() uint64 {
	var total uint64
	for _, blk := range b.Blocks {
		total += uint64(blk.UncompressedSize)
	}
	return total
}

// DataStream decodes every block in order and returns the concatenated
// uncompressed payload.
func (b *Bundle) DataStream() ([]byte, error) {
	out := make([]byte, 0, b.uncompressedTotal())
	off := b.DataStart
	for i, blk := range b.Blocks {
		end := off + int(blk.CompressedSize)
		if end > b.DataEnd {
			return nil, fmt.Errorf("%w: block %d overruns the data region", ErrFormat, i)
		}
		decoded, err := DecodeBlock(blk.Compression(), b.raw[off:end], int(blk.UncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out = append(out, decoded...)
		off = end
	}
	return out, nil
}

// RawData returns the data region of the bundle file without decoding
// it. The raw-fallback path uses this when the block list can no longer
// be trusted.
func (b *Bundle) RawData() []byte {
	return b.raw[b.DataStart:b.DataEnd]
}

// Entry looks up a directory entry by path.
func (b *Bundle) Entry(path string) (types.Entry, error) {
	for _, e := range b.Entries {
		if e.Path == path {
			return e, nil
		}
	}
	return types.Entry{}, fmt.Errorf("%w: %q", ErrNoEntry, path)
}

// EntryPaths returns the paths of all entries in directory order.
func (b *Bundle) EntryPaths() []string {
	paths := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		paths[i] = e.Path
	}
	return paths
}

// ExtractEntry slices one entry out of a decompressed data stream.
func (b *Bundle) ExtractEntry(data []byte, path string) ([]byte, error) {
	e, err := b.Entry(path)
	if err != nil {
		return nil, err
	}
	if e.Offset+e.Size > uint64(len(data)) {
		return nil, fmt.Errorf("%w: entry %q extends beyond the data stream", ErrFormat, path)
	}
	return data[e.Offset : e.Offset+e.Size], nil
}

// encryptionFlag returns the archive-flag bit that marks an encrypted
// bundle for the engine version that wrote it. Engines from 2020.3.34,
// 2021.3.2 and 2022.1.1 onward moved the bit.
func encryptionFlag(engineVersion string) uint32 {
	major, minor, patch, ok := parseEngineVersion(engineVersion)
	if !ok {
		return types.FlagEncryptionOld
	}
	switch {
	case major < 2020:
		return types.FlagEncryptionOld
	case major == 2020 && (minor < 3 || (minor == 3 && patch < 34)):
		return types.FlagEncryptionOld
	case major == 2021 && (minor < 3 || (minor == 3 && patch < 2)):
		return types.FlagEncryptionOld
	case major == 2022 && (minor < 1 || (minor == 1 && patch < 1)):
		return types.FlagEncryptionOld
	}
	return types.FlagEncryptionNew
}

// parseEngineVersion pulls the first three numeric components out of a
// Unity engine version string such as "2021.3.16f1".
func parseEngineVersion(value string) (major, minor, patch uint32, ok bool) {
	var nums []uint32
	var current uint32
	inNumber := false
	for _, ch := range value {
		if ch >= '0' && ch <= '9' {
			current = current*10 + uint32(ch-'0')
			inNumber = true
			continue
		}
		if inNumber {
			nums = append(nums, current)
			current = 0
			inNumber = false
			if len(nums) == 3 {
				break
			}
		}
	}
	if inNumber && len(nums) < 3 {
		nums = append(nums, current)
	}
	if len(nums) < 3 {
		return 0, 0, 0, false
	}
	return nums[0], nums[1], nums[2], true
}
