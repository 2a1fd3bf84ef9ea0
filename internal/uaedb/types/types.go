// Package types defines the shared data structures for the uaedb application.
package types

// CompressionMethod identifies the codec used for the block-info section
// or for an individual data block. The method occupies the low 6 bits of
// the owning flags word.
type CompressionMethod uint32

const (
	CompressionNone  CompressionMethod = 0
	CompressionLZMA  CompressionMethod = 1
	CompressionLZ4   CompressionMethod = 2
	CompressionLZ4HC CompressionMethod = 3
	CompressionLZHAM CompressionMethod = 4
)

// CompressionMask extracts a CompressionMethod from a flags word.
const CompressionMask = 0x3F

const (
	// FlagDataAligned requests a pad to the next 16-byte boundary between
	// an inline block-info section and the data stream.
	FlagDataAligned = 0x40

	// FlagBlockInfoAtEnd places the compressed block-info section at the
	// end of the file instead of directly after the header.
	FlagBlockInfoAtEnd = 0x80

	// FlagEncryptionOld and FlagEncryptionNew mark encrypted bundles in
	// the pre- and post-2020.3.34 archive flag layouts. Encrypted bundles
	// are rejected.
	FlagEncryptionOld = 0x200
	FlagEncryptionNew = 0x1400
)

// HashSize is the length of the content hash at the start of the
// block-info section. The hash is opaque and preserved verbatim.
const HashSize = 16

// Header holds the UnityFS bundle header fields in on-disk order. All
// numeric fields are big-endian on disk.
type Header struct {
	Signature     string
	Version       uint32
	UnityVersion  string
	EngineVersion string

	// TotalSize is the size of the whole bundle file in bytes.
	TotalSize uint64

	CompressedBlockInfoSize   uint32
	UncompressedBlockInfoSize uint32

	// Flags carries the block-info compression method in its low 6 bits
	// plus the placement and padding bits above.
	Flags uint32
}

// BlockInfoCompression returns the method used for the block-info section.
func (h *Header) BlockInfoCompression() CompressionMethod {
	return CompressionMethod(h.Flags & CompressionMask)
}

// BlockInfoAtEnd reports whether the block-info section is end-placed.
func (h *Header) BlockInfoAtEnd() bool {
	return h.Flags&FlagBlockInfoAtEnd != 0
}

// DataAligned reports whether a 16-byte pad precedes the data stream.
func (h *Header) DataAligned() bool {
	return h.Flags&FlagDataAligned != 0
}

// Block describes one unit of the data stream. Compression of each block
// is independent of the block-info compression in the header.
type Block struct {
	UncompressedSize uint32
	CompressedSize   uint32
	Flags            uint16
}

// Compression returns the method used for this block's data.
func (b Block) Compression() CompressionMethod {
	return CompressionMethod(b.Flags & CompressionMask)
}

// Entry is a named file embedded in the uncompressed data stream.
type Entry struct {
	// Offset is the position of the entry within the concatenated
	// uncompressed data stream, not within the bundle file.
	Offset uint64
	Size   uint64
	Flags  uint32
	Path   string
}
