package lib

import (
	"bytes"
	"encoding/binary"

	"github.com/uaedb/uaedb-go/internal/uaedb/types"
)

// WriteUncompressed re-emits the bundle with every data block and the
// block-info section stored raw: UABEA's ".decomp" shape. The block
// partition, content hash and entry directory are carried over
// verbatim, so the output is byte-compatible with decomp files written
// by UABEA and the patches third-party tooling generates against them.
func WriteUncompressed(b *Bundle) ([]byte, error) {
	data, err := b.DataStream()
	if err != nil {
		return nil, err
	}

	blocks := make([]types.Block, len(b.Blocks))
	for i, blk := range b.Blocks {
		blocks[i] = types.Block{
			UncompressedSize: blk.UncompressedSize,
			CompressedSize:   blk.UncompressedSize,
			Flags:            blk.Flags &^ types.CompressionMask,
		}
	}

	info := buildBlockInfo(b.Hash, blocks, b.Entries)

	// Clear the block-info compression method and the end-placement
	// bit; the alignment-pad bit is kept as the source had it.
	flags := b.Header.Flags &^ uint32(types.CompressionMask) &^ uint32(types.FlagBlockInfoAtEnd)

	return emitBundle(b, flags, info, len(info), data), nil
}

// buildBlockInfo serializes the uncompressed block-info section: the
// content hash, the block list, and the entry directory.
func buildBlockInfo(hash [types.HashSize]byte, blocks []types.Block, entries []types.Entry) []byte {
	var buf bytes.Buffer
	buf.Write(hash[:])

	writeU32(&buf, uint32(len(blocks)))
	for _, blk := range blocks {
		writeU32(&buf, blk.UncompressedSize)
		writeU32(&buf, blk.CompressedSize)
		writeU16(&buf, blk.Flags)
	}

	writeU32(&buf, uint32(len(entries)))
	for _, e := range entries {
		writeU64(&buf, e.Offset)
		writeU64(&buf, e.Size)
		writeU32(&buf, e.Flags)
		writeCString(&buf, e.Path)
	}
	return buf.Bytes()
}

// emitBundle writes a complete bundle file: the header copied from b
// with the given flags and recomputed sizes, then the compressed
// block-info and data stream in the order the flags call for. The
// total-size field is patched in once the final length is known.
func emitBundle(b *Bundle, flags uint32, compressedInfo []byte, uncompressedInfoLen int, data []byte) []byte {
	var buf bytes.Buffer
	writeCString(&buf, b.Header.Signature)
	writeU32(&buf, b.Header.Version)
	writeCString(&buf, b.Header.UnityVersion)
	writeCString(&buf, b.Header.EngineVersion)

	sizeOffset := buf.Len()
	writeU64(&buf, 0)
	writeU32(&buf, uint32(len(compressedInfo)))
	writeU32(&buf, uint32(uncompressedInfoLen))
	writeU32(&buf, flags)

	if b.headerAligned {
		padTo(&buf, 16)
	}

	if flags&types.FlagBlockInfoAtEnd != 0 {
		buf.Write(data)
		buf.Write(compressedInfo)
	} else {
		buf.Write(compressedInfo)
		if flags&types.FlagDataAligned != 0 {
			padTo(&buf, 16)
		}
		buf.Write(data)
	}

	out := buf.Bytes()
	binary.BigEndian.PutUint64(out[sizeOffset:], uint64(len(out)))
	return out
}
