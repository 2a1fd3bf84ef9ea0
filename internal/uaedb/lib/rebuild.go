package lib

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/uaedb/uaedb-go/internal/uaedb/types"
)

// rechunkSize is the fixed block size used when a payload has resized
// and the original partition no longer describes it. Reference encoders
// always chunk at 128 KiB; nothing smarter is attempted.
const rechunkSize = 0x20000

// Rebuild re-emits a compressed bundle from a new uncompressed payload,
// using orig for everything the payload does not determine: the header,
// the content hash, the block-info compression method, and the
// placement and padding choices.
//
// When the payload length still matches orig's uncompressed total, the
// original block partition and per-block methods are reused, which
// reproduces reference output byte-for-byte for LZ4HC bundles. A
// resized payload is re-chunked at 128 KiB instead.
//
// entries replaces the entry directory; pass nil to keep orig's.
func Rebuild(orig *Bundle, data []byte, entries []types.Entry) ([]byte, error) {
	if entries == nil {
		entries = orig.Entries
	}

	var blocks []types.Block
	var stream bytes.Buffer

	if uint64(len(data)) == orig.uncompressedTotal() {
		// Preserve the original partition.
		off := 0
		for i, blk := range orig.Blocks {
			n := int(blk.UncompressedSize)
			encoded, flags, err := encodeDataBlock(data[off:off+n], blk.Flags)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}
			blocks = append(blocks, types.Block{
				UncompressedSize: uint32(n),
				CompressedSize:   uint32(len(encoded)),
				Flags:            flags,
			})
			stream.Write(encoded)
			off += n
		}
	} else {
		// Re-chunk at the fixed size. Each new block borrows the method
		// of the original block covering its first byte; blocks past the
		// original end default to LZ4HC.
		for off := 0; off < len(data); off += rechunkSize {
			end := off + rechunkSize
			if end > len(data) {
				end = len(data)
			}
			encoded, flags, err := encodeDataBlock(data[off:end], orig.blockFlagsAt(uint64(off)))
			if err != nil {
				return nil, fmt.Errorf("block at %#x: %w", off, err)
			}
			blocks = append(blocks, types.Block{
				UncompressedSize: uint32(end - off),
				CompressedSize:   uint32(len(encoded)),
				Flags:            flags,
			})
			stream.Write(encoded)
		}
	}

	info := buildBlockInfo(orig.Hash, blocks, entries)
	compressedInfo, flags, err := encodeBlockInfo(info, orig.Header.Flags)
	if err != nil {
		return nil, fmt.Errorf("compress block info: %w", err)
	}

	return emitBundle(orig, flags, compressedInfo, len(info), stream.Bytes()), nil
}

// encodeDataBlock compresses one block under the method carried in its
// flags. A block the method cannot shrink is stored raw with the
// compression bits cleared, matching reference encoder behavior.
func encodeDataBlock(data []byte, flags uint16) ([]byte, uint16, error) {
	method := types.CompressionMethod(flags) & types.CompressionMask
	encoded, err := EncodeBlock(method, data)
	if errors.Is(err, errIncompressible) {
		return data, flags &^ types.CompressionMask, nil
	}
	if err != nil {
		return nil, 0, err
	}
	if method != types.CompressionNone && len(encoded) >= len(data) {
		return data, flags &^ types.CompressionMask, nil
	}
	return encoded, flags, nil
}

// encodeBlockInfo compresses the block-info section under the method in
// the header flags, falling back to stored (and clearing the method
// bits) if the section does not shrink.
func encodeBlockInfo(info []byte, headerFlags uint32) ([]byte, uint32, error) {
	method := types.CompressionMethod(headerFlags) & types.CompressionMask
	encoded, err := EncodeBlock(method, info)
	if errors.Is(err, errIncompressible) {
		return info, headerFlags &^ uint32(types.CompressionMask), nil
	}
	if err != nil {
		return nil, 0, err
	}
	if method != types.CompressionNone && len(encoded) >= len(info) {
		return info, headerFlags &^ uint32(types.CompressionMask), nil
	}
	return encoded, headerFlags, nil
}

// blockFlagsAt returns the flags of the original block whose
// uncompressed range covers off, or LZ4HC flags when off lies past the
// original data stream.
func (b *Bundle) blockFlagsAt(off uint64) uint16 {
	var pos uint64
	for _, blk := range b.Blocks {
		pos += uint64(blk.UncompressedSize)
		if off < pos {
			return blk.Flags
		}
	}
	return uint16(types.CompressionLZ4HC)
}
