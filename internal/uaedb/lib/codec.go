package lib

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"

	"github.com/uaedb/uaedb-go/internal/uaedb/types"
)

// Unity's LZMA encoder settings. A 5-byte properties header (1 byte
// lc/lp/pb, 4 bytes little-endian dictionary size) precedes the raw
// LZMA1 stream; there is no size field and no end-of-stream marker.
const (
	lzmaDictSize = 0x0080_0000
	lzmaLC       = 3
	lzmaLP       = 0
	lzmaPB       = 2
)

// lz4hcLevel matches Unity's Encode32HC setting.
const lz4hcLevel = 12

// DecodeBlock decompresses a single block. uncompressedLen is the
// declared output length from the block list; every method verifies the
// output against it.
func DecodeBlock(method types.CompressionMethod, compressed []byte, uncompressedLen int) ([]byte, error) {
	switch method {
	case types.CompressionNone:
		if len(compressed) != uncompressedLen {
			return nil, fmt.Errorf("%w: stored block is %d bytes, expected %d", ErrCodec, len(compressed), uncompressedLen)
		}
		return compressed, nil

	case types.CompressionLZMA:
		return decodeLZMA(compressed, uncompressedLen)

	case types.CompressionLZ4, types.CompressionLZ4HC:
		out := make([]byte, uncompressedLen)
		n, err := lz4.UncompressBlock(compressed, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4 decompress: %v", ErrCodec, err)
		}
		if n != uncompressedLen {
			return nil, fmt.Errorf("%w: lz4 block decompressed to %d bytes, expected %d", ErrCodec, n, uncompressedLen)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown compression method %d", ErrCodec, method)
	}
}

// EncodeBlock compresses a single block. LZ4 and LZ4HC both encode as
// LZ4HC. An LZ4 result that would not be smaller than the input is
// reported as errIncompressible so the caller can emit a stored block.
func EncodeBlock(method types.CompressionMethod, data []byte) ([]byte, error) {
	switch method {
	case types.CompressionNone:
		return data, nil

	case types.CompressionLZMA:
		return encodeLZMA(data)

	case types.CompressionLZ4, types.CompressionLZ4HC:
		return encodeLZ4(data)

	default:
		return nil, fmt.Errorf("%w: unknown compression method %d", ErrCodec, method)
	}
}

func encodeLZ4(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	dst := make([]byte, bound)
	n, err := lz4.CompressBlockHC(data, dst, lz4hcLevel, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4hc compress: %v", ErrCodec, err)
	}
	if n > bound {
		return nil, fmt.Errorf("%w: lz4hc output %d exceeds block bound %d", ErrCodec, n, bound)
	}
	// The compressor signals an incompressible input with n == 0. A
	// result no smaller than the input is treated the same way; the
	// reference encoder stores such blocks raw.
	if n == 0 || n >= len(data) {
		return nil, errIncompressible
	}
	return dst[:n], nil
}

// decodeLZMA reconstructs the classic 13-byte .lzma header (properties
// plus a little-endian uncompressed size) that the library expects, then
// streams the block through it.
func decodeLZMA(compressed []byte, uncompressedLen int) ([]byte, error) {
	if len(compressed) < 5 {
		return nil, fmt.Errorf("%w: lzma block too small to contain properties header", ErrCodec)
	}

	header := make([]byte, 13)
	copy(header, compressed[:5])
	binary.LittleEndian.PutUint64(header[5:], uint64(uncompressedLen))

	cfg := lzma.ReaderConfig{DictCap: lzmaDictSize}
	r, err := cfg.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(compressed[5:])))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma decoder: %v", ErrCodec, err)
	}

	out := make([]byte, uncompressedLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: lzma decompress: %v", ErrCodec, err)
	}
	return out, nil
}

// encodeLZMA produces Unity's headerless-size LZMA form: the library
// writes a classic 13-byte header, of which only the first 5 bytes
// (properties and dictionary size) are kept.
func encodeLZMA(data []byte) ([]byte, error) {
	cfg := lzma.WriterConfig{
		DictCap:      lzmaDictSize,
		Properties:   &lzma.Properties{LC: lzmaLC, LP: lzmaLP, PB: lzmaPB},
		Matcher:      lzma.BinaryTree,
		SizeInHeader: true,
		Size:         int64(len(data)),
	}

	var buf bytes.Buffer
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("%w: lzma encoder: %v", ErrCodec, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: lzma compress: %v", ErrCodec, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: lzma compress: %v", ErrCodec, err)
	}

	encoded := buf.Bytes()
	if len(encoded) < 13 {
		return nil, fmt.Errorf("%w: lzma output truncated (%d bytes)", ErrCodec, len(encoded))
	}
	out := make([]byte, 0, len(encoded)-8)
	out = append(out, encoded[:5]...)
	out = append(out, encoded[13:]...)
	return out, nil
}
