package lib

import (
	"bytes"
	"errors"
	"testing"

	"github.com/uaedb/uaedb-go/internal/uaedb/types"
)

// compressibleData returns a buffer with enough repetition that every
// codec shrinks it.
func compressibleData(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i / 64)
	}
	return out
}

func TestDecodeBlockStored(t *testing.T) {
	data := []byte("stored block payload")

	t.Run("identity", func(t *testing.T) {
		out, err := DecodeBlock(types.CompressionNone, data, len(data))
		if err != nil {
			t.Fatalf("DecodeBlock: %v", err)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("stored block changed: got %q", out)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := DecodeBlock(types.CompressionNone, data, len(data)+1)
		if !errors.Is(err, ErrCodec) {
			t.Fatalf("want ErrCodec, got %v", err)
		}
	})
}

func TestLZ4RoundTrip(t *testing.T) {
	data := compressibleData(4096)

	compressed, err := EncodeBlock(types.CompressionLZ4HC, data)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Fatalf("lz4hc did not shrink compressible input: %d >= %d", len(compressed), len(data))
	}

	for _, method := range []types.CompressionMethod{types.CompressionLZ4, types.CompressionLZ4HC} {
		out, err := DecodeBlock(method, compressed, len(data))
		if err != nil {
			t.Fatalf("DecodeBlock(%d): %v", method, err)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("lz4 round trip mismatch for method %d", method)
		}
	}
}

func TestLZ4DecodeLengthMismatch(t *testing.T) {
	data := compressibleData(4096)
	compressed, err := EncodeBlock(types.CompressionLZ4, data)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if _, err := DecodeBlock(types.CompressionLZ4, compressed, len(data)-1); !errors.Is(err, ErrCodec) {
		t.Fatalf("want ErrCodec for short declared length, got %v", err)
	}
}

func TestLZ4Incompressible(t *testing.T) {
	// A buffer with no repetition; HC cannot shrink it.
	data := make([]byte, 512)
	state := uint32(0x1234_5678)
	for i := range data {
		state = state*1664525 + 1013904223
		data[i] = byte(state >> 24)
	}

	_, err := encodeLZ4(data)
	if !errors.Is(err, errIncompressible) {
		t.Fatalf("want errIncompressible, got %v", err)
	}
}

func TestLZMARoundTrip(t *testing.T) {
	data := compressibleData(100_000)

	compressed, err := EncodeBlock(types.CompressionLZMA, data)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if len(compressed) < 5 {
		t.Fatalf("lzma output missing properties header: %d bytes", len(compressed))
	}
	if len(compressed) >= len(data) {
		t.Fatalf("lzma did not shrink compressible input: %d >= %d", len(compressed), len(data))
	}

	out, err := DecodeBlock(types.CompressionLZMA, compressed, len(data))
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("lzma round trip mismatch")
	}
}

func TestLZMADecodeTruncatedHeader(t *testing.T) {
	_, err := DecodeBlock(types.CompressionLZMA, []byte{0x5d, 0x00}, 10)
	if !errors.Is(err, ErrCodec) {
		t.Fatalf("want ErrCodec, got %v", err)
	}
}

func TestUnknownMethod(t *testing.T) {
	if _, err := DecodeBlock(types.CompressionLZHAM, nil, 0); !errors.Is(err, ErrCodec) {
		t.Fatalf("decode: want ErrCodec, got %v", err)
	}
	if _, err := EncodeBlock(types.CompressionLZHAM, nil); !errors.Is(err, ErrCodec) {
		t.Fatalf("encode: want ErrCodec, got %v", err)
	}
}
