package lib

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// byteReader is a cursor over an in-memory buffer. UnityFS numeric
// fields are big-endian; strings are NUL-terminated.
type byteReader struct {
	buf []byte
	off int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (r *byteReader) remaining() int {
	return len(r.buf) - r.off
}

func (r *byteReader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrFormat, n, r.off, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *byteReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *byteReader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

// cstring reads bytes up to and including the next NUL and returns the
// string without the terminator.
func (r *byteReader) cstring() (string, error) {
	i := bytes.IndexByte(r.buf[r.off:], 0)
	if i < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrFormat, r.off)
	}
	s := string(r.buf[r.off : r.off+i])
	r.off += i + 1
	return s, nil
}

// align skips forward to the next multiple of n from the start of the
// buffer.
func (r *byteReader) align(n int) error {
	if rem := r.off % n; rem != 0 {
		_, err := r.take(n - rem)
		return err
	}
	return nil
}

// --- Write helpers ---

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

// padTo appends zero bytes until the buffer length is a multiple of n.
func padTo(buf *bytes.Buffer, n int) {
	if rem := buf.Len() % n; rem != 0 {
		buf.Write(make([]byte, n-rem))
	}
}
