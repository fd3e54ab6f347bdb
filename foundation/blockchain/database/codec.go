package database

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a serialized value ends before all of its
// fields could be read.
var ErrTruncated = errors.New("truncated data")

// reader consumes little endian fields from a buffer. The first failure
// sticks and every later read returns zero values.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.err = fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.remaining())
		return nil
	}

	b := r.buf[r.pos : r.pos+n]
	r.pos += n

	return b
}

func (r *reader) uint8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) int32() int32 {
	return int32(r.uint32())
}

// sized reads a 4 byte length followed by that many bytes.
func (r *reader) sized() []byte {
	n := r.uint32()
	if r.err != nil {
		return nil
	}
	if uint64(n) > uint64(r.remaining()) {
		r.err = fmt.Errorf("%w: length %d exceeds remaining %d", ErrTruncated, n, r.remaining())
		return nil
	}
	return r.bytes(int(n))
}

// done reports an error when bytes are left over after decoding.
func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.remaining() != 0 {
		return fmt.Errorf("unexpected %d trailing bytes", r.remaining())
	}
	return nil
}

// appendSized appends a 4 byte length followed by the bytes.
func appendSized(dst []byte, b []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}
