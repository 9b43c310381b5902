package bytecode

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Reader: big-endian cursor over class-file and Code attribute bytes
// ---------------------------------------------------------------------------

// Reader reads big-endian values from a byte slice. Reads past the end do
// not panic; they return zero and record an error that Err reports. Callers
// check Err once after a group of reads.
type Reader struct {
	bytes []byte
	pos   int
	err   error
}

// NewReader creates a reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{bytes: b}
}

// Position returns the current read position.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the total number of bytes.
func (r *Reader) Len() int {
	return len(r.bytes)
}

// HasMore returns true if there are more bytes to read.
func (r *Reader) HasMore() bool {
	return r.err == nil && r.pos < len(r.bytes)
}

// Err returns the first underflow error, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.bytes) {
		r.err = fmt.Errorf("bytecode: read %d bytes at offset %d: truncated input (%d bytes)", n, r.pos, len(r.bytes))
		return false
	}
	return true
}

// ReadU1 reads an unsigned byte.
func (r *Reader) ReadU1() uint8 {
	if !r.need(1) {
		return 0
	}
	b := r.bytes[r.pos]
	r.pos++
	return b
}

// ReadS1 reads a signed byte.
func (r *Reader) ReadS1() int8 {
	return int8(r.ReadU1())
}

// ReadU2 reads a big-endian uint16.
func (r *Reader) ReadU2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.bytes[r.pos:])
	r.pos += 2
	return v
}

// ReadS2 reads a big-endian int16.
func (r *Reader) ReadS2() int16 {
	return int16(r.ReadU2())
}

// ReadU4 reads a big-endian uint32.
func (r *Reader) ReadU4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.bytes[r.pos:])
	r.pos += 4
	return v
}

// ReadS4 reads a big-endian int32.
func (r *Reader) ReadS4() int32 {
	return int32(r.ReadU4())
}

// ReadU8 reads a big-endian uint64.
func (r *Reader) ReadU8() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.bytes[r.pos:])
	r.pos += 8
	return v
}

// ReadBytes returns the next n bytes. The result aliases the input.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.bytes[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int) {
	if r.need(n) {
		r.pos += n
	}
}

// Align skips padding so the position is a multiple of n.
func (r *Reader) Align(n int) {
	if pad := (n - r.pos%n) % n; pad > 0 {
		r.Skip(pad)
	}
}
