package wire

import (
	"encoding/binary"
	"fmt"
)

// Writer accumulates big-endian encoded fields into a growable buffer.
// It plays the role the teacher's BitStream played for SA-MP, but every
// multi-byte field here is big-endian per spec.md §4.1.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity hinted by size.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

func (w *Writer) Byte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

func (w *Writer) Bytes(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) Uint16(v uint16) *Writer {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return w.Bytes(tmp[:])
}

func (w *Writer) Uint32(v uint32) *Writer {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return w.Bytes(tmp[:])
}

// Data returns the accumulated buffer.
func (w *Writer) Data() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

// PatchUint32 overwrites 4 already-written bytes at offset with v. The
// sender uses it to backfill the checksum word once the rest of the
// datagram has been encoded.
func PatchUint32(buf []byte, offset int, v uint32) {
	binary.BigEndian.PutUint32(buf[offset:offset+4], v)
}

// Reader walks a byte slice field by field, reporting a buffer-overflow
// error instead of panicking on malformed/truncated input — protocol
// validation failures are never fatal (spec.md §7).
type Reader struct {
	data   []byte
	offset int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

var errBufferOverflow = fmt.Errorf("wire: buffer overflow")

func (r *Reader) Remaining() int { return len(r.data) - r.offset }

func (r *Reader) Offset() int { return r.offset }

func (r *Reader) Byte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, errBufferOverflow
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return nil, errBufferOverflow
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
