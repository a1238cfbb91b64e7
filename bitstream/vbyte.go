// Package bitstream implements the unsigned variable-length integer codecs
// the rest of the storage core is layered on: VByte and Base128 (spec §4.1).
//
// Both codecs share the same wire shape (7 low bits per byte, continuation
// bit in the high bit, little-endian group order); Base128 differs only in
// that the reader is told the destination width up front and zero-extends.
// The style (explicit Writer/Reader over a fixed byte window) is grounded on mebo's internal/encoding varint helpers, adapted
// here into standalone writer/reader types since the spec calls for an
// explicit bounded window rather than an unbounded growing buffer.
package bitstream

import (
	"encoding/binary"

	"github.com/adulau/akumuli-core/status"
)

// maxVarintLen is the most bytes a single uint64 can expand to under
// 7-bits-per-byte continuation coding.
const maxVarintLen = binary.MaxVarintLen64 // 10

// VByteWriter writes unsigned varints into a caller-owned, fixed-size byte
// window. It never allocates or grows the window; Write returns
// status.ErrOverflow once the remaining space cannot hold the next value.
type VByteWriter struct {
	buf       []byte
	pos       int
	committed bool
}

// NewVByteWriter wraps buf for writing. The writer advances pos forward as
// values are written; buf[:pos] is untouched by previous callers' data.
func NewVByteWriter(buf []byte) *VByteWriter {
	return &VByteWriter{buf: buf}
}

// Write encodes a single unsigned value. Fails with status.ErrOverflow if
// fewer than maxVarintLen bytes remain in the window, matching the source's
// "fails when the remaining window cannot hold 10 bytes" rule — the writer
// doesn't compute the exact encoded length up front, it just guarantees a
// worst case fits.
func (w *VByteWriter) Write(v uint64) error {
	if w.committed {
		return status.ErrBadArgument
	}
	if len(w.buf)-w.pos < maxVarintLen {
		return status.ErrOverflow
	}

	w.pos += binary.PutUvarint(w.buf[w.pos:], v)
	return nil
}

// Commit finalizes the writer. There is no partial group to flush for
// VByte (each value is self-terminating), so Commit just marks the writer
// closed and reports the number of bytes used.
func (w *VByteWriter) Commit() (int, error) {
	if w.committed {
		return w.pos, status.ErrBadArgument
	}
	w.committed = true
	return w.pos, nil
}

// Size reports the number of bytes written so far.
func (w *VByteWriter) Size() int { return w.pos }

// VByteReader reads unsigned varints back out of a byte window written by
// VByteWriter. It stops at the first byte whose high bit is clear.
type VByteReader struct {
	buf []byte
	pos int
}

// NewVByteReader wraps buf for reading, starting at offset 0.
func NewVByteReader(buf []byte) *VByteReader {
	return &VByteReader{buf: buf}
}

// Next decodes the next unsigned value. Returns status.ErrNoData once the
// window is exhausted, status.ErrBadArgument on a malformed/truncated
// varint.
func (r *VByteReader) Next() (uint64, error) {
	if r.pos >= len(r.buf) {
		return 0, status.ErrNoData
	}

	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, status.ErrBadArgument
	}
	r.pos += n
	return v, nil
}

// Pos reports the current read offset into the window.
func (r *VByteReader) Pos() int { return r.pos }
