package bitstream

import "github.com/adulau/akumuli-core/status"

// Base128Writer has the exact same wire shape as VByteWriter; the type
// exists separately because Base128Reader is typed at read time while
// VByteReader always yields uint64. Writing is width-agnostic either way.
type Base128Writer struct {
	inner *VByteWriter
}

// NewBase128Writer wraps buf for writing.
func NewBase128Writer(buf []byte) *Base128Writer {
	return &Base128Writer{inner: NewVByteWriter(buf)}
}

// Write encodes v, which must already be representable as an unsigned
// value of the caller's intended width (callers of narrower widths cast up
// before calling, e.g. uint64(uint32Value)).
func (w *Base128Writer) Write(v uint64) error { return w.inner.Write(v) }

// Commit finalizes the writer and reports bytes used.
func (w *Base128Writer) Commit() (int, error) { return w.inner.Commit() }

// Size reports bytes written so far.
func (w *Base128Writer) Size() int { return w.inner.Size() }

// base128Width constrains the integer widths Base128Reader.Next can be
// instantiated with.
type base128Width interface {
	uint8 | uint16 | uint32 | uint64
}

// Base128Reader reads the same wire format as VByteReader but exposes a
// generic Next that zero-extends the decoded 64-bit value down to the
// requested destination width, erroring if the value overflows it.
type Base128Reader struct {
	inner *VByteReader
}

// NewBase128Reader wraps buf for reading.
func NewBase128Reader(buf []byte) *Base128Reader {
	return &Base128Reader{inner: NewVByteReader(buf)}
}

// Next decodes the next value and narrows it to T, returning
// status.ErrBadArgument if the decoded value does not fit in T.
func Next[T base128Width](r *Base128Reader) (T, error) {
	v, err := r.inner.Next()
	if err != nil {
		return 0, err
	}

	t := T(v)
	if uint64(t) != v {
		return 0, status.ErrBadArgument
	}
	return t, nil
}

// Pos reports the current read offset into the window.
func (r *Base128Reader) Pos() int { return r.inner.Pos() }
