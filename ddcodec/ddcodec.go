// Package ddcodec implements the delta-delta integer codec (spec §4.2):
// chunked frame-of-reference coding over fixed-size groups, layered atop
// the bitstream VByte format.
//
// Style is grounded on mebo's internal/encoding/ts_delta.go (pooled output
// buffer, Write/WriteSlice/Bytes lifecycle, local varint/zigzag helpers,
// iter.Seq decoding); the algorithm itself is the spec's group-FOR scheme
// rather than mebo's continuous delta-of-delta chain.
package ddcodec

import (
	"encoding/binary"
	"iter"

	"github.com/adulau/akumuli-core/bitstream"
	"github.com/adulau/akumuli-core/internal/pool"
)

// GroupSize is G from spec §4.2: the fixed number of elements processed
// together as one frame-of-reference group.
const GroupSize = 16

// Encoder compresses a u64 stream using group-wise delta + frame-of-reference
// coding: within each group of GroupSize, every element is first turned into
// a delta from the running previous value, then every delta in the group is
// re-based against the group's minimum delta so only non-negative offsets
// need to be varint-encoded.
type Encoder struct {
	prev  int64
	group [GroupSize]int64
	n     int
	buf   *pool.ByteBuffer
	count int
}

// NewEncoder returns an encoder ready to accept values via Write/WriteSlice.
func NewEncoder() *Encoder {
	return &Encoder{buf: pool.GetBlockBuffer()}
}

// Write appends a single value to the stream.
func (e *Encoder) Write(v uint64) {
	delta := int64(v) - e.prev //nolint:gosec
	e.prev = int64(v)          //nolint:gosec
	e.group[e.n] = delta
	e.n++
	e.count++

	if e.n == GroupSize {
		e.flushGroup(GroupSize)
		e.n = 0
	}
}

// WriteSlice appends every value in vs, in order.
func (e *Encoder) WriteSlice(vs []uint64) {
	for _, v := range vs {
		e.Write(v)
	}
}

// Commit flushes any partial trailing group — padded internally with
// repeats of the group's last real delta, which keeps the frame-of-reference
// spread (and so the encoded size) from growing just because the stream
// didn't end on a GroupSize boundary — and returns the encoded bytes.
//
// Commit is idempotent: calling it again with no intervening Write returns
// the same bytes.
func (e *Encoder) Commit() []byte {
	if e.n > 0 {
		last := e.group[e.n-1]
		for i := e.n; i < GroupSize; i++ {
			e.group[i] = last
		}
		e.flushGroup(GroupSize)
		e.n = 0
	}

	return e.buf.Bytes()
}

// Len returns the number of real (non-padding) values written.
func (e *Encoder) Len() int { return e.count }

// Size returns the number of bytes written to the internal buffer so far.
// It does not include the in-flight group sitting in e.group, which is
// invisible to Size until flushGroup runs — see PendingWorstCase.
func (e *Encoder) Size() int { return e.buf.Len() }

// PendingWorstCase returns the most additional bytes Size can still grow by
// on account of the encoder's in-flight group: one flushGroup call (fired by
// either the group's 16th Write or by Commit) always emits exactly one
// group-minimum varint plus GroupSize delta varints, each up to
// binary.MaxVarintLen64 bytes, regardless of how many of the group's slots
// hold real values versus Commit's padding. Callers doing admission control
// ahead of a Write (block.Writer.Put) must reserve this alongside Size.
func (e *Encoder) PendingWorstCase() int {
	return (GroupSize + 1) * binary.MaxVarintLen64
}

// Reset clears encoder state so it can be reused for a new stream. The
// underlying buffer is not released; call Finish for that.
func (e *Encoder) Reset() {
	e.prev = 0
	e.n = 0
	e.count = 0
	e.buf.Reset()
}

// Finish releases the pooled output buffer. The encoder must not be used
// afterward.
func (e *Encoder) Finish() {
	if e.buf != nil {
		pool.PutBlockBuffer(e.buf)
		e.buf = nil
	}
}

func (e *Encoder) flushGroup(n int) {
	m := e.group[0]
	for i := 1; i < n; i++ {
		if e.group[i] < m {
			m = e.group[i]
		}
	}

	e.appendZigzag(m)
	for i := 0; i < n; i++ {
		e.appendUnsigned(uint64(e.group[i] - m))
	}
}

func (e *Encoder) appendZigzag(v int64) {
	zigzag := (v << 1) ^ (v >> 63)
	e.appendUnsigned(uint64(zigzag))
}

func (e *Encoder) appendUnsigned(v uint64) {
	e.buf.Grow(binary.MaxVarintLen64)

	start := len(e.buf.B)
	w := bitstream.NewVByteWriter(e.buf.B[start:cap(e.buf.B)])
	if err := w.Write(v); err != nil {
		// Grow above guarantees a full maxVarintLen64 window; Write can
		// only fail if that guarantee were violated.
		panic(err)
	}
	e.buf.B = e.buf.B[:start+w.Size()]
}

// Decoder decodes a group-delta-FOR encoded stream produced by Encoder. It
// is stateless; All can be called repeatedly against the same encoded
// bytes.
type Decoder struct{}

// NewDecoder returns a stateless decoder.
func NewDecoder() Decoder { return Decoder{} }

// All yields every value in order. count must be the exact number of real
// values the matching Encoder saw (the wire format itself is silent about
// where padding starts within the final group — the caller, typically a
// block reader that tracked n_elements, supplies it).
func (d Decoder) All(data []byte, count int) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		prev := int64(0)
		offset := 0
		produced := 0

		for produced < count {
			mz, n, ok := decodeVarint(data, offset)
			if !ok {
				return
			}
			offset = n
			m := decodeZigZag64(mz)

			groupLen := GroupSize
			if remaining := count - produced; remaining < groupLen {
				groupLen = remaining
			}

			for i := 0; i < groupLen; i++ {
				dz, next, ok := decodeVarint(data, offset)
				if !ok {
					return
				}
				offset = next

				delta := m + int64(dz) //nolint:gosec
				prev += delta
				if !yield(uint64(prev)) { //nolint:gosec
					return
				}
				produced++
			}

			for i := groupLen; i < GroupSize; i++ {
				_, next, ok := decodeVarint(data, offset)
				if !ok {
					return
				}
				offset = next
			}
		}
	}
}

func decodeVarint(data []byte, offset int) (uint64, int, bool) {
	if offset >= len(data) {
		return 0, offset, false
	}

	r := bitstream.NewVByteReader(data[offset:])
	v, err := r.Next()
	if err != nil {
		return 0, offset, false
	}
	return v, offset + r.Pos(), true
}

func decodeZigZag64(v uint64) int64 {
	return int64((v >> 1) ^ -(v & 1)) //nolint:gosec
}
