package block

import "github.com/adulau/akumuli-core/status"

// NComponents and ComponentSize realize spec §4.4's IOVec scatter-gather
// form: NComponents equal ComponentSize buffers whose contiguous
// concatenation is byte-identical to a DataBlock written into one
// NComponents*ComponentSize contiguous buffer. No component count or size
// is given in original_source/ (only the contract — concatenation yields a
// valid DataBlock — is, in original_source/unittests/test_compression.cpp's
// test_block_iovec_compression); these values are chosen so their product
// matches spec.md's glossary-stated contiguous block capacity C (4096
// bytes), the same way fcm/'s bit layout is this module's own
// self-consistent design where no source was available.
const (
	NComponents   = 4
	ComponentSize = 1024
)

// BlockCapacity is the total byte budget an IOVecBlock's components add up
// to, matching the contiguous DataBlock capacity C referenced throughout
// spec.md.
const BlockCapacity = NComponents * ComponentSize

// IOVecWriter is DataBlockWriter's scatter-gather twin (spec §4.4): Put
// encodes into one contiguous scratch buffer exactly like Writer, then
// Commit distributes the result across NComponents independently allocated,
// fixed ComponentSize buffers. Concatenating Component(0)..Component(N-1)
// in order always yields a byte-identical DataBlock to what a Writer given
// the same (series_id, samples) and a BlockCapacity-byte buffer would have
// produced.
type IOVecWriter struct {
	inner      *Writer
	components [NComponents][]byte
	committed  bool
}

// NewIOVecWriter constructs a writer with BlockCapacity bytes of budget,
// split at Commit time into NComponents equal components.
func NewIOVecWriter(seriesID uint64) *IOVecWriter {
	return &IOVecWriter{
		inner: NewWriter(seriesID, make([]byte, BlockCapacity)),
	}
}

// Put encodes one (timestamp, value) pair. See Writer.Put.
func (w *IOVecWriter) Put(ts uint64, value float64) error {
	return w.inner.Put(ts, value)
}

// Commit finalizes the block and scatters it across NComponents fixed
// ComponentSize buffers, zero-padding past the last meaningful byte.
// Returns the total number of meaningful bytes, same as Writer.Commit.
func (w *IOVecWriter) Commit() (int, error) {
	if w.committed {
		return 0, status.ErrBadArgument
	}

	n, err := w.inner.Commit()
	if err != nil {
		return 0, err
	}
	w.committed = true

	flat := w.inner.buf
	for i := 0; i < NComponents; i++ {
		component := make([]byte, ComponentSize)
		copy(component, flat[i*ComponentSize:(i+1)*ComponentSize])
		w.components[i] = component
	}

	return n, nil
}

// Component returns component i's fixed ComponentSize buffer. Valid only
// after Commit; panics on an out-of-range i, same as a plain slice index.
func (w *IOVecWriter) Component(i int) []byte {
	return w.components[i]
}

// IOVecReader is DataBlockReader's scatter-gather twin: constructed from
// the NComponents fixed-size buffers an IOVecWriter produced (or any source
// providing the same layout), it concatenates them back into one
// contiguous buffer and decodes exactly as Reader does.
type IOVecReader struct {
	*Reader
}

// NewIOVecReader concatenates components in order and parses the result as
// a DataBlock. verifyChecksum is forwarded to NewReader. Call Release, same
// as on a plain Reader, once the IOVecReader is no longer needed.
func NewIOVecReader(components [NComponents][]byte, verifyChecksum bool) (*IOVecReader, error) {
	flat := make([]byte, 0, BlockCapacity)
	for i := 0; i < NComponents; i++ {
		flat = append(flat, components[i]...)
	}

	r, err := NewReader(flat, verifyChecksum)
	if err != nil {
		return nil, err
	}
	return &IOVecReader{Reader: r}, nil
}
