package block

import (
	"github.com/adulau/akumuli-core/ddcodec"
	"github.com/adulau/akumuli-core/endian"
	"github.com/adulau/akumuli-core/fcm"
	"github.com/adulau/akumuli-core/internal/hash"
	"github.com/adulau/akumuli-core/status"
)

// Writer encodes samples for a single series into a capacity-bounded
// buffer, producing a self-describing DataBlock (spec §4.4).
type Writer struct {
	seriesID  uint64
	buf       []byte
	capacity  int
	tsEnc     *ddcodec.Encoder
	valEnc    *fcm.Encoder
	n         uint32
	committed bool
}

// NewWriter constructs a writer that will encode into buf, which must have
// at least HeaderSize+tsLengthPrefixSize bytes of capacity.
func NewWriter(seriesID uint64, buf []byte) *Writer {
	return &Writer{
		seriesID: seriesID,
		buf:      buf,
		capacity: len(buf),
		tsEnc:    ddcodec.NewEncoder(),
		valEnc:   fcm.NewEncoder(),
	}
}

// Put encodes one (timestamp, value) pair. Returns status.ErrOverflow
// without recording the sample if doing so could exceed the writer's
// capacity.
//
// The admission check reserves each encoder's PendingWorstCase on top of
// its Size, not a flat per-sample estimate: both ddcodec and fcm batch
// several samples' worth of bytes behind a single flush (ddcodec's
// 16-element frame-of-reference group, fcm's paired control nibble), so
// Size alone understates what a subsequent Write or Commit could still add.
// Reserving PendingWorstCase on every Put keeps that debt bounded no matter
// how many samples are pending, so Commit can never overflow the caller's
// buffer once Put has admitted a sample.
func (w *Writer) Put(ts uint64, value float64) error {
	if w.committed {
		return status.ErrBadArgument
	}

	projected := HeaderSize + tsLengthPrefixSize +
		w.tsEnc.Size() + w.tsEnc.PendingWorstCase() +
		w.valEnc.Size() + w.valEnc.PendingWorstCase()
	if projected > w.capacity {
		return status.ErrOverflow
	}

	w.tsEnc.Write(ts)
	w.valEnc.Write(value)
	w.n++

	return nil
}

// Commit finalizes both substreams, writes the header, and returns the
// total number of bytes used in the buffer. Committing an already
// committed writer returns status.ErrBadArgument.
func (w *Writer) Commit() (int, error) {
	if w.committed {
		return 0, status.ErrBadArgument
	}
	w.committed = true

	tsBytes := w.tsEnc.Commit()
	valBytes := w.valEnc.Commit()
	defer w.tsEnc.Finish()
	defer w.valEnc.Finish()

	tsStart := HeaderSize + tsLengthPrefixSize
	valStart := tsStart + len(tsBytes)
	total := valStart + len(valBytes)

	if total > w.capacity {
		return 0, status.ErrOverflow
	}

	engine := endian.GetLittleEndianEngine()
	engine.PutUint32(w.buf[HeaderSize:tsStart], uint32(len(tsBytes))) //nolint:gosec

	copy(w.buf[tsStart:valStart], tsBytes)
	copy(w.buf[valStart:total], valBytes)

	h := Header{
		SeriesID:   w.seriesID,
		NElements:  w.n,
		TailOffset: uint32(total), //nolint:gosec
		Checksum:   hash.BlockChecksum(w.buf[HeaderSize:total]),
	}
	h.PutBytes(w.buf[:HeaderSize])

	return total, nil
}
