package block

import (
	"github.com/adulau/akumuli-core/ddcodec"
	"github.com/adulau/akumuli-core/endian"
	"github.com/adulau/akumuli-core/fcm"
	"github.com/adulau/akumuli-core/internal/hash"
	"github.com/adulau/akumuli-core/internal/pool"
	"github.com/adulau/akumuli-core/status"
)

// Reader exposes the decoded contents of a DataBlock produced by Writer.
// Timestamps and values are decoded eagerly at construction — blocks are
// capacity-bounded (spec §3, up to a few thousand bytes), so materializing
// both substreams up front is cheap and keeps Next simple and allocation
// free. The backing slices come from internal/pool's typed slice pools;
// call Release once the Reader is no longer needed to return them.
type Reader struct {
	header Header
	// timestamps reuses the int64 slice pool; the uint64 bit pattern is
	// preserved exactly across the int64<->uint64 reinterpretation.
	timestamps []int64
	values     []float64
	cursor     int
	releaseTS  func()
	releaseVal func()
}

// NewReader parses data (a complete, committed DataBlock) and decodes both
// substreams. verifyChecksum controls whether the stored checksum is
// recomputed and compared; callers reading from untrusted storage should
// pass true.
func NewReader(data []byte, verifyChecksum bool) (*Reader, error) {
	var h Header
	if err := h.Parse(data); err != nil {
		return nil, err
	}

	if uint32(len(data)) < h.TailOffset { //nolint:gosec
		return nil, status.ErrBadArgument
	}
	payload := data[:h.TailOffset]

	if verifyChecksum {
		if hash.BlockChecksum(payload[HeaderSize:]) != h.Checksum {
			return nil, status.ErrIO
		}
	}

	engine := endian.GetLittleEndianEngine()
	tsStart := HeaderSize + tsLengthPrefixSize
	if len(payload) < tsStart {
		return nil, status.ErrBadArgument
	}
	tsLen := int(engine.Uint32(payload[HeaderSize:tsStart]))

	valStart := tsStart + tsLen
	if valStart > len(payload) {
		return nil, status.ErrBadArgument
	}

	n := int(h.NElements)
	timestamps, releaseTS := pool.GetInt64Slice(n)
	values, releaseVal := pool.GetFloat64Slice(n)

	i := 0
	for ts := range ddcodec.NewDecoder().All(payload[tsStart:valStart], n) {
		timestamps[i] = int64(ts) //nolint:gosec
		i++
	}
	tsGot := i

	i = 0
	for v := range fcm.NewDecoder().All(payload[valStart:], n) {
		values[i] = v
		i++
	}

	if tsGot != n || i != n {
		releaseTS()
		releaseVal()
		return nil, status.ErrBadArgument
	}

	return &Reader{
		header:     h,
		timestamps: timestamps,
		values:     values,
		releaseTS:  releaseTS,
		releaseVal: releaseVal,
	}, nil
}

// GetID returns the block's series id.
func (r *Reader) GetID() uint64 { return r.header.SeriesID }

// NElements returns the number of samples committed to the block.
func (r *Reader) NElements() int { return int(r.header.NElements) }

// Next returns the next (timestamp, value) pair. Returns status.ErrNoData
// once NElements() pairs have been returned.
func (r *Reader) Next() (uint64, float64, error) {
	if r.cursor >= len(r.timestamps) {
		return 0, 0, status.ErrNoData
	}

	ts, v := uint64(r.timestamps[r.cursor]), r.values[r.cursor] //nolint:gosec
	r.cursor++

	return ts, v, nil
}

// Release returns the Reader's decoded slices to their pools. Safe to call
// at most once; the Reader must not be used afterward.
func (r *Reader) Release() {
	if r.releaseTS != nil {
		r.releaseTS()
		r.releaseTS = nil
	}
	if r.releaseVal != nil {
		r.releaseVal()
		r.releaseVal = nil
	}
}
