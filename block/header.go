// Package block implements the DataBlock wire format (spec §4.4, §6): a
// fixed header followed by a delta-delta timestamp substream and an FCM
// value substream.
//
// The header layout and Parse/Bytes split are grounded on mebo's
// section/numeric_header.go (fixed-size struct, little-endian via
// endian.EndianEngine); the substream pairing and capacity-bounded writer
// are grounded on mebo's blob/numeric_blob.go reader-side shape.
package block

import (
	"github.com/adulau/akumuli-core/endian"
	"github.com/adulau/akumuli-core/status"
)

// HeaderSize is the fixed on-disk size of a DataBlock header: u64 series_id,
// u32 n_elements, u32 tail_offset, u32 checksum (spec §3, §6).
//
// The header alone doesn't say where the timestamp substream ends and the
// value substream begins (an open question spec §9 explicitly flags and
// declines to guess at). This is resolved here by a 4-byte little-endian
// length prefix immediately after the header, holding the byte length of
// the timestamp substream; see Writer.Commit and NewReader.
const HeaderSize = 8 + 4 + 4 + 4

// tsLengthPrefixSize is the size of the substream-split length prefix that
// immediately follows the fixed header.
const tsLengthPrefixSize = 4

// Header is the fixed-size prefix of a DataBlock.
type Header struct {
	SeriesID   uint64
	NElements  uint32
	TailOffset uint32
	Checksum   uint32
}

// Parse decodes a Header from the first HeaderSize bytes of data.
func (h *Header) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return status.ErrBadArgument
	}

	engine := endian.GetLittleEndianEngine()
	h.SeriesID = engine.Uint64(data[0:8])
	h.NElements = engine.Uint32(data[8:12])
	h.TailOffset = engine.Uint32(data[12:16])
	h.Checksum = engine.Uint32(data[16:20])

	return nil
}

// PutBytes serializes h into the first HeaderSize bytes of dst. dst must
// be at least HeaderSize bytes.
func (h *Header) PutBytes(dst []byte) {
	engine := endian.GetLittleEndianEngine()
	engine.PutUint64(dst[0:8], h.SeriesID)
	engine.PutUint32(dst[8:12], h.NElements)
	engine.PutUint32(dst[12:16], h.TailOffset)
	engine.PutUint32(dst[16:20], h.Checksum)
}
