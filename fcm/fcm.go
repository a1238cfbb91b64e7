// Package fcm implements the two-predictor FCM/DFCM float codec (spec
// §4.3): an FCM ("last value at this context") predictor and a DFCM
// ("last delta at this context") predictor race on every sample, and the
// prediction with more leading-zero bytes in its XOR against the actual
// value wins. Control information for a pair of samples is packed into a
// single byte (one nibble each), followed by the trimmed significant bytes
// of each sample's winning XOR.
//
// The bit-accumulator-free, byte-oriented framing and pooled output buffer
// are grounded on mebo's internal/encoding/numeric_gorilla.go XOR-codec
// style; the two-predictor selection and context-hashed tables are the
// spec's own scheme, not Gorilla's.
package fcm

import (
	"encoding/binary"
	"iter"
	"math"
	"math/bits"

	"github.com/adulau/akumuli-core/internal/pool"
)

// tableBits sizes the direct-mapped context tables used by both predictors.
const tableBits = 10

const tableSize = 1 << tableBits
const tableMask = tableSize - 1

func fcmHash(prevBits uint64) uint64 {
	return (prevBits ^ (prevBits >> 32)) & tableMask
}

func dfcmHash(prevDeltaBits uint64) uint64 {
	return (prevDeltaBits ^ (prevDeltaBits >> 32)) & tableMask
}

// predictor selector values, packed into bit 3 of a control nibble.
const (
	predictFCM  = 0
	predictDFCM = 1
)

// predState is the shared predictor context both Encoder and Decoder carry.
// Identical sequences of updates on both sides is what makes the XOR
// framing invertible.
type predState struct {
	fcmTable      []uint64
	dfcmTable     []uint64
	prevBits      uint64
	prevDeltaBits uint64
}

func newPredState() predState {
	return predState{
		fcmTable:  make([]uint64, tableSize),
		dfcmTable: make([]uint64, tableSize),
	}
}

// predict returns the FCM and DFCM predicted bit patterns for the next
// sample, given the current state (computed before that sample is known).
func (s *predState) predict() (fcmBits, dfcmBits uint64) {
	fcmBits = s.fcmTable[fcmHash(s.prevBits)]

	deltaPred := s.dfcmTable[dfcmHash(s.prevDeltaBits)]
	predictedVal := math.Float64frombits(s.prevBits) + math.Float64frombits(deltaPred)
	dfcmBits = math.Float64bits(predictedVal)

	return fcmBits, dfcmBits
}

// observe updates both predictor tables and the running context after a
// real sample's bits become known.
func (s *predState) observe(bits uint64) {
	fh := fcmHash(s.prevBits)
	dh := dfcmHash(s.prevDeltaBits)

	deltaBits := math.Float64bits(math.Float64frombits(bits) - math.Float64frombits(s.prevBits))

	s.fcmTable[fh] = bits
	s.dfcmTable[dh] = deltaBits
	s.prevDeltaBits = deltaBits
	s.prevBits = bits
}

// Encoder compresses a float64 stream using the FCM/DFCM predictor race.
type Encoder struct {
	state predState
	buf   *pool.ByteBuffer
	count int

	pendingHas     bool
	pendingNibble  byte
	pendingPayload [8]byte
	pendingLen     int
}

// NewEncoder returns an encoder ready to accept values via Write/WriteSlice.
func NewEncoder() *Encoder {
	return &Encoder{
		state: newPredState(),
		buf:   pool.GetBlockBuffer(),
	}
}

// Write encodes a single value.
func (e *Encoder) Write(v float64) {
	valBits := math.Float64bits(v)
	fcmBits, dfcmBits := e.state.predict()

	xorFCM := valBits ^ fcmBits
	xorDFCM := valBits ^ dfcmBits

	var choice byte
	var xor uint64
	if leadingZeroBytes(xorFCM) >= leadingZeroBytes(xorDFCM) {
		choice, xor = predictFCM, xorFCM
	} else {
		choice, xor = predictDFCM, xorDFCM
	}

	e.state.observe(valBits)
	e.count++

	nibble, payload, n := encodeXor(choice, xor)
	e.pushSample(nibble, payload, n)
}

// WriteSlice encodes every value in vs, in order.
func (e *Encoder) WriteSlice(vs []float64) {
	for _, v := range vs {
		e.Write(v)
	}
}

func (e *Encoder) pushSample(nibble byte, payload [8]byte, n int) {
	if !e.pendingHas {
		e.pendingHas = true
		e.pendingNibble = nibble
		e.pendingPayload = payload
		e.pendingLen = n
		return
	}

	controlByte := e.pendingNibble<<4 | nibble
	e.buf.Grow(1 + e.pendingLen + n)
	e.buf.B = append(e.buf.B, controlByte)
	e.buf.B = append(e.buf.B, e.pendingPayload[:e.pendingLen]...)
	e.buf.B = append(e.buf.B, payload[:n]...)
	e.pendingHas = false
}

// Commit flushes a dangling odd final sample (its control byte's second
// nibble is a zero-length "no bytes" placeholder the decoder never visits,
// since it stops after exactly count real samples) and returns the encoded
// bytes.
func (e *Encoder) Commit() []byte {
	if e.pendingHas {
		controlByte := e.pendingNibble << 4
		e.buf.Grow(1 + e.pendingLen)
		e.buf.B = append(e.buf.B, controlByte)
		e.buf.B = append(e.buf.B, e.pendingPayload[:e.pendingLen]...)
		e.pendingHas = false
	}

	return e.buf.Bytes()
}

// Len returns the number of values written.
func (e *Encoder) Len() int { return e.count }

// Size returns the number of bytes written to the internal buffer so far.
// It does not include a dangling odd sample held in pendingHas, which is
// invisible to Size until the next Write pairs it up or Commit flushes it
// alone — see PendingWorstCase.
func (e *Encoder) Size() int { return e.buf.Len() }

// PendingWorstCase returns the most additional bytes Size can still grow by
// on account of the encoder's held-back sample: either the next Write pairs
// it with a fresh sample and flushes both (1 control byte plus up to 8
// payload bytes each), or Commit flushes it alone (1 control byte plus up
// to 8 payload bytes). The former is the larger bound, so it is what's
// reserved. Callers doing admission control ahead of a Write
// (block.Writer.Put) must reserve this alongside Size.
func (e *Encoder) PendingWorstCase() int {
	return 1 + 8 + 8
}

// Reset clears encoder state for reuse. The underlying buffer is not
// released; call Finish for that.
func (e *Encoder) Reset() {
	e.state = newPredState()
	e.count = 0
	e.pendingHas = false
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

// leadingZeroBytes is bits.LeadingZeros64 rounded down to whole bytes; for
// a zero input it reports 8 (all bytes zero).
func leadingZeroBytes(v uint64) int {
	return bits.LeadingZeros64(v) / 8
}

// encodeXor packs choice and xor into a control nibble plus its trimmed
// big-endian payload. Codes 0-6 mean exactly that many significant bytes
// (code 0 is the degenerate all-zero match); code 7 means "7 or more",
// and in that case the full 8 bytes are written untrimmed.
func encodeXor(choice byte, xor uint64) (nibble byte, payload [8]byte, n int) {
	if xor == 0 {
		return choice << 3, payload, 0
	}

	lz := leadingZeroBytes(xor)
	significant := 8 - lz

	if significant >= 7 {
		binary.BigEndian.PutUint64(payload[:], xor)
		return choice<<3 | 7, payload, 8
	}

	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], xor)
	copy(payload[:significant], tmp[8-significant:])

	return choice<<3 | byte(significant), payload, significant
}

// decodeXor reverses encodeXor given the control nibble and the bytes
// immediately following the control byte. Returns the bytes consumed.
func decodeXor(nibble byte, data []byte) (xor uint64, consumed int) {
	code := nibble & 0x7

	switch {
	case code == 0:
		return 0, 0
	case code == 7:
		return binary.BigEndian.Uint64(data[:8]), 8
	default:
		var tmp [8]byte
		copy(tmp[8-code:], data[:code])
		return binary.BigEndian.Uint64(tmp[:]), int(code)
	}
}

// Decoder decodes a stream produced by Encoder. It is stateless across
// calls to All — each call reconstructs predictor state from scratch,
// mirroring a fresh Encoder.
type Decoder struct{}

// NewDecoder returns a stateless decoder.
func NewDecoder() Decoder { return Decoder{} }

// All yields every value in order. count must equal the number of real
// values the matching Encoder saw.
func (d Decoder) All(data []byte, count int) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		if count <= 0 {
			return
		}

		state := newPredState()
		offset := 0
		produced := 0

		for produced < count {
			if offset >= len(data) {
				return
			}
			controlByte := data[offset]
			offset++

			n1 := controlByte >> 4
			v1, consumed, ok := decodeSample(&state, n1, data[offset:])
			if !ok {
				return
			}
			offset += consumed
			if !yield(v1) {
				return
			}
			produced++

			if produced >= count {
				return
			}

			n2 := controlByte & 0xF
			v2, consumed, ok := decodeSample(&state, n2, data[offset:])
			if !ok {
				return
			}
			offset += consumed
			if !yield(v2) {
				return
			}
			produced++
		}
	}
}

func decodeSample(state *predState, nibble byte, rest []byte) (float64, int, bool) {
	code := nibble & 0x7
	need := 0
	switch {
	case code == 0:
		need = 0
	case code == 7:
		need = 8
	default:
		need = int(code)
	}
	if len(rest) < need {
		return 0, 0, false
	}

	xor, consumed := decodeXor(nibble, rest)

	choice := nibble >> 3
	fcmBits, dfcmBits := state.predict()

	var predBits uint64
	if choice == predictFCM {
		predBits = fcmBits
	} else {
		predBits = dfcmBits
	}

	valBits := predBits ^ xor
	v := math.Float64frombits(valBits)
	state.observe(valBits)

	return v, consumed, true
}
