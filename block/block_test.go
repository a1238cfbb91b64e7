package block

import (
	"math/rand"
	"testing"

	"github.com/adulau/akumuli-core/ddcodec"
	"github.com/adulau/akumuli-core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_RoundTrip(t *testing.T) {
	buf := make([]byte, 4096)
	w := NewWriter(42, buf)

	type sample struct {
		ts  uint64
		val float64
	}
	var samples []sample

	ts := uint64(1000)
	val := 0.0
	for i := 0; i < 200; i++ {
		ts += uint64(i % 5)
		val += float64(i%3) - 1
		require.NoError(t, w.Put(ts, val))
		samples = append(samples, sample{ts, val})
	}

	n, err := w.Commit()
	require.NoError(t, err)
	require.Greater(t, n, 0)

	r, err := NewReader(buf, true)
	require.NoError(t, err)
	defer r.Release()
	assert.Equal(t, uint64(42), r.GetID())
	assert.Equal(t, len(samples), r.NElements())

	for _, s := range samples {
		gotTS, gotVal, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, s.ts, gotTS)
		assert.Equal(t, s.val, gotVal)
	}

	_, _, err = r.Next()
	assert.ErrorIs(t, err, status.ErrNoData)
}

func TestBlock_OverflowThenCommit(t *testing.T) {
	buf := make([]byte, 4096)
	w := NewWriter(7, buf)

	rng := rand.New(rand.NewSource(1))
	written := 0
	ts := uint64(rng.Int63n(1000))
	val := 0.0

	for i := 0; ; i++ {
		skew := uint64(rng.Intn(5))
		ts += skew
		val += rng.NormFloat64()

		err := w.Put(ts, val)
		if err != nil {
			assert.ErrorIs(t, err, status.ErrOverflow)
			break
		}
		written++
		if i > 100000 {
			t.Fatal("never overflowed")
		}
	}

	n, err := w.Commit()
	require.NoError(t, err)
	require.LessOrEqual(t, n, len(buf))

	r, err := NewReader(buf, true)
	require.NoError(t, err)
	defer r.Release()
	assert.Equal(t, written, r.NElements())

	count := 0
	for {
		_, _, err := r.Next()
		if err != nil {
			assert.ErrorIs(t, err, status.ErrNoData)
			break
		}
		count++
	}
	assert.Equal(t, written, count)
}

// TestBlock_OverflowAtGroupBoundary uses a tight buffer and large monotonic
// timestamp skew so the writes that straddle a ddcodec 16-sample group
// boundary carry near-maximum-width varints. This stresses the admission
// check's accounting for the burst flushGroup can add in a single Write:
// Put must never admit a sample that leaves Commit unable to fit what it
// already accepted.
func TestBlock_OverflowAtGroupBoundary(t *testing.T) {
	buf := make([]byte, 300)
	w := NewWriter(99, buf)

	ts := uint64(1) << 40
	val := 1e308
	written := 0

	for i := 0; ; i++ {
		// Alternate a tiny and a huge skew so each group's frame-of-reference
		// minimum stays small while most deltas rebase to a near-max-width
		// varint offset, instead of every delta collapsing to the same
		// constant (which would rebase to an all-zero, 1-byte offset).
		if i%2 == 0 {
			ts += 1
		} else {
			ts += uint64(1) << 48
		}
		val = -val

		err := w.Put(ts, val)
		if err != nil {
			assert.ErrorIs(t, err, status.ErrOverflow)
			break
		}
		written++
		if i > 10000 {
			t.Fatal("never overflowed")
		}
	}
	require.Greater(t, written, ddcodec.GroupSize, "test should cross at least one group boundary")

	n, err := w.Commit()
	require.NoError(t, err, "Commit must succeed on every sample Put already admitted")
	require.LessOrEqual(t, n, len(buf))

	r, err := NewReader(buf, true)
	require.NoError(t, err)
	defer r.Release()
	assert.Equal(t, written, r.NElements())

	count := 0
	for {
		_, _, err := r.Next()
		if err != nil {
			assert.ErrorIs(t, err, status.ErrNoData)
			break
		}
		count++
	}
	assert.Equal(t, written, count)
}

func TestBlock_ChecksumMismatchRejected(t *testing.T) {
	buf := make([]byte, 256)
	w := NewWriter(1, buf)
	require.NoError(t, w.Put(1, 1.0))
	n, err := w.Commit()
	require.NoError(t, err)

	buf[n-1] ^= 0xFF

	_, err = NewReader(buf, true)
	assert.ErrorIs(t, err, status.ErrIO)
}
