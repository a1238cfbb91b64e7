package ddcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(data []byte, count int) []uint64 {
	out := make([]uint64, 0, count)
	for v := range NewDecoder().All(data, count) {
		out = append(out, v)
	}
	return out
}

func TestDeltaDelta_FixedStepGroups(t *testing.T) {
	const groups = 100
	values := make([]uint64, 0, groups*GroupSize)

	v := uint64(1000)
	for g := 0; g < groups; g++ {
		d := uint64(g%7 + 1)
		for i := 0; i < GroupSize; i++ {
			v += d
			values = append(values, v)
		}
	}

	enc := NewEncoder()
	enc.WriteSlice(values)
	data := enc.Commit()
	defer enc.Finish()

	got := collect(data, len(values))
	assert.Equal(t, values, got)
}

func TestDeltaDelta_PartialTrailingGroup(t *testing.T) {
	values := []uint64{5, 7, 9, 20, 1, 1, 1, 500000}

	enc := NewEncoder()
	enc.WriteSlice(values)
	data := enc.Commit()
	defer enc.Finish()

	require.Equal(t, len(values), enc.Len())
	assert.Equal(t, values, collect(data, len(values)))
}

func TestDeltaDelta_EmptyStream(t *testing.T) {
	enc := NewEncoder()
	data := enc.Commit()
	defer enc.Finish()

	assert.Empty(t, data)
	assert.Empty(t, collect(data, 0))
}
