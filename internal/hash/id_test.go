package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeriesShard_Bounded(t *testing.T) {
	for _, numShards := range []int{1, 4, 16, 17} {
		for seriesID := uint64(0); seriesID < 500; seriesID++ {
			shard := SeriesShard(seriesID, numShards)
			assert.GreaterOrEqual(t, shard, 0)
			assert.Less(t, shard, numShards)
		}
	}
}

func TestSeriesShard_Deterministic(t *testing.T) {
	const numShards = 8
	for seriesID := uint64(0); seriesID < 100; seriesID++ {
		first := SeriesShard(seriesID, numShards)
		second := SeriesShard(seriesID, numShards)
		assert.Equal(t, first, second)
	}
}

func TestSeriesShard_SpreadsAcrossShards(t *testing.T) {
	const numShards = 4
	seen := make(map[int]bool)
	for seriesID := uint64(0); seriesID < 1000; seriesID++ {
		seen[SeriesShard(seriesID, numShards)] = true
	}
	assert.Len(t, seen, numShards)
}

func TestBlockChecksum_Deterministic(t *testing.T) {
	data := []byte("a data block payload")
	assert.Equal(t, BlockChecksum(data), BlockChecksum(data))
}

func TestBlockChecksum_DetectsMutation(t *testing.T) {
	data := []byte("a data block payload")
	original := BlockChecksum(data)

	mutated := append([]byte(nil), data...)
	mutated[0] ^= 0xFF

	assert.NotEqual(t, original, BlockChecksum(mutated))
}

func TestBlockChecksum_EmptyInput(t *testing.T) {
	assert.Equal(t, BlockChecksum(nil), BlockChecksum([]byte{}))
}
