package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// SeriesShard hashes a uint64 id into one of numShards buckets. cache.Bucket
// passes the writer id, so each writer is assigned one Sequence shard.
func SeriesShard(seriesID uint64, numShards int) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seriesID)
	h := xxhash.Sum64(buf[:])
	return int(h % uint64(numShards))
}

// BlockChecksum computes the truncated xxHash64 stored in a DataBlock header.
//
// The header's checksum field is 32 bits; the low 32 bits of the xxHash64
// digest are used rather than switching to a 32-bit hash algorithm, since
// xxhash/v2 only exposes the 64-bit variant.
func BlockChecksum(data []byte) uint32 {
	return uint32(xxhash.Sum64(data))
}
