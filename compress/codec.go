package compress

import "fmt"

// Compressor compresses a single input-log frame payload.
//
// Memory management:
//   - Returned slice is newly allocated and owned by the caller
//   - Input slice is not modified
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a single input-log frame payload.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// Algorithm identifies a compression algorithm by name.
type Algorithm string

const (
	AlgorithmNone Algorithm = "none"
	AlgorithmLZ4  Algorithm = "lz4"
)

// New constructs the Codec for the given algorithm.
//
// The input log's on-disk format is pinned to LZ4 (spec §6, "External
// Interfaces"); AlgorithmNone exists so tests can exercise the frame/volume
// plumbing without paying for compression.
func New(alg Algorithm) (Codec, error) {
	switch alg {
	case AlgorithmNone:
		return NewNoOpCompressor(), nil
	case AlgorithmLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("compress: unsupported algorithm %q", alg)
	}
}
