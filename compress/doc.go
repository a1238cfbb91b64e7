// Package compress provides the compression codec used by the input-log volumes.
//
// The storage core compresses every on-disk frame with LZ4 (spec §4.8,
// §6 "External Interfaces" — the `inputlog<N>.ils` wire format is pinned to
// LZ4). The package still exposes a small Compressor/Decompressor/Codec
// interface trio, grounded on the teacher's compress package, so a volume
// can be constructed against the interface rather than a concrete type and
// so tests can swap in NoOpCompressor to isolate framing logic from the
// codec itself.
package compress
