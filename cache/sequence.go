// Package cache implements the Bucket/Sequence/Cache layer (spec §4.6,
// §4.7): time-bucketed concurrent insertion with per-writer sub-sequences
// and eviction of the oldest bucket on overflow.
//
// Grounded on original_source/include/cache.h's Sequence/Bucket/Cache
// structs. The design note at spec §9 ("replace the enumerable
// thread-local with an explicit sharded structure... sharded by writer-id
// hash") is implemented directly: Bucket holds a fixed array of shards
// rather than a thread-local Sequence map.
package cache

import (
	"sort"
	"sync"

	"github.com/adulau/akumuli-core/sequencer"
)

// entry is the Go analogue of cache.h's Sequence::ValueType.
type entry struct {
	timestamp uint64
	seriesID  uint64
	offset    uint64
}

func (a entry) less(b entry) bool {
	if a.timestamp != b.timestamp {
		return a.timestamp < b.timestamp
	}
	return a.seriesID < b.seriesID
}

// Sequence is an ordered multimap keyed by (timestamp, series_id), used as
// one writer shard's staging area inside a Bucket.
//
// cache.h keeps a btree_multimap plus a separate scratch vector guarded by
// its own mutex; this is flattened into one mutex-guarded sorted slice
// since Go has no ordered-multimap in the standard library and the pack
// carries no B-tree dependency to reach for instead.
type Sequence struct {
	mu      sync.Mutex
	entries []entry
	sorted  bool
}

func newSequence() *Sequence {
	return &Sequence{}
}

// add inserts one entry. Insertion order is preserved for equal keys
// (FIFO per writer into its own Sequence, spec §5).
func (s *Sequence) add(ts, seriesID, offset uint64) {
	s.mu.Lock()
	s.entries = append(s.entries, entry{ts, seriesID, offset})
	s.sorted = false
	s.mu.Unlock()
}

// size reports the number of entries currently staged.
func (s *Sequence) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// drainSorted returns every staged entry sorted ascending by
// (timestamp, series_id), leaving the Sequence empty.
func (s *Sequence) drainSorted() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sorted {
		sort.SliceStable(s.entries, func(i, j int) bool { return s.entries[i].less(s.entries[j]) })
		s.sorted = true
	}
	out := s.entries
	s.entries = nil
	return out
}

// searchRange returns every staged entry with timestamp in [lo, hi],
// sorted ascending by (timestamp, series_id). Non-destructive.
func (s *Sequence) searchRange(lo, hi uint64) []entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entry, 0)
	for _, e := range s.entries {
		if e.timestamp >= lo && e.timestamp <= hi {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// toSamples converts a drained, sorted entry slice into sequencer.Sample
// values for a k-way merge.
func toSamples(entries []entry) []sequencer.Sample {
	out := make([]sequencer.Sample, len(entries))
	for i, e := range entries {
		out[i] = sequencer.Sample{Timestamp: e.timestamp, SeriesID: e.seriesID, Offset: e.offset}
	}
	return out
}
