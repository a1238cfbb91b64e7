// Package sequencer implements the patience-sort-style online sorter (spec
// §4.5): incoming samples are distributed across a bounded window of
// ascending SortedRuns, then drained by a k-way heap merge into one total
// order.
//
// Grounded on original_source/include/cache.h's Sequencer struct
// (runs_, window_size_, add/merge). container/heap is the merge's priority
// queue; no heap library appears anywhere in the retrieval pack, so the
// standard library is used here without an ecosystem alternative to prefer.
package sequencer

import "container/heap"

// Sample is one (timestamp, series_id, payload_offset) entry, the Go
// analogue of cache.h's TimeSeriesValue.
type Sample struct {
	Timestamp uint64
	SeriesID  uint64
	Offset    uint64
}

// Less orders samples ascending by (timestamp, series_id), the SortedRun
// key from spec §3.
func (a Sample) Less(b Sample) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.SeriesID < b.SeriesID
}

// SortedRun is a nonempty ascending run of Samples.
type SortedRun []Sample

// Sequencer buffers samples into a bounded window of SortedRuns and
// produces a single total order on Merge.
type Sequencer struct {
	runs   []SortedRun
	window int
}

// New returns a Sequencer with the given window size W: only the last W
// runs are eligible for extension by Add; older runs are sealed.
func New(window int) *Sequencer {
	if window < 1 {
		window = 1
	}
	return &Sequencer{window: window}
}

// Add inserts v using the patience-sort insertion rule: scan the eligible
// window for the first run whose back is ≤ v (so appending v keeps that
// run ascending), append there; otherwise start a new run at the end of
// the window.
func (s *Sequencer) Add(v Sample) {
	start := 0
	if len(s.runs) > s.window {
		start = len(s.runs) - s.window
	}

	for i := start; i < len(s.runs); i++ {
		run := s.runs[i]
		back := run[len(run)-1]
		if !v.Less(back) { // v >= back, i.e. back <= v
			s.runs[i] = append(run, v)
			return
		}
	}

	s.runs = append(s.runs, SortedRun{v})
}

// NumRuns reports the current number of sorted runs (eligible and sealed).
func (s *Sequencer) NumRuns() int { return len(s.runs) }

// Merge drains every run via a k-way heap merge into one slice sorted
// ascending by (timestamp, series_id), with ties broken by ascending
// source run index for a stable result (spec §4.5).
//
// check_outdated_runs() is left empty in the original source with no
// documented GC policy for runs that fall out of the window (spec §9, an
// explicitly flagged open question). This implementation resolves it by
// retiring every run, sealed or not, unconditionally on Merge: Merge is the
// Sequencer's only drain path, so there is nothing left to garbage collect
// between drains in single-batch usage, and no separate GC pass is needed.
func (s *Sequencer) Merge() []Sample {
	h := make(mergeHeap, 0, len(s.runs))
	for i, run := range s.runs {
		if len(run) > 0 {
			h = append(h, headItem{sample: run[0], runIdx: i, elemIdx: 0})
		}
	}
	heap.Init(&h)

	out := make([]Sample, 0, totalLen(s.runs))
	for h.Len() > 0 {
		item := heap.Pop(&h).(headItem)
		out = append(out, item.sample)

		next := item.elemIdx + 1
		if run := s.runs[item.runIdx]; next < len(run) {
			heap.Push(&h, headItem{sample: run[next], runIdx: item.runIdx, elemIdx: next})
		}
	}

	s.runs = nil

	return out
}

func totalLen(runs []SortedRun) int {
	n := 0
	for _, r := range runs {
		n += len(r)
	}
	return n
}

type headItem struct {
	sample  Sample
	runIdx  int
	elemIdx int
}

type mergeHeap []headItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i].sample, h[j].sample
	if a.Less(b) {
		return true
	}
	if b.Less(a) {
		return false
	}
	return h[i].runIdx < h[j].runIdx
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(headItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
