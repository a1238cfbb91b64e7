package cache

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/adulau/akumuli-core/internal/hash"
	"github.com/adulau/akumuli-core/obslog"
	"github.com/adulau/akumuli-core/sequencer"
	"github.com/adulau/akumuli-core/status"
	"golang.org/x/sync/semaphore"
)

// BucketState is the state machine a Bucket moves through: open → closing
// → closed → drained (spec §5).
type BucketState int32

const (
	BucketOpen BucketState = iota
	BucketClosing
	BucketClosed
	BucketDrained
)

// numShards is the fixed shard count backing each Bucket's writer-local
// Sequences (spec §9's explicit sharded structure, replacing the original's
// enumerable thread-local storage).
const numShards = 16

// Bucket owns a sharded collection of per-writer Sequences, a capacity
// counter, and the Cache baseline it was created for.
type Bucket struct {
	shards   [numShards]*Sequence
	limiter  *semaphore.Weighted
	Baseline uint64
	state    atomic.Int32
	hooks    *obslog.Hooks
}

// NewBucket constructs an open Bucket bounded to sizeLimit admitted
// samples. hooks may be nil.
func NewBucket(sizeLimit int64, baseline uint64, hooks *obslog.Hooks) *Bucket {
	b := &Bucket{
		limiter:  semaphore.NewWeighted(sizeLimit),
		Baseline: baseline,
		hooks:    hooks,
	}
	for i := range b.shards {
		b.shards[i] = newSequence()
	}
	return b
}

// State returns the bucket's current state.
func (b *Bucket) State() BucketState { return BucketState(b.state.Load()) }

// Add stages one sample into the shard owned by writerID. The write is
// always recorded; status.ErrOverflow is returned once the bucket's
// capacity counter is exhausted, signaling the caller to trigger eviction
// (spec §4.6, §7).
func (b *Bucket) Add(ts, seriesID, offset, writerID uint64) error {
	shard := b.shards[hash.SeriesShard(writerID, numShards)]
	shard.add(ts, seriesID, offset)

	if !b.limiter.TryAcquire(1) {
		b.hooks.Notify(obslog.TagWarn, "bucket overflow")
		return status.ErrOverflow
	}
	return nil
}

// MarkClosing transitions an open bucket to closing. New baselines stop
// choosing it, but writers mid-write to their shard still complete (spec
// §5): Add never checks state, so an in-flight writer's append always
// lands in its Sequence regardless of the CAS below racing with it.
func (b *Bucket) MarkClosing() bool {
	return b.state.CompareAndSwap(int32(BucketOpen), int32(BucketClosing))
}

// Close transitions a closing bucket to closed, making it eligible for
// Merge.
func (b *Bucket) Close() bool {
	return b.state.CompareAndSwap(int32(BucketClosing), int32(BucketClosed))
}

// PreciseCount returns the exact number of admitted samples across every
// shard (cache.h Bucket::precise_count()), distinct from the limiter's
// approximate remaining-capacity state.
func (b *Bucket) PreciseCount() int {
	n := 0
	for _, s := range b.shards {
		n += s.size()
	}
	return n
}

// Merge requires the bucket be closed; otherwise it returns
// status.ErrBusy. It drains every shard, producing one ascending
// (timestamp, series_id) order via Sequencer's k-way merge.
func (b *Bucket) Merge() ([]sequencer.Sample, error) {
	if b.State() != BucketClosed {
		return nil, status.ErrBusy
	}

	seq := sequencer.New(numShards)
	for _, shard := range b.shards {
		for _, e := range shard.drainSorted() {
			seq.Add(sequencer.Sample{Timestamp: e.timestamp, SeriesID: e.seriesID, Offset: e.offset})
		}
	}

	out := seq.Merge()
	b.state.Store(int32(BucketDrained))

	return out, nil
}

// Search scans every shard for entries with timestamp in [lo, hi] and
// returns them merged in sort order. Unlike Merge, Search is non-
// destructive and usable regardless of bucket state.
func (b *Bucket) Search(ctx context.Context, lo, hi uint64) ([]sequencer.Sample, error) {
	var all []entry
	for _, shard := range b.shards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		all = append(all, shard.searchRange(lo, hi)...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].less(all[j]) })

	return toSamples(all), nil
}
