package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/adulau/akumuli-core/obslog"
	"github.com/adulau/akumuli-core/sequencer"
	"github.com/adulau/akumuli-core/status"
	"golang.org/x/sync/errgroup"
)

// Config holds the only recognized Cache options (spec §6): TTL is
// expressed directly in the caller's timestamp unit rather than as a
// wall-clock time.Duration, since Sample.Timestamp is an opaque uint64 —
// the original's "Duration" is about lateness tolerance, not calendar
// time.
type Config struct {
	TTL     uint64 // max lateness, in baseline units, a sample may lag min_baseline
	MaxSize int64  // max admitted samples per Bucket
	Shift   uint8  // bucket_baseline = timestamp >> Shift
}

// Cache buckets incoming samples by baseline = timestamp >> shift, evicting
// the oldest bucket on overflow (spec §4.7).
type Cache struct {
	cfg Config

	mu          sync.Mutex
	buckets     map[uint64]*Bucket
	ordered     []*Bucket // newest to oldest
	minBaseline uint64
	maxBaseline uint64
	hasBaseline bool
	hooks       *obslog.Hooks
}

// New constructs an empty Cache. hooks may be nil; pass obslog.FromZap(...)
// to get structured logging on overflow and late-write events.
func New(cfg Config, hooks ...*obslog.Hooks) *Cache {
	c := &Cache{
		cfg:     cfg,
		buckets: make(map[uint64]*Bucket),
	}
	if len(hooks) > 0 {
		c.hooks = hooks[0]
	}
	return c
}

// AddEntry routes one sample to its baseline's Bucket, creating the Bucket
// if this is the first sample for that baseline. Returns status.ErrLateWrite
// without side effects if the sample is too old; returns status.ErrOverflow
// (sample is still recorded) with an estimated drainable count when
// admitting it pushed some bucket over capacity.
func (c *Cache) AddEntry(ts, seriesID, offset, writerID uint64) (nSwapped int, err error) {
	baseline := ts >> c.cfg.Shift

	c.mu.Lock()
	if c.hasBaseline && baseline+c.cfg.TTL < c.minBaseline {
		c.mu.Unlock()
		c.hooks.Notify(obslog.TagWarn, "late write rejected")
		return 0, status.ErrLateWrite
	}

	bucket, ok := c.buckets[baseline]
	if !ok {
		bucket = NewBucket(c.cfg.MaxSize, baseline, c.hooks)
		c.buckets[baseline] = bucket
		c.insertOrdered(bucket)
		c.updateBounds(baseline)
	}
	c.mu.Unlock()

	addErr := bucket.Add(ts, seriesID, offset, writerID)
	if addErr == nil {
		return 0, nil
	}

	oldest := c.oldestLive()
	if oldest == nil {
		return 0, addErr
	}
	oldest.MarkClosing()

	return oldest.PreciseCount(), status.ErrOverflow
}

// insertOrdered keeps ordered sorted newest-to-oldest by baseline. Called
// with mu held.
func (c *Cache) insertOrdered(b *Bucket) {
	idx := sort.Search(len(c.ordered), func(i int) bool { return c.ordered[i].Baseline < b.Baseline })
	c.ordered = append(c.ordered, nil)
	copy(c.ordered[idx+1:], c.ordered[idx:])
	c.ordered[idx] = b
}

// updateBounds updates (min, max) baseline tracking. Called with mu held.
func (c *Cache) updateBounds(baseline uint64) {
	if !c.hasBaseline {
		c.minBaseline, c.maxBaseline, c.hasBaseline = baseline, baseline, true
		return
	}
	if baseline < c.minBaseline {
		c.minBaseline = baseline
	}
	if baseline > c.maxBaseline {
		c.maxBaseline = baseline
	}
}

func (c *Cache) oldestLive() *Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.ordered) - 1; i >= 0; i-- {
		if c.ordered[i].State() != BucketDrained {
			return c.ordered[i]
		}
	}
	return nil
}

// PickLast drains exactly one fully-closed oldest Bucket, writing its
// merged samples into out. Returns status.ErrNoData if no bucket is
// drainable, status.ErrNoMem if out is smaller than that bucket's element
// count.
func (c *Cache) PickLast(out []sequencer.Sample) (n int, err error) {
	bucket := c.oldestDrainable()
	if bucket == nil {
		return 0, status.ErrNoData
	}

	count := bucket.PreciseCount()
	if len(out) < count {
		return 0, status.ErrNoMem
	}

	samples, err := bucket.Merge()
	if err != nil {
		return 0, err
	}

	n = copy(out, samples)

	c.mu.Lock()
	delete(c.buckets, bucket.Baseline)
	c.mu.Unlock()

	return n, nil
}

// oldestDrainable finds the oldest bucket and forces its state to closed
// if it was still closing; no further writer can be routed to it once it
// isn't the newest-matching baseline anymore (see AddEntry, which only
// ever creates new buckets, never re-opens evicted ones).
func (c *Cache) oldestDrainable() *Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.ordered) - 1; i >= 0; i-- {
		b := c.ordered[i]
		switch b.State() {
		case BucketDrained:
			continue
		case BucketOpen:
			b.MarkClosing()
			fallthrough
		case BucketClosing:
			b.Close()
			return b
		case BucketClosed:
			return b
		}
	}
	return nil
}

// Search fans out across every Bucket whose baseline could contain a
// sample with timestamp in [lo, hi], k-way merging their results. The
// fan-out uses errgroup, grounded on the same pattern influxdb's
// tsdb/series_file.go uses for partitioned concurrent work.
func (c *Cache) Search(ctx context.Context, lo, hi uint64) ([]sequencer.Sample, error) {
	c.mu.Lock()
	candidates := make([]*Bucket, 0, len(c.ordered))
	for _, b := range c.ordered {
		if b.Baseline >= (lo>>c.cfg.Shift) && b.Baseline <= (hi>>c.cfg.Shift) {
			candidates = append(candidates, b)
		}
	}
	c.mu.Unlock()

	results := make([][]sequencer.Sample, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range candidates {
		i, b := i, b
		g.Go(func() error {
			res, err := b.Search(gctx, lo, hi)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []sequencer.Sample
	for _, r := range results {
		merged = append(merged, r...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Less(merged[j]) })

	return merged, nil
}

// Clear removes every bucket and resets baseline bounds (cache.h
// Cache::clear()).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buckets = make(map[uint64]*Bucket)
	c.ordered = nil
	c.minBaseline, c.maxBaseline, c.hasBaseline = 0, 0, false
}
