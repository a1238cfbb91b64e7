// Package inputlog implements the write-ahead log of raw (id, timestamp,
// value) samples (spec §4.8, §4.9): an ordered list of LZ4-compressed
// volumes in one root directory, replayed in volume order on recovery.
//
// Grounded on original_source/libakumuli/storage_engine/input_log.cpp.
package inputlog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/adulau/akumuli-core/obslog"
	"github.com/adulau/akumuli-core/status"
	"go.uber.org/multierr"
)

var volumeNamePattern = regexp.MustCompile(`^inputlog(\d+)\.ils$`)

// Config holds the only recognized options for InputLog (spec §6).
type Config struct {
	RootDir    string
	MaxVolumes int
	VolumeSize int64
}

// InputLog is an ordered list of LZ4Volumes rooted at one directory. At
// most MaxVolumes are live at once; volumes_.front() (index 0 here) is the
// newest writable volume, the back is the oldest (spec §4.9).
type InputLog struct {
	cfg   Config
	hooks *obslog.Hooks

	mu            sync.Mutex
	volumes       []*LZ4Volume
	volumeCounter int
	readMode      bool
}

// New opens an InputLog in write mode: creates the root directory if
// needed and starts a single volume, inputlog0.ils.
func New(cfg Config, hooks ...*obslog.Hooks) (*InputLog, error) {
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("inputlog: create root dir %s: %w", cfg.RootDir, err)
	}
	l := &InputLog{cfg: cfg, hooks: pickHooks(hooks)}
	if err := l.addVolume(l.nextVolumeName()); err != nil {
		return nil, err
	}
	return l, nil
}

// Open opens an InputLog in read mode: scans the root directory for
// inputlog<N>.ils entries, sorted ascending by N, and opens them all
// read-only.
func Open(rootDir string, hooks ...*obslog.Hooks) (*InputLog, error) {
	l := &InputLog{
		cfg:      Config{RootDir: rootDir},
		hooks:    pickHooks(hooks),
		readMode: true,
	}
	if err := l.findAndOpenVolumes(); err != nil {
		return nil, err
	}
	return l, nil
}

func pickHooks(hooks []*obslog.Hooks) *obslog.Hooks {
	if len(hooks) > 0 {
		return hooks[0]
	}
	return nil
}

func (l *InputLog) findAndOpenVolumes() error {
	entries, err := os.ReadDir(l.cfg.RootDir)
	if err != nil {
		return fmt.Errorf("inputlog: read root dir %s: %w", l.cfg.RootDir, err)
	}

	type candidate struct {
		name string
		n    int
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := volumeNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = append(found, candidate{e.Name(), n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	volumes := make([]*LZ4Volume, 0, len(found))
	for _, c := range found {
		v, err := OpenLZ4Volume(filepath.Join(l.cfg.RootDir, c.name))
		if err != nil {
			return err
		}
		volumes = append(volumes, v)
	}

	l.volumes = volumes
	l.volumeCounter += len(volumes)
	return nil
}

// Reopen re-scans the root directory and reopens every volume from
// scratch. Only valid for a read-mode InputLog (original's reopen()
// asserts volume_size_ == 0 && max_volumes_ == 0, i.e. write-mode fields
// are zero).
func (l *InputLog) Reopen() error {
	if !l.readMode {
		return fmt.Errorf("inputlog: Reopen is only valid in read mode: %w", status.ErrBadArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, v := range l.volumes {
		v.Close()
	}
	l.volumes = nil
	return l.findAndOpenVolumes()
}

// nextVolumeName returns the next "inputlog<counter>.ils" path under
// RootDir without consuming the counter; the original pairs
// get_volume_name() with add_volume() to do that atomically, carried
// through here the same way.
func (l *InputLog) nextVolumeName() string {
	return filepath.Join(l.cfg.RootDir, fmt.Sprintf("inputlog%d.ils", l.volumeCounter))
}

func (l *InputLog) addVolume(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("inputlog: volume %s already exists: %w", path, status.ErrBadArgument)
	}
	v, err := NewLZ4Volume(path, l.cfg.VolumeSize)
	if err != nil {
		return err
	}
	l.volumes = append([]*LZ4Volume{v}, l.volumes...)
	l.volumeCounter++
	return nil
}

func (l *InputLog) removeOldestVolume() error {
	n := len(l.volumes)
	if n == 0 {
		return nil
	}
	oldest := l.volumes[n-1]
	l.volumes = l.volumes[:n-1]
	l.hooks.Notify(obslog.TagInfo, "removing volume "+oldest.Path())
	return oldest.DeleteFile()
}

// Append forwards to the newest volume. If that write overflows and the
// InputLog is already at MaxVolumes, the ids present only in the oldest
// volume's index — not covered by the union of every newer volume's index
// — are "stale" and appended to staleIDs (spec §4.9, §8 "stale-id law").
// Rotation itself is triggered by the caller via Rotate.
func (l *InputLog) Append(id, ts uint64, value float64, staleIDs *[]uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.volumes) == 0 {
		return fmt.Errorf("inputlog: no volumes: %w", status.ErrBadArgument)
	}

	err := l.volumes[0].Append(id, ts, value)
	if err == status.ErrOverflow && len(l.volumes) == l.cfg.MaxVolumes {
		union := roaring64.New()
		for i := 0; i < len(l.volumes)-1; i++ {
			union.Or(l.volumes[i].Index())
		}
		stale := l.volumes[len(l.volumes)-1].Index().Clone()
		stale.AndNot(union)

		it := stale.Iterator()
		for it.HasNext() {
			*staleIDs = append(*staleIDs, it.Next())
		}
	}
	return err
}

// Rotate drops the oldest volume if the log is at capacity, then opens a
// new newest volume under the next counter (spec §4.9).
func (l *InputLog) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.volumes) >= l.cfg.MaxVolumes {
		if err := l.removeOldestVolume(); err != nil {
			return err
		}
	}
	return l.addVolume(l.nextVolumeName())
}

// ReadNext streams records from the front (oldest un-drained, since read
// mode orders volumes[0] as the numerically-smallest counter) volume,
// popping it and continuing once exhausted. A volume-level ReadNext
// returning (0, nil) means "this volume is drained" (spec §12's resolution
// of the original's read_next ambiguity) rather than an error, so this
// loop advances past it instead of aborting; any non-nil error aborts
// immediately. Returns (0, nil) once every volume is drained.
func (l *InputLog) ReadNext(ids, ts []uint64, xs []float64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		if len(l.volumes) == 0 {
			return 0, nil
		}
		n, err := l.volumes[0].ReadNext(ids, ts, xs)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
		l.volumes[0].Close()
		l.volumes = l.volumes[1:]
	}
}

// DeleteFiles deletes the file of every volume the log currently holds
// (spec §12, for test teardown and log decommissioning). Volumes already
// popped by ReadNext or removed by Rotate are not touched.
func (l *InputLog) DeleteFiles() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs error
	for _, v := range l.volumes {
		errs = multierr.Append(errs, v.DeleteFile())
	}
	l.volumes = nil
	return errs
}

// Close closes every volume's file handle without deleting it, aggregating
// any errors with multierr.
func (l *InputLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs error
	for _, v := range l.volumes {
		errs = multierr.Append(errs, v.Close())
	}
	return errs
}
