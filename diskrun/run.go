// Package diskrun implements the immutable, memory-mapped sorted run that
// backs a single file on a disk level: a flat array of fixed-width
// key-value pairs, a sparse fence-pointer index and a per-run Bloom
// filter.
package diskrun

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abcdlsj/clsm/bloom"
	"github.com/abcdlsj/clsm/scalar"
	mm "github.com/edsrzf/mmap-go"
)

// Run is one immutable sorted file of up to runSize fixed-width entries.
type Run[K scalar.Kind, V comparable] struct {
	dir      string
	level    int
	runID    int
	filename string

	runSize   int
	capacity  int
	blockSize int

	keyWidth, valWidth, pairWidth int

	file *os.File
	data mm.MMap

	fence []K
	maxFP int

	minKey, maxKey K
	hasRange       bool

	filter *bloom.Filter
}

func path(dir string, level, runID int) string {
	return filepath.Join(dir, fmt.Sprintf("C_%d_%d.clsm", level, runID))
}

// New creates and preallocates a new, empty disk run file on the given
// level. runSize is the run's fixed entry capacity; the file is
// preallocated to runSize*pairWidth bytes and mapped read-write.
func New[K scalar.Kind, V comparable](dir string, level, runID, runSize, blockSize int, bfFalsePositive float64) (*Run[K, V], error) {
	keyWidth := scalar.Width[K]()
	valWidth := scalar.Width[V]()
	pairWidth := keyWidth + valWidth

	r := &Run[K, V]{
		dir: dir, level: level, runID: runID,
		runSize: runSize, blockSize: blockSize,
		keyWidth: keyWidth, valWidth: valWidth, pairWidth: pairWidth,
		filter:   bloom.New(uint64(max(runSize, 1)), bfFalsePositive),
		filename: path(dir, level, runID),
	}

	f, err := os.OpenFile(r.filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("diskrun: open %s: %w", r.filename, err)
	}

	size := int64(runSize) * int64(pairWidth)
	if size == 0 {
		size = int64(pairWidth)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("diskrun: truncate %s: %w", r.filename, err)
	}

	data, err := mm.Map(f, mm.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("diskrun: mmap %s: %w", r.filename, err)
	}

	r.file = f
	r.data = data
	return r, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (r *Run[K, V]) offset(i int) int { return i * r.pairWidth }

func (r *Run[K, V]) writeAt(i int, p scalar.Pair[K, V]) {
	off := r.offset(i)
	copy(r.data[off:off+r.keyWidth], scalar.Bytes(p.Key))
	copy(r.data[off+r.keyWidth:off+r.pairWidth], scalar.Bytes(p.Value))
}

func (r *Run[K, V]) readAt(i int) scalar.Pair[K, V] {
	off := r.offset(i)
	key := scalar.Decode[K](r.data[off : off+r.keyWidth])
	val := scalar.Decode[V](r.data[off+r.keyWidth : off+r.pairWidth])
	return scalar.Pair[K, V]{Key: key, Value: val}
}

// WriteAt writes a single entry at index i. Used by a disk level's k-way
// merge writer; callers must call ConstructIndex once all entries have
// been written.
func (r *Run[K, V]) WriteAt(i int, p scalar.Pair[K, V]) { r.writeAt(i, p) }

// Entry reads back the entry previously written at index i.
func (r *Run[K, V]) Entry(i int) scalar.Pair[K, V] { return r.readAt(i) }

// SetCapacity sets the number of live entries in the run.
func (r *Run[K, V]) SetCapacity(n int) { r.capacity = n }

// Capacity reports the number of live entries.
func (r *Run[K, V]) Capacity() int { return r.capacity }

// BulkWrite writes a full sorted array and builds the run's index in one
// step; used when flushing a memory run to tier one.
func (r *Run[K, V]) BulkWrite(sorted []scalar.Pair[K, V]) {
	for i, p := range sorted {
		r.writeAt(i, p)
	}
	r.capacity = len(sorted)
	r.ConstructIndex()
}

// ConstructIndex rebuilds the fence-pointer index, the Bloom filter and
// the min/max bounds from the entries currently written into the run.
// Must be called once after writing entries and before Search/GetRangeIndex.
func (r *Run[K, V]) ConstructIndex() {
	r.fence = r.fence[:0]
	r.maxFP = -1

	for i := 0; i < r.capacity; i++ {
		p := r.readAt(i)
		r.filter.Add(scalar.Bytes(p.Key))
		if i%r.blockSize == 0 {
			r.fence = append(r.fence, p.Key)
			r.maxFP++
		}
	}

	if r.capacity > 0 {
		r.minKey = r.readAt(0).Key
		r.maxKey = r.readAt(r.capacity - 1).Key
		r.hasRange = true
	} else {
		r.hasRange = false
	}
}

// fenceBlock returns the [start,end) index range of the block that would
// contain key: the whole run when it has a single fence, the first block
// when key is before the second fence, the last block when key is at or
// past the last fence, or a binary search over the interior fence array
// otherwise.
func (r *Run[K, V]) fenceBlock(key K) (int, int) {
	if r.maxFP <= 0 {
		return 0, r.capacity
	}
	if key < r.fence[1] {
		return 0, r.blockSize
	}
	if key >= r.fence[r.maxFP] {
		return r.blockSize * r.maxFP, r.capacity
	}

	lo, hi := 1, r.maxFP
	for lo < hi {
		mid := lo + (hi-lo)/2
		if key < r.fence[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	block := lo - 1
	start := block * r.blockSize
	end := start + r.blockSize
	if end > r.capacity {
		end = r.capacity
	}
	return start, end
}

func (r *Run[K, V]) binarySearch(start, end int, key K) (int, bool) {
	lo, hi := start, end
	for lo < hi {
		mid := lo + (hi-lo)/2
		mk := r.readAt(mid).Key
		switch {
		case key > mk:
			lo = mid + 1
		case key < mk:
			hi = mid
		default:
			return mid, true
		}
	}
	return lo, false
}

func (r *Run[K, V]) getIndex(key K) (int, bool) {
	start, end := r.fenceBlock(key)
	return r.binarySearch(start, end, key)
}

// Search returns the value stored for key, checking the min/max bounds
// and the Bloom filter before paying for a fence-pointer-bounded binary
// search.
func (r *Run[K, V]) Search(key K) (V, bool) {
	var zero V
	if !r.hasRange || key < r.minKey || key > r.maxKey || !r.filter.Contains(scalar.Bytes(key)) {
		return zero, false
	}
	idx, found := r.getIndex(key)
	if !found {
		return zero, false
	}
	return r.readAt(idx).Value, true
}

// GetRangeIndex returns the [idx1,idx2) index range covering keys in
// [k1,k2).
func (r *Run[K, V]) GetRangeIndex(k1, k2 K) (int, int) {
	if !r.hasRange || k1 > r.maxKey || k2 < r.minKey {
		return 0, 0
	}

	idx1 := 0
	if k1 > r.minKey {
		idx1, _ = r.getIndex(k1)
	}

	var idx2 int
	if k2 > r.maxKey {
		idx2 = r.capacity
	} else {
		idx2, _ = r.getIndex(k2)
	}
	return idx1, idx2
}

// MinKey and MaxKey report the run's bounds; ok is false for an empty run.
func (r *Run[K, V]) MinKey() (K, bool) { return r.minKey, r.hasRange }
func (r *Run[K, V]) MaxKey() (K, bool) { return r.maxKey, r.hasRange }

// Level and RunID report the run's file identity.
func (r *Run[K, V]) Level() int { return r.level }
func (r *Run[K, V]) RunID() int { return r.runID }

// Rename moves the run's backing file to a new run ID within the same
// level, used when a disk level retires its oldest runs and shifts the
// survivors down.
func (r *Run[K, V]) Rename(newRunID int) error {
	newPath := path(r.dir, r.level, newRunID)
	if err := os.Rename(r.filename, newPath); err != nil {
		return fmt.Errorf("diskrun: rename %s to %s: %w", r.filename, newPath, err)
	}
	r.runID = newRunID
	r.filename = newPath
	return nil
}

// Close flushes, unmaps and closes the backing file without deleting it.
func (r *Run[K, V]) Close() error {
	if err := r.data.Flush(); err != nil {
		return fmt.Errorf("diskrun: flush %s: %w", r.filename, err)
	}
	if err := r.data.Unmap(); err != nil {
		return fmt.Errorf("diskrun: unmap %s: %w", r.filename, err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("diskrun: close %s: %w", r.filename, err)
	}
	return nil
}

// Destroy closes the run and removes its backing file; the store keeps no
// on-disk data beyond process lifetime.
func (r *Run[K, V]) Destroy() error {
	if err := r.Close(); err != nil {
		return err
	}
	if err := os.Remove(r.filename); err != nil {
		return fmt.Errorf("diskrun: remove %s: %w", r.filename, err)
	}
	return nil
}
