// Package disklevel implements one on-disk tier: an ordered collection of
// disk runs, k-way merge of an upper tier's runs into this one, and run
// retirement.
package disklevel

import (
	"container/heap"
	"fmt"

	"github.com/abcdlsj/clsm/diskrun"
	"github.com/abcdlsj/clsm/scalar"
)

// Level is one on-disk tier of the store.
type Level[K scalar.Kind, V comparable] struct {
	dir             string
	level           int
	runSize         int
	numRuns         int
	mergeSize       int
	blockSize       int
	bfFalsePositive float64

	runs         []*diskrun.Run[K, V]
	activeRunIdx int
}

// New constructs a level with numRuns empty, preallocated disk runs of
// runSize entries each.
func New[K scalar.Kind, V comparable](dir string, level, runSize, numRuns, mergeSize, blockSize int, bfFalsePositive float64) (*Level[K, V], error) {
	lv := &Level[K, V]{
		dir: dir, level: level, runSize: runSize,
		numRuns: numRuns, mergeSize: mergeSize,
		blockSize: blockSize, bfFalsePositive: bfFalsePositive,
	}

	for i := 0; i < numRuns; i++ {
		r, err := diskrun.New[K, V](dir, level, i, runSize, blockSize, bfFalsePositive)
		if err != nil {
			return nil, err
		}
		lv.runs = append(lv.runs, r)
	}
	return lv, nil
}

// RunSize reports the fixed entry capacity of a run on this level.
func (lv *Level[K, V]) RunSize() int { return lv.runSize }

// MergeSize reports how many of this level's runs are folded together
// when merging into the next level down.
func (lv *Level[K, V]) MergeSize() int { return lv.mergeSize }

// IsFull reports whether every run slot on this level is occupied.
func (lv *Level[K, V]) IsFull() bool { return lv.activeRunIdx >= lv.numRuns }

// IsEmpty reports whether this level holds no runs yet.
func (lv *Level[K, V]) IsEmpty() bool { return lv.activeRunIdx == 0 }

// ActiveRunIdx reports the number of occupied run slots.
func (lv *Level[K, V]) ActiveRunIdx() int { return lv.activeRunIdx }

// RunAt returns the i-th run slot (occupied or not).
func (lv *Level[K, V]) RunAt(i int) *diskrun.Run[K, V] { return lv.runs[i] }

// EltsNums sums the live entry count across every occupied run.
func (lv *Level[K, V]) EltsNums() int {
	sum := 0
	for i := 0; i < lv.activeRunIdx; i++ {
		sum += lv.runs[i].Capacity()
	}
	return sum
}

// GetRunsToMerge returns this level's oldest mergeSize runs, the input to
// a merge into the next level down.
func (lv *Level[K, V]) GetRunsToMerge() []*diskrun.Run[K, V] {
	out := make([]*diskrun.Run[K, V], lv.mergeSize)
	copy(out, lv.runs[:lv.mergeSize])
	return out
}

// Search checks this level's runs newest to oldest.
func (lv *Level[K, V]) Search(key K) (V, bool) {
	for i := lv.activeRunIdx - 1; i >= 0; i-- {
		if v, ok := lv.runs[i].Search(key); ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// AddRunByArray writes a single sorted, already-merged array into the
// next free run slot, e.g. a memory tier flush into tier one.
func (lv *Level[K, V]) AddRunByArray(sorted []scalar.Pair[K, V]) error {
	if lv.activeRunIdx >= lv.numRuns {
		return fmt.Errorf("disklevel: level %d has no free run slot", lv.level)
	}
	if len(sorted) != lv.runSize {
		return fmt.Errorf("disklevel: level %d expected %d entries, got %d", lv.level, lv.runSize, len(sorted))
	}

	lv.runs[lv.activeRunIdx].BulkWrite(sorted)
	lv.activeRunIdx++
	return nil
}

type heapItem[K scalar.Kind, V comparable] struct {
	pair scalar.Pair[K, V]
	src  int
}

type minHeap[K scalar.Kind, V comparable] []heapItem[K, V]

func (h minHeap[K, V]) Len() int { return len(h) }
func (h minHeap[K, V]) Less(i, j int) bool {
	if h[i].pair.Key != h[j].pair.Key {
		return h[i].pair.Key < h[j].pair.Key
	}
	return h[i].src < h[j].src
}
func (h minHeap[K, V]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *minHeap[K, V]) Push(x any)   { *h = append(*h, x.(heapItem[K, V])) }
func (h *minHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// AddRuns k-way merges inputs (typically the upper tier's oldest
// mergeSize runs) into the next free run slot on this level. On ties the
// entry from the highest-indexed input wins (the heap's src tie-break
// pops duplicate keys in ascending input order, so the last one written
// to a given output slot is always the newest). When isLastLevel, a key
// whose surviving value equals tombstone is dropped entirely: it can
// never be shadowing an older value again.
func (lv *Level[K, V]) AddRuns(inputs []*diskrun.Run[K, V], isLastLevel bool, tombstone V) error {
	if lv.activeRunIdx >= lv.numRuns {
		return fmt.Errorf("disklevel: level %d has no free run slot", lv.level)
	}

	out := lv.runs[lv.activeRunIdx]

	h := &minHeap[K, V]{}
	heap.Init(h)
	cursors := make([]int, len(inputs))
	for i, in := range inputs {
		if in.Capacity() > 0 {
			heap.Push(h, heapItem[K, V]{pair: in.Entry(0), src: i})
			cursors[i] = 1
		}
	}

	j := -1
	hasLast := false
	var lastKey K

	for h.Len() > 0 {
		item := heap.Pop(h).(heapItem[K, V])

		if hasLast && item.pair.Key == lastKey {
			out.WriteAt(j, item.pair)
		} else {
			if j >= 0 && isLastLevel && out.Entry(j).Value == tombstone {
				j--
			}
			j++
			out.WriteAt(j, item.pair)
		}
		lastKey = item.pair.Key
		hasLast = true

		src := item.src
		if cursors[src] < inputs[src].Capacity() {
			heap.Push(h, heapItem[K, V]{pair: inputs[src].Entry(cursors[src]), src: src})
			cursors[src]++
		}
	}

	if isLastLevel && j >= 0 && out.Entry(j).Value == tombstone {
		j--
	}

	capacity := j + 1
	out.SetCapacity(capacity)
	out.ConstructIndex()
	if capacity > 0 {
		lv.activeRunIdx++
	}
	return nil
}

// FreeMergedRuns destroys this level's oldest mergeSize runs (their data
// now lives one tier down), shifts survivors into the freed run-ID
// slots and replenishes empty runs at the tail, restoring numRuns total
// run slots.
func (lv *Level[K, V]) FreeMergedRuns() error {
	toFree := lv.runs[:lv.mergeSize]
	for _, r := range toFree {
		if err := r.Destroy(); err != nil {
			return err
		}
	}

	survivors := append([]*diskrun.Run[K, V]{}, lv.runs[lv.mergeSize:]...)
	lv.activeRunIdx -= lv.mergeSize

	for i, r := range survivors {
		if err := r.Rename(i); err != nil {
			return err
		}
	}

	lv.runs = survivors
	for i := len(lv.runs); i < lv.numRuns; i++ {
		r, err := diskrun.New[K, V](lv.dir, lv.level, i, lv.runSize, lv.blockSize, lv.bfFalsePositive)
		if err != nil {
			return err
		}
		lv.runs = append(lv.runs, r)
	}
	return nil
}

// Close flushes and removes every run's backing file; the store keeps no
// on-disk data beyond process lifetime.
func (lv *Level[K, V]) Close() error {
	for _, r := range lv.runs {
		if err := r.Destroy(); err != nil {
			return err
		}
	}
	return nil
}
