// Package clsm implements an embedded, ordered log-structured-merge
// key-value store: a skip-list memory tier backed by cascading tiers of
// immutable, memory-mapped disk runs, with background merging and
// Bloom-filter-accelerated lookups.
package clsm

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/abcdlsj/clsm/bloom"
	"github.com/abcdlsj/clsm/clsmerrors"
	"github.com/abcdlsj/clsm/config"
	"github.com/abcdlsj/clsm/disklevel"
	"github.com/abcdlsj/clsm/hashtable"
	"github.com/abcdlsj/clsm/memtable"
	"github.com/abcdlsj/clsm/scalar"
)

// LSM is an embedded ordered key-value store over keys K and values V,
// with a per-store sentinel tombstone value.
type LSM[K scalar.Kind, V comparable] struct {
	eltsPerRun       int
	numRuns          int
	numToMerge       int
	blockSize        int
	diskRunsPerLevel int
	bfFalsePositive  float64
	fracMerged       float64
	dir              string
	maxSkipListLevel int

	tombstone V

	memRuns      []*memtable.SkipList[K, V]
	memFilters   []*bloom.Filter
	activeRunIdx int
	rng          *rand.Rand

	levelsMu sync.Mutex
	levels   []*disklevel.Level[K, V]

	mergeWG sync.WaitGroup

	onFatal func(error)
}

// New constructs a store rooted at the configured directory, with the
// given sentinel value marking a deletion.
func New[K scalar.Kind, V comparable](tombstone V, opts ...config.Option) (*LSM[K, V], error) {
	o, err := config.New(opts...)
	if err != nil {
		return nil, clsmerrors.Config("new", err)
	}

	numToMerge := int(math.Ceil(o.FracMerged * float64(o.NumRuns)))

	l := &LSM[K, V]{
		eltsPerRun:       o.EltsPerRun,
		numRuns:          o.NumRuns,
		numToMerge:       numToMerge,
		blockSize:        o.BlockSize,
		diskRunsPerLevel: o.DiskRunsPerLevel,
		bfFalsePositive:  o.BFFalsePositive,
		fracMerged:       o.FracMerged,
		dir:              o.Dir,
		maxSkipListLevel: o.MaxSkipListLevel,
		tombstone:        tombstone,
		rng:              rand.New(rand.NewSource(o.Seed)),
		onFatal:          o.OnFatal,
	}
	if l.onFatal == nil {
		l.onFatal = func(err error) {
			fmt.Fprintf(os.Stderr, "clsm: fatal: %v\n", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, clsmerrors.IO("mkdir", err)
	}

	tier1RunSize := numToMerge * o.EltsPerRun
	tier1MergeSize := int(math.Ceil(float64(o.DiskRunsPerLevel) * o.FracMerged))
	lvl1, err := disklevel.New[K, V](o.Dir, 1, tier1RunSize, o.DiskRunsPerLevel, tier1MergeSize, o.BlockSize, o.BFFalsePositive)
	if err != nil {
		return nil, clsmerrors.IO("new level 1", err)
	}
	l.levels = append(l.levels, lvl1)

	for i := 0; i < o.NumRuns; i++ {
		l.memRuns = append(l.memRuns, memtable.New[K, V](o.MaxSkipListLevel, l.rng))
		l.memFilters = append(l.memFilters, bloom.New(uint64(o.EltsPerRun), o.BFFalsePositive))
	}

	return l, nil
}

// Insert inserts or overwrites key with value. A run is retired from
// future inserts the moment it reaches eltsPerRun, so filling the last
// memory run triggers its flush immediately.
func (l *LSM[K, V]) Insert(key K, value V) {
	l.memRuns[l.activeRunIdx].InsertKey(key, value)
	l.memFilters[l.activeRunIdx].Add(scalar.Bytes(key))

	if l.memRuns[l.activeRunIdx].EltsNums() >= l.eltsPerRun {
		l.activeRunIdx++
		if l.activeRunIdx >= l.numRuns {
			l.doMerge()
		}
	}
}

// Delete marks key as deleted by inserting the store's tombstone value.
func (l *LSM[K, V]) Delete(key K) {
	l.Insert(key, l.tombstone)
}

// Search returns the value stored for key, if it is present and not
// tombstoned, checking the memory tier newest to oldest and then the
// disk tiers shallowest to deepest.
func (l *LSM[K, V]) Search(key K) (V, bool) {
	var zero V

	for i := l.activeRunIdx; i >= 0; i-- {
		run := l.memRuns[i]
		lo, has := run.Min()
		hi, _ := run.Max()
		if !has || key < lo || key > hi || !l.memFilters[i].Contains(scalar.Bytes(key)) {
			continue
		}
		if v, found := run.Search(key); found {
			if v == l.tombstone {
				return zero, false
			}
			return v, true
		}
	}

	l.joinMerge()

	l.levelsMu.Lock()
	defer l.levelsMu.Unlock()
	for _, lvl := range l.levels {
		if v, found := lvl.Search(key); found {
			if v == l.tombstone {
				return zero, false
			}
			return v, true
		}
	}

	return zero, false
}

// Range returns every live, non-tombstoned entry with key in [k1, k2),
// newest version only.
func (l *LSM[K, V]) Range(k1, k2 K) []memtable.Record[K, V] {
	if k2 <= k1 {
		return nil
	}

	dedup := hashtable.New[K, V](4096)
	var out []memtable.Record[K, V]

	for i := l.activeRunIdx; i >= 0; i-- {
		for _, rec := range l.memRuns[i].GetAllInRange(k1, k2) {
			if dedup.PutIfFirst(rec.Key, rec.Value) && rec.Value != l.tombstone {
				out = append(out, rec)
			}
		}
	}

	l.joinMerge()

	l.levelsMu.Lock()
	defer l.levelsMu.Unlock()
	for _, lvl := range l.levels {
		for j := lvl.ActiveRunIdx() - 1; j >= 0; j-- {
			run := lvl.RunAt(j)
			i1, i2 := run.GetRangeIndex(k1, k2)
			for idx := i1; idx < i2; idx++ {
				rec := run.Entry(idx)
				if dedup.PutIfFirst(rec.Key, rec.Value) && rec.Value != l.tombstone {
					out = append(out, rec)
				}
			}
		}
	}

	return out
}

// Size reports the number of live, non-tombstoned keys, computed as a
// range scan over [scalar.Min, scalar.Max); a key equal to scalar.Max is
// not counted.
func (l *LSM[K, V]) Size() int {
	return len(l.Range(scalar.Min[K](), scalar.Max[K]()))
}

func (l *LSM[K, V]) joinMerge() {
	l.mergeWG.Wait()
}

// doMerge detaches the oldest numToMerge memory runs, flushes them to
// disk on a background goroutine, and refills the memory tier.
func (l *LSM[K, V]) doMerge() {
	if l.numToMerge == 0 {
		return
	}

	detachedRuns := append([]*memtable.SkipList[K, V]{}, l.memRuns[:l.numToMerge]...)

	l.joinMerge()

	l.mergeWG.Add(1)
	go l.mergeRuns(detachedRuns)

	l.memRuns = append([]*memtable.SkipList[K, V]{}, l.memRuns[l.numToMerge:]...)
	l.memFilters = append([]*bloom.Filter{}, l.memFilters[l.numToMerge:]...)
	l.activeRunIdx -= l.numToMerge

	for i := l.activeRunIdx; i < l.numRuns; i++ {
		l.memRuns = append(l.memRuns, memtable.New[K, V](l.maxSkipListLevel, l.rng))
		l.memFilters = append(l.memFilters, bloom.New(uint64(l.eltsPerRun), l.bfFalsePositive))
	}
}

func (l *LSM[K, V]) mergeRuns(runs []*memtable.SkipList[K, V]) {
	defer l.mergeWG.Done()

	var merged []scalar.Pair[K, V]
	for _, r := range runs {
		merged = append(merged, r.GetAll()...)
	}
	// sort.Slice is not stable: if a key was overwritten across two of
	// these runs, both copies land in the same tier-1 run and which one
	// survives the sort is arbitrary, not guaranteed newest-wins.
	sort.Slice(merged, func(i, j int) bool { return merged[i].Key < merged[j].Key })

	l.levelsMu.Lock()
	defer l.levelsMu.Unlock()

	if l.levels[0].IsFull() {
		if err := l.mergeRunsToLevel(1); err != nil {
			l.onFatal(clsmerrors.IO("cascade merge", err))
			return
		}
	}

	if err := l.levels[0].AddRunByArray(merged); err != nil {
		l.onFatal(clsmerrors.IO("flush to tier 1", err))
		return
	}

	// Cascade immediately once this flush leaves tier 1 full, rather than
	// waiting to discover it on the following flush.
	if l.levels[0].IsFull() {
		if err := l.mergeRunsToLevel(1); err != nil {
			l.onFatal(clsmerrors.IO("cascade merge", err))
		}
	}
}

// mergeRunsToLevel merges levels[level-1]'s oldest runs into levels[level],
// creating that level if it doesn't exist yet and recursively cascading
// one level deeper first if levels[level] is already full.
func (l *LSM[K, V]) mergeRunsToLevel(level int) error {
	if level == len(l.levels) {
		prev := l.levels[level-1]
		newRunSize := prev.RunSize() * prev.MergeSize()
		newMergeSize := int(math.Ceil(float64(l.diskRunsPerLevel) * l.fracMerged))
		newLevel, err := disklevel.New[K, V](l.dir, level+1, newRunSize, l.diskRunsPerLevel, newMergeSize, l.blockSize, l.bfFalsePositive)
		if err != nil {
			return err
		}
		l.levels = append(l.levels, newLevel)
	}

	if l.levels[level].IsFull() {
		if err := l.mergeRunsToLevel(level + 1); err != nil {
			return err
		}
	}

	isLastLevel := level+1 == len(l.levels) && l.levels[level].IsEmpty()

	inputs := l.levels[level-1].GetRunsToMerge()
	if err := l.levels[level].AddRuns(inputs, isLastLevel, l.tombstone); err != nil {
		return err
	}
	return l.levels[level-1].FreeMergedRuns()
}

// Close joins any in-flight background merge and releases every disk run.
func (l *LSM[K, V]) Close() error {
	l.joinMerge()

	l.levelsMu.Lock()
	defer l.levelsMu.Unlock()
	for _, lvl := range l.levels {
		if err := lvl.Close(); err != nil {
			return err
		}
	}
	return nil
}

// bufferNums sums memory-tier element counts over [0, activeRunIdx]
// inclusive, including tombstones; used only for diagnostics, never for
// a correctness-critical decision.
func (l *LSM[K, V]) bufferNums() int {
	l.joinMerge()
	sum := 0
	for i := 0; i <= l.activeRunIdx && i < len(l.memRuns); i++ {
		sum += l.memRuns[i].EltsNums()
	}
	return sum
}

// DumpStats renders a human-readable summary of element counts per tier.
func (l *LSM[K, V]) DumpStats() string {
	var b strings.Builder
	fmt.Fprintf(&b, "elements (live): %d\n", l.Size())
	fmt.Fprintf(&b, "buffered (incl. tombstones): %d\n", l.bufferNums())

	l.levelsMu.Lock()
	defer l.levelsMu.Unlock()
	for i, lvl := range l.levels {
		fmt.Fprintf(&b, "disk level %d (incl. tombstones): %d\n", i+1, lvl.EltsNums())
	}
	return b.String()
}

// DumpElements renders every buffered and on-disk entry, newest first.
func (l *LSM[K, V]) DumpElements() string {
	l.joinMerge()

	var b strings.Builder
	for i := l.activeRunIdx; i >= 0; i-- {
		fmt.Fprintf(&b, "memory run %d:\n", i)
		for _, rec := range l.memRuns[i].GetAll() {
			fmt.Fprintf(&b, "  %v -> %v\n", rec.Key, rec.Value)
		}
	}

	l.levelsMu.Lock()
	defer l.levelsMu.Unlock()
	for i, lvl := range l.levels {
		fmt.Fprintf(&b, "disk level %d:\n", i+1)
		for j := lvl.ActiveRunIdx() - 1; j >= 0; j-- {
			run := lvl.RunAt(j)
			fmt.Fprintf(&b, "  run %d:\n", j)
			for k := 0; k < run.Capacity(); k++ {
				rec := run.Entry(k)
				fmt.Fprintf(&b, "    %v -> %v\n", rec.Key, rec.Value)
			}
		}
	}
	return b.String()
}
