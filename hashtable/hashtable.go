// Package hashtable implements the open-addressing, linear-probing table
// a range scan uses to deduplicate keys across memory runs and disk runs.
package hashtable

import (
	"github.com/abcdlsj/clsm/hash"
	"github.com/abcdlsj/clsm/scalar"
)

// Table is a fixed-growth open-addressing map from K to V.
type Table[K scalar.Kind, V comparable] struct {
	keys     []K
	values   []V
	occupied []bool
	size     int
	elts     int
}

// New allocates a table sized for roughly capacity entries.
func New[K scalar.Kind, V comparable](capacity int) *Table[K, V] {
	size := nextPow2(capacity)
	return &Table[K, V]{
		keys:     make([]K, size),
		values:   make([]V, size),
		occupied: make([]bool, size),
		size:     size,
	}
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (t *Table[K, V]) slot(key K) int {
	h1, _ := hash.Sum128(scalar.Bytes(key))
	return int(h1 % uint64(t.size))
}

func (t *Table[K, V]) resize() {
	oldKeys, oldValues, oldOccupied := t.keys, t.values, t.occupied
	t.size *= 2
	t.keys = make([]K, t.size)
	t.values = make([]V, t.size)
	t.occupied = make([]bool, t.size)
	t.elts = 0
	for i, occ := range oldOccupied {
		if occ {
			t.insert(oldKeys[i], oldValues[i])
		}
	}
}

func (t *Table[K, V]) insert(key K, value V) {
	idx := t.slot(key)
	for {
		if !t.occupied[idx] {
			t.keys[idx], t.values[idx], t.occupied[idx] = key, value, true
			t.elts++
			return
		}
		if t.keys[idx] == key {
			t.values[idx] = value
			return
		}
		idx = (idx + 1) % t.size
	}
}

// Get reports the value stored for key, if any.
func (t *Table[K, V]) Get(key K) (V, bool) {
	idx := t.slot(key)
	for i := 0; i < t.size; i++ {
		if !t.occupied[idx] {
			var zero V
			return zero, false
		}
		if t.keys[idx] == key {
			return t.values[idx], true
		}
		idx = (idx + 1) % t.size
	}
	var zero V
	return zero, false
}

// PutIfFirst inserts (key, value) only if key has not been seen before,
// reporting whether this is the first sighting. A repeat sighting never
// overwrites the stored value.
func (t *Table[K, V]) PutIfFirst(key K, value V) bool {
	if (t.elts+1)*2 > t.size {
		t.resize()
	}

	idx := t.slot(key)
	for {
		if !t.occupied[idx] {
			t.keys[idx], t.values[idx], t.occupied[idx] = key, value, true
			t.elts++
			return true
		}
		if t.keys[idx] == key {
			return false
		}
		idx = (idx + 1) % t.size
	}
}

// Len reports the number of distinct keys stored.
func (t *Table[K, V]) Len() int { return t.elts }
