// Package memtable provides an in-memory, ordered key-value store
// implemented using a skip list: the store's memory tier.
package memtable

import "github.com/abcdlsj/clsm/scalar"

// Scalar is the fixed-width, totally-ordered key domain shared with every
// other tier of the store: disk runs, the Bloom filter and the auxiliary
// hash table all key on the same numeric kinds.
type Scalar = scalar.Kind

// Record is a single key-value pair, shared with the disk tiers so a k-way
// merge candidate and a memtable entry are the same shape.
type Record[K Scalar, V comparable] = scalar.Pair[K, V]

// Run is the abstract memory run interface every memtable implementation
// satisfies.
type Run[K Scalar, V comparable] interface {
	InsertKey(key K, value V)
	DeleteKey(key K)
	Search(key K) (V, bool)
	EltsNums() int
	Min() (K, bool)
	Max() (K, bool)
	GetAll() []Record[K, V]
	GetAllInRange(k1, k2 K) []Record[K, V]
}
