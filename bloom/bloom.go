// Package bloom implements the per-run Bloom filter: an m-bit vector with
// k hash positions computed from a murmur3 double hash, sized from a
// target element count and a target false-positive rate.
package bloom

import (
	"math"

	"github.com/abcdlsj/clsm/hash"
	"github.com/bits-and-blooms/bitset"
)

// Filter is a fixed-size Bloom filter over arbitrary byte keys.
type Filter struct {
	m    uint
	k    uint
	bits *bitset.BitSet
}

// New sizes a filter for n expected elements at false-positive rate p:
// m = ceil(-n*ln(p) / ln(2)^2), k = ceil((m/n)*ln(2)).
func New(n uint64, p float64) *Filter {
	if n == 0 {
		n = 1
	}

	m := math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 1 {
		m = 1
	}
	k := math.Ceil((m / float64(n)) * math.Ln2)
	if k < 1 {
		k = 1
	}

	return &Filter{
		m:    uint(m),
		k:    uint(k),
		bits: bitset.New(uint(m)),
	}
}

func (f *Filter) positions(data []byte) []uint {
	h1, h2 := hash.Sum128(data)
	pos := make([]uint, f.k)
	for i := uint(0); i < f.k; i++ {
		pos[i] = uint((h1 + uint64(i)*h2) % uint64(f.m))
	}
	return pos
}

// Add marks data as present.
func (f *Filter) Add(data []byte) {
	for _, p := range f.positions(data) {
		f.bits.Set(p)
	}
}

// Contains reports whether data may be present; false means definitely not
// present, true means probably present.
func (f *Filter) Contains(data []byte) bool {
	for _, p := range f.positions(data) {
		if !f.bits.Test(p) {
			return false
		}
	}
	return true
}

// K returns the number of hash probes per operation.
func (f *Filter) K() uint { return f.k }

// M returns the bit-vector size.
func (f *Filter) M() uint { return f.m }
