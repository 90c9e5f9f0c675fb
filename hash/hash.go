// Package hash supplies the 128-bit murmur3 double hash shared by the
// Bloom filter's k probe positions and the auxiliary hash table's slot
// function.
package hash

import "github.com/spaolacci/murmur3"

// Sum128 hashes data into the (h1, h2) pair used by double hashing:
// pos_i = (h1 + i*h2) mod m.
func Sum128(data []byte) (h1, h2 uint64) {
	return murmur3.Sum128(data)
}
