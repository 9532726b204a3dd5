// Package hashing provides the pure byte-string hash primitives that the
// rest of dupefind is built on: Murmur3-32, xxHash-32, and xxHash-64. All
// three are deterministic and must match their canonical reference
// implementations bit-exactly; see hashing_test.go for the committed test
// vectors.
//
// Empty input is a valid argument for all three functions and returns the
// algorithm's canonical seed/initial value rather than an error.
package hashing

import (
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Murmur3_32 computes the 32-bit Murmur3 (x86, seed 0) hash of data.
func Murmur3_32(data []byte) uint32 {
	return murmur3.Sum32(data)
}

// Murmur3_32Seed computes the 32-bit Murmur3 hash of data with an explicit
// seed.
func Murmur3_32Seed(data []byte, seed uint32) uint32 {
	return murmur3.Sum32WithSeed(data, seed)
}

// XXHash64 computes the 64-bit xxHash of data.
func XXHash64(data []byte) uint64 {
	return xxhash.Sum64(data)
}
