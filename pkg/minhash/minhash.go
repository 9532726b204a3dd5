// Package minhash computes fixed-width MinHash fingerprints over shingle
// sets using a family of K universal hash permutations keyed by
// Mersenne-Twister-seeded coefficient vectors.
package minhash

import (
	"github.com/dupefind/dupefind/pkg/hashing"
)

// modulus is the 32-bit Mersenne-prime-adjacent modulus used by the
// universal hash family: p_i(s) = (a[i]*h(s) + b[i]) mod modulus.
const modulus = (1 << 32) - 1

// Sentinel is the fingerprint value assigned to every slot when the input
// shingle set is empty.
const Sentinel uint32 = (1 << 32) - 1

// Fingerprint is an ordered, immutable sequence of exactly K unsigned
// 32-bit integers produced by a MinHasher. Equality is elementwise.
type Fingerprint []uint32

// Equal reports whether two fingerprints have identical length and
// elementwise values.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if len(f) != len(other) {
		return false
	}
	for i := range f {
		if f[i] != other[i] {
			return false
		}
	}
	return true
}

// MinHasher computes K-wide fingerprints using a fixed, seeded family of
// universal hash permutations. Immutable after construction and safe to
// share across goroutines.
type MinHasher struct {
	k    int
	seed uint32
	a    []uint32
	b    []uint32
}

// New constructs a MinHasher with k hash slots, deriving its coefficient
// vectors deterministically from seed. The draw order is: for each slot i
// in [0,k), draw a[i] from [1, 2^32-1] then b[i] from [0, 2^32-1], using a
// single Mersenne-Twister stream seeded with seed.
//
// The PRNG algorithm and draw order are a reproducibility contract: two
// MinHashers built with the same (k, seed) always produce identical
// fingerprints for the same input.
func New(k int, seed uint32) *MinHasher {
	gen := hashing.NewMT19937(seed)
	a := make([]uint32, k)
	b := make([]uint32, k)
	for i := 0; i < k; i++ {
		a[i] = gen.UintRange(1, 4294967295)
		b[i] = gen.UintRange(0, 4294967295)
	}
	return &MinHasher{k: k, seed: seed, a: a, b: b}
}

// K returns the configured fingerprint width.
func (m *MinHasher) K() int { return m.k }

// Seed returns the PRNG seed this MinHasher was constructed with.
func (m *MinHasher) Seed() uint32 { return m.seed }

// Compute derives the K-wide fingerprint of a shingle set. An empty set
// yields a fingerprint whose every slot is Sentinel.
func (m *MinHasher) Compute(shingles map[string]struct{}) Fingerprint {
	fp := make(Fingerprint, m.k)
	for i := range fp {
		fp[i] = Sentinel
	}
	for s := range shingles {
		h := uint64(hashing.Murmur3_32([]byte(s)))
		for i := 0; i < m.k; i++ {
			p := uint32((uint64(m.a[i])*h + uint64(m.b[i])) % modulus)
			if p < fp[i] {
				fp[i] = p
			}
		}
	}
	return fp
}
