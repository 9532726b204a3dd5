package hashing

import "encoding/binary"

// XXH32 prime constants, see the xxHash specification:
// https://github.com/Cyan4973/xxHash/blob/dev/doc/xxhash_spec.md
const (
	xxh32Prime1 uint32 = 2654435761
	xxh32Prime2 uint32 = 2246822519
	xxh32Prime3 uint32 = 3266489917
	xxh32Prime4 uint32 = 668265263
	xxh32Prime5 uint32 = 374761393
)

// XXHash32 computes the 32-bit xxHash of data with seed 0.
//
// No pack dependency implements XXH32 (cespare/xxhash/v2 only exposes the
// 64-bit variant), so this follows the published algorithm directly rather
// than introducing a new third-party hashing library for a single function.
func XXHash32(data []byte) uint32 {
	return xxhash32Seed(data, 0)
}

func xxhash32Seed(data []byte, seed uint32) uint32 {
	n := len(data)
	var h32 uint32

	if n >= 16 {
		v1 := seed + xxh32Prime1 + xxh32Prime2
		v2 := seed + xxh32Prime2
		v3 := seed
		v4 := seed - xxh32Prime1

		for len(data) >= 16 {
			v1 = xxh32Round(v1, binary.LittleEndian.Uint32(data[0:4]))
			v2 = xxh32Round(v2, binary.LittleEndian.Uint32(data[4:8]))
			v3 = xxh32Round(v3, binary.LittleEndian.Uint32(data[8:12]))
			v4 = xxh32Round(v4, binary.LittleEndian.Uint32(data[12:16]))
			data = data[16:]
		}

		h32 = rotl32(v1, 1) + rotl32(v2, 7) + rotl32(v3, 12) + rotl32(v4, 18)
	} else {
		h32 = seed + xxh32Prime5
	}

	h32 += uint32(n)

	for len(data) >= 4 {
		h32 += binary.LittleEndian.Uint32(data[0:4]) * xxh32Prime3
		h32 = rotl32(h32, 17) * xxh32Prime4
		data = data[4:]
	}

	for _, b := range data {
		h32 += uint32(b) * xxh32Prime5
		h32 = rotl32(h32, 11) * xxh32Prime1
	}

	h32 ^= h32 >> 15
	h32 *= xxh32Prime2
	h32 ^= h32 >> 13
	h32 *= xxh32Prime3
	h32 ^= h32 >> 16

	return h32
}

func xxh32Round(acc, input uint32) uint32 {
	acc += input * xxh32Prime2
	acc = rotl32(acc, 13)
	acc *= xxh32Prime1
	return acc
}

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}
