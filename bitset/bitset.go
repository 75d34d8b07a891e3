// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package bitset implements a dense, fixed-length set of row positions.
//
// A BitSet covers the positions [0, n) where n is fixed when the set is
// created. Unlike a roaring bitmap it never changes representation, so
// membership tests are a shift and a mask, and word-at-a-time builders
// can produce it without per-bit branching.
package bitset

import (
	"math/bits"

	"github.com/featurebasedb/colchain/errors"
)

const wordBits = 64

// BitSet is a dense set of positions in [0, Size()).
type BitSet struct {
	words []uint64
	n     uint32
}

// New returns an empty BitSet of size n.
func New(n uint32) *BitSet {
	return &BitSet{words: make([]uint64, wordCount(n)), n: n}
}

// NewFromBools returns a BitSet with bit i set iff v[i] is true.
func NewFromBools(v ...bool) *BitSet {
	bs := New(uint32(len(v)))
	for i, b := range v {
		if b {
			bs.Set(uint32(i))
		}
	}
	return bs
}

// NewSetRange returns a BitSet of size n with the bits in [start, end) set.
func NewSetRange(n, start, end uint32) *BitSet {
	if start > end || end > n {
		errors.Violation("bitset: range [%d, %d) outside size %d", start, end, n)
	}
	bs := New(n)
	for i := start; i < end; {
		if i%wordBits == 0 && end-i >= wordBits {
			bs.words[i/wordBits] = ^uint64(0)
			i += wordBits
			continue
		}
		bs.Set(i)
		i++
	}
	return bs
}

func wordCount(n uint32) int {
	return int((uint64(n) + wordBits - 1) / wordBits)
}

// Size returns the number of positions covered.
func (bs *BitSet) Size() uint32 { return bs.n }

func (bs *BitSet) check(i uint32) {
	if i >= bs.n {
		errors.Violation("bitset: index %d out of range [0, %d)", i, bs.n)
	}
}

// IsSet reports whether position i is a member.
func (bs *BitSet) IsSet(i uint32) bool {
	bs.check(i)
	return bs.words[i/wordBits]&(1<<(i%wordBits)) != 0
}

// Set adds position i.
func (bs *BitSet) Set(i uint32) {
	bs.check(i)
	bs.words[i/wordBits] |= 1 << (i % wordBits)
}

// Clear removes position i.
func (bs *BitSet) Clear(i uint32) {
	bs.check(i)
	bs.words[i/wordBits] &^= 1 << (i % wordBits)
}

// CountSetBits returns the number of members.
func (bs *BitSet) CountSetBits() uint32 {
	var n int
	for _, w := range bs.words {
		n += bits.OnesCount64(w)
	}
	return uint32(n)
}

// CountSetBitsUntil returns the number of members strictly below i.
func (bs *BitSet) CountSetBitsUntil(i uint32) uint32 {
	if i > bs.n {
		errors.Violation("bitset: rank %d out of range [0, %d]", i, bs.n)
	}
	var n int
	full := i / wordBits
	for _, w := range bs.words[:full] {
		n += bits.OnesCount64(w)
	}
	if rem := i % wordBits; rem != 0 {
		n += bits.OnesCount64(bs.words[full] & (1<<rem - 1))
	}
	return uint32(n)
}

// IndexOfNthSet returns the position of the k-th member, counting from
// zero. k must be less than CountSetBits().
func (bs *BitSet) IndexOfNthSet(k uint32) uint32 {
	remaining := int(k)
	for wi, w := range bs.words {
		c := bits.OnesCount64(w)
		if remaining >= c {
			remaining -= c
			continue
		}
		for ; remaining > 0; remaining-- {
			w &= w - 1
		}
		return uint32(wi*wordBits + bits.TrailingZeros64(w))
	}
	errors.Violation("bitset: select %d beyond %d members", k, bs.CountSetBits())
	return 0
}

// ForEachSet calls fn with every member in ascending order.
func (bs *BitSet) ForEachSet(fn func(i uint32)) {
	for wi, w := range bs.words {
		for w != 0 {
			fn(uint32(wi*wordBits + bits.TrailingZeros64(w)))
			w &= w - 1
		}
	}
}

// SetIndices returns all members in ascending order.
func (bs *BitSet) SetIndices() []uint32 {
	out := make([]uint32, 0, bs.CountSetBits())
	bs.ForEachSet(func(i uint32) { out = append(out, i) })
	return out
}

// And intersects bs with other in place. Both sets must be the same size.
func (bs *BitSet) And(other *BitSet) {
	if bs.n != other.n {
		errors.Violation("bitset: and of sizes %d and %d", bs.n, other.n)
	}
	for i := range bs.words {
		bs.words[i] &= other.words[i]
	}
}

// Copy returns an independent copy of bs.
func (bs *BitSet) Copy() *BitSet {
	words := make([]uint64, len(bs.words))
	copy(words, bs.words)
	return &BitSet{words: words, n: bs.n}
}
