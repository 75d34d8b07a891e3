// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package column implements the per-column execution layer: leaf storages
// holding typed values and overlays that remap row positions, all exposed
// through the Chain interface.
//
// A column is queried through a chain built bottom up: a leaf produces
// its chain with MakeChain, and each overlay wraps the chain below it.
// Chains are immutable once built and are safe for concurrent use as long
// as the borrowed buffers they read are not modified.
package column

import (
	"github.com/featurebasedb/colchain/bitset"
	"github.com/featurebasedb/colchain/errors"
)

// Chain is the uniform interface of every column layer. All positions are
// relative to the chain they are passed to.
type Chain interface {
	// Size returns the number of rows the chain exposes.
	Size() uint32

	// ValidateSearchConstraints checks op and v against the column type
	// and reports whether a search can be skipped entirely.
	ValidateSearchConstraints(op FilterOp, v SqlValue) SearchValidationResult

	// SingleSearch tests the row at position i.
	SingleSearch(op FilterOp, v SqlValue, i uint32) SingleSearchResult

	// Search returns the positions in r matching the constraint. A BitSet
	// result has size r.End with every bit below r.Start unset.
	Search(op FilterOp, v SqlValue, r Range) RangeOrBitSet

	// IndexSearch evaluates the constraint for each entry of indices. The
	// result is over offsets into indices.Data: offset k is set iff the
	// row at indices.Data[k] matches.
	IndexSearch(op FilterOp, v SqlValue, indices Indices) RangeOrBitSet

	// OrderedIndexSearch is IndexSearch for the case where the values at
	// indices.Data are known to be non-decreasing, so the matching offsets
	// form one contiguous range. op must be ordered (see IsOrdered).
	OrderedIndexSearch(op FilterOp, v SqlValue, indices Indices) Range

	// StableSort reorders tokens by the value at each token's Index,
	// keeping the relative order of equal values.
	StableSort(tokens []SortToken, dir SortDirection)

	// String describes the chain for debugging.
	String() string
}

// ToIndexVector returns the matching positions of res in ascending order.
func ToIndexVector(res RangeOrBitSet) []uint32 {
	if res.IsBitSet() {
		return res.BitSet().SetIndices()
	}
	r := res.Range()
	out := make([]uint32, 0, r.Size())
	for i := r.Start; i < r.End; i++ {
		out = append(out, i)
	}
	return out
}

// SelectIndices returns the entries of indices.Data selected by res, the
// result of an IndexSearch over indices. Order is preserved.
func SelectIndices(indices Indices, res RangeOrBitSet) []uint32 {
	if res.IsRange() {
		r := res.Range()
		out := make([]uint32, r.Size())
		copy(out, indices.Data[r.Start:r.End])
		return out
	}
	bs := res.BitSet()
	out := make([]uint32, 0, bs.CountSetBits())
	bs.ForEachSet(func(k uint32) { out = append(out, indices.Data[k]) })
	return out
}

// ExtractPayload returns the payloads of tokens in order.
func ExtractPayload(tokens []SortToken) []uint32 {
	out := make([]uint32, len(tokens))
	for i, t := range tokens {
		out[i] = t.Payload
	}
	return out
}

// compactBitSet returns r itself when bs has every position of r set and
// an empty range when bs has none, otherwise bs unchanged.
func compactBitSet(r Range, bs *bitset.BitSet) RangeOrBitSet {
	switch bs.CountSetBits() {
	case 0:
		return RangeResult(Range{})
	case r.Size():
		return RangeResult(r)
	}
	return BitSetResult(bs)
}

func checkPosition(name string, i, size uint32) {
	if i >= size {
		errors.Violation("%s: position %d out of range [0, %d)", name, i, size)
	}
}

func checkRange(name string, r Range, size uint32) {
	if r.Start > r.End || r.End > size {
		errors.Violation("%s: range %s out of bounds [0, %d)", name, r, size)
	}
}
