// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package columntest provides a fake leaf chain whose search results are
// fixed up front, for testing overlays without real value semantics.
package columntest

import (
	"fmt"

	"github.com/featurebasedb/colchain/bitset"
	"github.com/featurebasedb/colchain/column"
)

type strategy int

const (
	strategyAll strategy = iota
	strategyNone
	strategyRange
	strategyBitSet
)

// FakeStorageChain matches a fixed set of rows for every constraint,
// ignoring the operator and operand.
type FakeStorageChain struct {
	size     uint32
	strategy strategy
	r        column.Range
	bs       *bitset.BitSet
}

var _ column.Chain = (*FakeStorageChain)(nil)

// SearchAll returns a fake of size rows which matches every row.
func SearchAll(size uint32) *FakeStorageChain {
	return &FakeStorageChain{size: size, strategy: strategyAll}
}

// SearchNone returns a fake of size rows which matches no row.
func SearchNone(size uint32) *FakeStorageChain {
	return &FakeStorageChain{size: size, strategy: strategyNone}
}

// SearchSubsetRange returns a fake matching the rows in r.
func SearchSubsetRange(size uint32, r column.Range) *FakeStorageChain {
	if r.End > size {
		panic(fmt.Sprintf("columntest: range %s beyond size %d", r, size))
	}
	return &FakeStorageChain{size: size, strategy: strategyRange, r: r}
}

// SearchSubsetBitSet returns a fake matching the rows set in bs, which must
// have size rows.
func SearchSubsetBitSet(size uint32, bs *bitset.BitSet) *FakeStorageChain {
	if bs.Size() != size {
		panic(fmt.Sprintf("columntest: bitset of size %d for %d rows", bs.Size(), size))
	}
	return &FakeStorageChain{size: size, strategy: strategyBitSet, bs: bs}
}

// SearchSubset returns a fake matching the listed rows.
func SearchSubset(size uint32, rows []uint32) *FakeStorageChain {
	bs := bitset.New(size)
	for _, i := range rows {
		bs.Set(i)
	}
	return SearchSubsetBitSet(size, bs)
}

func (f *FakeStorageChain) matches(i uint32) bool {
	switch f.strategy {
	case strategyAll:
		return true
	case strategyRange:
		return f.r.Contains(i)
	case strategyBitSet:
		return f.bs.IsSet(i)
	}
	return false
}

func (f *FakeStorageChain) Size() uint32 { return f.size }

func (f *FakeStorageChain) ValidateSearchConstraints(column.FilterOp, column.SqlValue) column.SearchValidationResult {
	return column.SearchOk
}

func (f *FakeStorageChain) SingleSearch(_ column.FilterOp, _ column.SqlValue, i uint32) column.SingleSearchResult {
	if i >= f.size {
		panic(fmt.Sprintf("columntest: position %d beyond size %d", i, f.size))
	}
	if f.matches(i) {
		return column.Match
	}
	return column.NoMatch
}

func (f *FakeStorageChain) Search(_ column.FilterOp, _ column.SqlValue, r column.Range) column.RangeOrBitSet {
	if r.End > f.size {
		panic(fmt.Sprintf("columntest: range %s beyond size %d", r, f.size))
	}
	switch f.strategy {
	case strategyAll:
		return column.RangeResult(r)
	case strategyNone:
		return column.RangeResult(column.Range{})
	case strategyRange:
		start, end := max(r.Start, f.r.Start), min(r.End, f.r.End)
		if start >= end {
			return column.RangeResult(column.Range{})
		}
		return column.RangeResult(column.Range{Start: start, End: end})
	}
	out := bitset.New(r.End)
	for i := r.Start; i < r.End; i++ {
		if f.bs.IsSet(i) {
			out.Set(i)
		}
	}
	return column.BitSetResult(out)
}

func (f *FakeStorageChain) IndexSearch(_ column.FilterOp, _ column.SqlValue, indices column.Indices) column.RangeOrBitSet {
	out := bitset.New(indices.Size())
	for k, i := range indices.Data {
		if f.matches(i) {
			out.Set(uint32(k))
		}
	}
	return column.BitSetResult(out)
}

// OrderedIndexSearch returns the offsets from the first to the last
// matching entry, trusting the caller's claim that matches are contiguous.
func (f *FakeStorageChain) OrderedIndexSearch(_ column.FilterOp, _ column.SqlValue, indices column.Indices) column.Range {
	first, last := -1, -1
	for k, i := range indices.Data {
		if f.matches(i) {
			if first < 0 {
				first = k
			}
			last = k
		}
	}
	if first < 0 {
		return column.Range{}
	}
	return column.Range{Start: uint32(first), End: uint32(last + 1)}
}

// StableSort is not supported by fakes.
func (f *FakeStorageChain) StableSort([]column.SortToken, column.SortDirection) {
	panic("columntest: fake storage cannot sort")
}

func (f *FakeStorageChain) String() string {
	return fmt.Sprintf("FakeStorageChain(size=%d)", f.size)
}
