// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column

import (
	"fmt"
	"sort"

	"github.com/featurebasedb/colchain/bitset"
	"github.com/featurebasedb/colchain/errors"
	"golang.org/x/exp/slices"
)

// leafType holds the value semantics of one storage type.
type leafType[T any] struct {
	name string

	// validate screens a constraint before any row is read.
	validate func(op FilterOp, v SqlValue) SearchValidationResult

	// compare orders a stored value against an operand which passed
	// validate with SearchOk.
	compare func(x T, v SqlValue) int

	less func(a, b T) bool

	// glob compiles a pattern operand into a row predicate. nil when the
	// type never matches glob, in which case validate rejects it.
	glob func(pattern SqlValue) (func(x T) bool, error)
}

// leafChain is the chain of a storage holding values directly. data is
// borrowed from the storage.
type leafChain[T any] struct {
	typ    *leafType[T]
	data   []T
	sorted bool
}

func (c *leafChain[T]) Size() uint32 { return uint32(len(c.data)) }

func (c *leafChain[T]) ValidateSearchConstraints(op FilterOp, v SqlValue) SearchValidationResult {
	return c.typ.validate(op, v)
}

// predicate returns the row test for a constraint which validated as Ok.
func (c *leafChain[T]) predicate(op FilterOp, v SqlValue) func(x T) bool {
	if op == Glob {
		match, err := c.typ.glob(v)
		if err != nil {
			// A malformed pattern matches nothing.
			return func(T) bool { return false }
		}
		return match
	}
	cmp := c.typ.compare
	switch op {
	case Eq:
		return func(x T) bool { return cmp(x, v) == 0 }
	case Ne:
		return func(x T) bool { return cmp(x, v) != 0 }
	case Lt:
		return func(x T) bool { return cmp(x, v) < 0 }
	case Le:
		return func(x T) bool { return cmp(x, v) <= 0 }
	case Gt:
		return func(x T) bool { return cmp(x, v) > 0 }
	case Ge:
		return func(x T) bool { return cmp(x, v) >= 0 }
	}
	errors.Violation("%s: operator %s reached row evaluation", c.typ.name, op)
	return nil
}

func (c *leafChain[T]) SingleSearch(op FilterOp, v SqlValue, i uint32) SingleSearchResult {
	checkPosition(c.typ.name, i, c.Size())
	switch c.typ.validate(op, v) {
	case SearchAllData:
		return Match
	case SearchNoData:
		return NoMatch
	}
	if c.predicate(op, v)(c.data[i]) {
		return Match
	}
	return NoMatch
}

func (c *leafChain[T]) Search(op FilterOp, v SqlValue, r Range) RangeOrBitSet {
	checkRange(c.typ.name, r, c.Size())
	if r.Empty() {
		return RangeResult(Range{})
	}
	switch c.typ.validate(op, v) {
	case SearchAllData:
		return RangeResult(r)
	case SearchNoData:
		return RangeResult(Range{})
	}
	if c.sorted && op.IsOrdered() {
		data := c.data[r.Start:r.End]
		m := c.orderedBounds(len(data), func(i int) T { return data[i] }, op, v)
		return RangeResult(Range{Start: r.Start + m.Start, End: r.Start + m.End})
	}
	match := c.predicate(op, v)
	b := bitset.NewBuilder(r.End, r.Start)
	for _, x := range c.data[r.Start:r.End] {
		b.Append(match(x))
	}
	return compactBitSet(r, b.Build())
}

func (c *leafChain[T]) IndexSearch(op FilterOp, v SqlValue, indices Indices) RangeOrBitSet {
	n := indices.Size()
	if n == 0 {
		return RangeResult(Range{})
	}
	all := Range{End: n}
	switch c.typ.validate(op, v) {
	case SearchAllData:
		return RangeResult(all)
	case SearchNoData:
		return RangeResult(Range{})
	}
	size := c.Size()
	match := c.predicate(op, v)
	b := bitset.NewBuilder(n, 0)
	for _, p := range indices.Data {
		checkPosition(c.typ.name, p, size)
		b.Append(match(c.data[p]))
	}
	return compactBitSet(all, b.Build())
}

func (c *leafChain[T]) OrderedIndexSearch(op FilterOp, v SqlValue, indices Indices) Range {
	if !op.IsOrdered() {
		errors.Violation("%s: ordered index search with operator %s", c.typ.name, op)
	}
	n := len(indices.Data)
	if n == 0 {
		return Range{}
	}
	switch c.typ.validate(op, v) {
	case SearchAllData:
		return Range{End: uint32(n)}
	case SearchNoData:
		return Range{}
	}
	size := c.Size()
	for _, p := range indices.Data {
		checkPosition(c.typ.name, p, size)
	}
	return c.orderedBounds(n, func(i int) T { return c.data[indices.Data[i]] }, op, v)
}

// orderedBounds binary searches n non-decreasing values for the run
// matching an ordered operator.
func (c *leafChain[T]) orderedBounds(n int, at func(i int) T, op FilterOp, v SqlValue) Range {
	cmp := c.typ.compare
	lower := uint32(sort.Search(n, func(i int) bool { return cmp(at(i), v) >= 0 }))
	upper := uint32(sort.Search(n, func(i int) bool { return cmp(at(i), v) > 0 }))
	switch op {
	case Eq:
		return Range{Start: lower, End: upper}
	case Lt:
		return Range{End: lower}
	case Le:
		return Range{End: upper}
	case Gt:
		return Range{Start: upper, End: uint32(n)}
	case Ge:
		return Range{Start: lower, End: uint32(n)}
	}
	errors.Violation("%s: unordered operator %s", c.typ.name, op)
	return Range{}
}

func (c *leafChain[T]) StableSort(tokens []SortToken, dir SortDirection) {
	size := c.Size()
	for _, t := range tokens {
		checkPosition(c.typ.name, t.Index, size)
	}
	less := c.typ.less
	if dir == Descending {
		slices.SortStableFunc(tokens, func(a, b SortToken) bool { return less(c.data[b.Index], c.data[a.Index]) })
		return
	}
	slices.SortStableFunc(tokens, func(a, b SortToken) bool { return less(c.data[a.Index], c.data[b.Index]) })
}

func (c *leafChain[T]) String() string {
	return fmt.Sprintf("%s(rows=%d, sorted=%t)", c.typ.name, len(c.data), c.sorted)
}

// compareOps returns the validation of a comparison whose outcome is known
// from the operand type alone: below is true when every stored value
// orders before the operand.
func compareOps(op FilterOp, below bool) SearchValidationResult {
	switch op {
	case Ne:
		return SearchAllData
	case Lt, Le:
		if below {
			return SearchAllData
		}
		return SearchNoData
	case Gt, Ge:
		if below {
			return SearchNoData
		}
		return SearchAllData
	}
	return SearchNoData
}

// validateNonNull screens the operators every non-nullable storage
// handles identically, and reports whether op still needs type checks.
func validateNonNull(op FilterOp, v SqlValue) (SearchValidationResult, bool) {
	switch op {
	case IsNull:
		return SearchNoData, true
	case IsNotNull:
		return SearchAllData, true
	}
	if v.IsNull() {
		// Comparisons with NULL are never true.
		return SearchNoData, true
	}
	return SearchOk, false
}
