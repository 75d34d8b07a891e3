// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/featurebasedb/colchain/bitset"
	"github.com/featurebasedb/colchain/errors"
)

// Range is the half-open interval of row positions [Start, End).
type Range struct {
	Start uint32
	End   uint32
}

// NewRange returns [start, end). start must not exceed end.
func NewRange(start, end uint32) Range {
	if start > end {
		errors.Violation("column: invalid range [%d, %d)", start, end)
	}
	return Range{Start: start, End: end}
}

func (r Range) Size() uint32           { return r.End - r.Start }
func (r Range) Empty() bool            { return r.Start == r.End }
func (r Range) Contains(i uint32) bool { return i >= r.Start && i < r.End }
func (r Range) String() string         { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// RangeOrBitSet is a search result. The producer picks whichever
// representation is more compact; consumers must handle both.
type RangeOrBitSet struct {
	r  Range
	bs *bitset.BitSet
}

// RangeResult wraps a contiguous result.
func RangeResult(r Range) RangeOrBitSet { return RangeOrBitSet{r: r} }

// BitSetResult wraps a dense result. bs must not be nil.
func BitSetResult(bs *bitset.BitSet) RangeOrBitSet {
	if bs == nil {
		errors.Violation("column: nil bitset result")
	}
	return RangeOrBitSet{bs: bs}
}

func (rb RangeOrBitSet) IsRange() bool  { return rb.bs == nil }
func (rb RangeOrBitSet) IsBitSet() bool { return rb.bs != nil }

// Range returns the contiguous result. Panics if rb holds a BitSet.
func (rb RangeOrBitSet) Range() Range {
	if rb.bs != nil {
		errors.Violation("column: result is a bitset, not a range")
	}
	return rb.r
}

// BitSet returns the dense result. Panics if rb holds a Range.
func (rb RangeOrBitSet) BitSet() *bitset.BitSet {
	if rb.bs == nil {
		errors.Violation("column: result is a range, not a bitset")
	}
	return rb.bs
}

// Count returns the number of matching positions.
func (rb RangeOrBitSet) Count() uint32 {
	if rb.bs != nil {
		return rb.bs.CountSetBits()
	}
	return rb.r.Size()
}

// FilterOp is a comparison operator in a constraint.
type FilterOp uint8

const (
	Eq FilterOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
	Glob
	IsNull
	IsNotNull
)

var filterOps = [...]string{
	Eq:        "=",
	Ne:        "!=",
	Lt:        "<",
	Le:        "<=",
	Gt:        ">",
	Ge:        ">=",
	Glob:      "GLOB",
	IsNull:    "IS NULL",
	IsNotNull: "IS NOT NULL",
}

func (op FilterOp) String() string {
	if int(op) < len(filterOps) {
		return filterOps[op]
	}
	return "FilterOp(" + strconv.Itoa(int(op)) + ")"
}

// IsOrdered reports whether op selects one contiguous run of values when
// applied to non-decreasing data.
func (op FilterOp) IsOrdered() bool {
	switch op {
	case Eq, Lt, Le, Gt, Ge:
		return true
	}
	return false
}

// ParseFilterOp parses the textual form produced by String. "==" is
// accepted for Eq and matching is case insensitive.
func ParseFilterOp(s string) (FilterOp, error) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if s == "==" {
		return Eq, nil
	}
	for op, name := range filterOps {
		if s == name {
			return FilterOp(op), nil
		}
	}
	return 0, errors.Newf(errors.ErrInvalidConstraint, "unknown filter operator %q", s)
}

// SqlValueType tags the contents of a SqlValue.
type SqlValueType uint8

const (
	Null SqlValueType = iota
	Integer
	Real
	Text
	Bytes
)

func (t SqlValueType) String() string {
	switch t {
	case Null:
		return "NULL"
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Bytes:
		return "BYTES"
	}
	return "SqlValueType(" + strconv.Itoa(int(t)) + ")"
}

// SqlValue is the operand of a constraint. Only the field matching Type is
// meaningful.
type SqlValue struct {
	Type   SqlValueType
	Long   int64
	Double float64
	Str    string
	Blob   []byte
}

func NullValue() SqlValue          { return SqlValue{Type: Null} }
func Long(v int64) SqlValue        { return SqlValue{Type: Integer, Long: v} }
func Double(v float64) SqlValue    { return SqlValue{Type: Real, Double: v} }
func TextValue(v string) SqlValue  { return SqlValue{Type: Text, Str: v} }
func BytesValue(v []byte) SqlValue { return SqlValue{Type: Bytes, Blob: v} }
func (v SqlValue) IsNull() bool    { return v.Type == Null }
func (v SqlValue) IsNumeric() bool { return v.Type == Integer || v.Type == Real }

func (v SqlValue) String() string {
	switch v.Type {
	case Null:
		return "NULL"
	case Integer:
		return strconv.FormatInt(v.Long, 10)
	case Real:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case Text:
		return strconv.Quote(v.Str)
	case Bytes:
		return fmt.Sprintf("x'%x'", v.Blob)
	}
	return "?"
}

// SingleSearchResult is the outcome of testing one row.
type SingleSearchResult uint8

const (
	Match SingleSearchResult = iota
	NoMatch
	// NeedsFullSearch means the chain cannot decide from one row and the
	// caller must fall back to Search or IndexSearch.
	NeedsFullSearch
)

func (r SingleSearchResult) String() string {
	return [...]string{"Match", "NoMatch", "NeedsFullSearch"}[r]
}

// SearchValidationResult is the outcome of checking a constraint against
// a column's type before any rows are touched.
type SearchValidationResult uint8

const (
	// SearchOk means the constraint must be evaluated row by row.
	SearchOk SearchValidationResult = iota
	// SearchAllData means every row matches.
	SearchAllData
	// SearchNoData means no row matches.
	SearchNoData
)

func (r SearchValidationResult) String() string {
	return [...]string{"Ok", "AllData", "NoData"}[r]
}

// SortDirection orders a StableSort.
type SortDirection uint8

const (
	Ascending SortDirection = iota
	Descending
)

func (d SortDirection) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// SortToken is one row taking part in a sort. Payload is opaque to chains
// and travels with the row.
type SortToken struct {
	Index   uint32
	Payload uint32
}

// ChainCreationArgs are hints an overlay receives when its chain is built.
// The zero value is always safe.
type ChainCreationArgs struct {
	// ArrangementIsSorted is set only when the builder can prove that the
	// values reached through the arrangement are non-decreasing.
	ArrangementIsSorted bool
}

// IndicesState is a caller's claim about the order of Indices.Data.
type IndicesState uint8

const (
	Nonmonotonic IndicesState = iota
	Monotonic
)

func (s IndicesState) String() string {
	if s == Monotonic {
		return "Monotonic"
	}
	return "Nonmonotonic"
}

// Indices is a caller supplied list of row positions. Data is borrowed:
// chains read it for the duration of a call and never retain, copy or
// modify it. State is not verified.
type Indices struct {
	Data  []uint32
	State IndicesState
}

func (idx Indices) Size() uint32 { return uint32(len(idx.Data)) }
