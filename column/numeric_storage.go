// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column

import (
	"fmt"
	"math"

	"github.com/featurebasedb/colchain/errors"
	"golang.org/x/exp/constraints"
)

// Number is the set of element types a NumericStorage can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// NumericStorage is a leaf over a borrowed slice of numbers. Integers and
// reals compare numerically with each other and order before any text or
// bytes operand.
type NumericStorage[T Number] struct {
	data   []T
	sorted bool
	typ    *leafType[T]
}

// NewNumericStorage returns a storage over data. sorted declares data
// non-decreasing, which turns ordered searches into binary searches.
// data must not hold NaN.
func NewNumericStorage[T Number](data []T, sorted bool) *NumericStorage[T] {
	if i := IndexNaN(data); i >= 0 {
		errors.Violation("numeric storage: NaN at row %d", i)
	}
	return &NumericStorage[T]{data: data, sorted: sorted, typ: numericType[T]()}
}

// MakeChain returns the leaf chain of the storage.
func (s *NumericStorage[T]) MakeChain() Chain {
	return &leafChain[T]{typ: s.typ, data: s.data, sorted: s.sorted}
}

func numericType[T Number]() *leafType[T] {
	var zero T
	one := zero + 1
	integral := one/2 == zero
	unsigned := zero-one > zero

	return &leafType[T]{
		name: fmt.Sprintf("NumericStorage[%T]", zero),
		validate: func(op FilterOp, v SqlValue) SearchValidationResult {
			if res, done := validateNonNull(op, v); done {
				return res
			}
			if op == Glob {
				return SearchNoData
			}
			if !v.IsNumeric() {
				return compareOps(op, true)
			}
			if v.Type == Real && math.IsNaN(v.Double) {
				return SearchNoData
			}
			return SearchOk
		},
		compare: func(x T, v SqlValue) int {
			if v.Type == Integer && integral {
				if unsigned {
					if v.Long < 0 {
						return 1
					}
					return compareOrdered(uint64(x), uint64(v.Long))
				}
				return compareOrdered(int64(x), v.Long)
			}
			f := v.Double
			if v.Type == Integer {
				f = float64(v.Long)
			}
			return compareOrdered(float64(x), f)
		},
		less: func(a, b T) bool { return a < b },
	}
}

// IndexNaN returns the row of the first NaN in data, or -1.
func IndexNaN[T Number](data []T) int {
	for i, x := range data {
		if x != x {
			return i
		}
	}
	return -1
}

func compareOrdered[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
