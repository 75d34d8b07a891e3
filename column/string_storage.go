// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column

import (
	"strings"

	"github.com/gobwas/glob"
)

// StringStorage is a leaf over a borrowed slice of strings. Text orders
// after every number and before every bytes operand.
type StringStorage struct {
	data   []string
	sorted bool
}

// NewStringStorage returns a storage over data. sorted declares data in
// non-decreasing byte order.
func NewStringStorage(data []string, sorted bool) *StringStorage {
	return &StringStorage{data: data, sorted: sorted}
}

// MakeChain returns the leaf chain of the storage.
func (s *StringStorage) MakeChain() Chain {
	return &leafChain[string]{typ: stringType, data: s.data, sorted: s.sorted}
}

var stringType = &leafType[string]{
	name: "StringStorage",
	validate: func(op FilterOp, v SqlValue) SearchValidationResult {
		if res, done := validateNonNull(op, v); done {
			return res
		}
		switch v.Type {
		case Text:
			return SearchOk
		case Integer, Real:
			if op == Glob {
				return SearchNoData
			}
			return compareOps(op, false)
		}
		if op == Glob {
			return SearchNoData
		}
		return compareOps(op, true)
	},
	compare: func(x string, v SqlValue) int {
		return strings.Compare(x, v.Str)
	},
	less: func(a, b string) bool { return a < b },
	glob: func(pattern SqlValue) (func(x string) bool, error) {
		g, err := compileGlob(pattern.Str)
		if err != nil {
			return nil, err
		}
		return g.Match, nil
	},
}

// compileGlob compiles a SQL GLOB pattern. GLOB has no escape character,
// no alternation and uses "[^" for negated classes, so the pattern is
// rewritten into gobwas/glob syntax first.
func compileGlob(pattern string) (glob.Glob, error) {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case inClass:
			if ch == ']' {
				inClass = false
			}
			if ch == '^' && pattern[i-1] == '[' {
				ch = '!'
			}
		case ch == '[':
			inClass = true
		case ch == '\\' || ch == '{' || ch == '}' || ch == ',':
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return glob.Compile(b.String())
}
