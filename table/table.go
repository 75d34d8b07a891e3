// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package table stacks column chains into an in-memory table and runs
// filter and sort queries against it through the chain contract.
package table

import (
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/featurebasedb/colchain/column"
	"github.com/featurebasedb/colchain/errors"
	"golang.org/x/exp/slices"
)

// ColumnType is the storage type of a column.
type ColumnType uint8

const (
	Int64 ColumnType = iota
	Float64
	String
)

func (t ColumnType) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	}
	return "ColumnType(" + strconv.Itoa(int(t)) + ")"
}

// Column is one named column of a Table. Its chain answers in the
// table's row numbering.
type Column struct {
	Name string
	Type ColumnType

	chain column.Chain
	value func(base uint32) interface{}
}

// Chain returns the column's chain.
func (c *Column) Chain() column.Chain { return c.chain }

// Table is an immutable set of equal length columns. Stacking operations
// return new tables sharing the underlying storage.
type Table struct {
	columns []*Column
	byName  map[string]int
	rows    uint32

	// base maps table rows to storage rows. nil means identity.
	base []uint32
}

// Rows returns the number of rows.
func (t *Table) Rows() uint32 { return t.rows }

// ColumnNames returns column names in creation order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.byName[name]
	if !ok {
		return nil, errors.Newf(errors.ErrColumnNotFound, "column not found: %s", name)
	}
	return t.columns[i], nil
}

// Value returns the value of the named column at table row row. It
// panics if row is out of range.
func (t *Table) Value(c *Column, row uint32) interface{} {
	if row >= t.rows {
		errors.Violation("table: row %d beyond %d rows", row, t.rows)
	}
	return c.value(t.storageRow(row))
}

func (t *Table) storageRow(row uint32) uint32 {
	if t.base == nil {
		return row
	}
	return t.base[row]
}

// ArrangeBy returns t with its rows reordered by the named column. Ties
// keep their current order.
func (t *Table) ArrangeBy(name string, dir column.SortDirection) (*Table, error) {
	key, err := t.Column(name)
	if err != nil {
		return nil, err
	}

	tokens := make([]column.SortToken, t.rows)
	for i := range tokens {
		tokens[i] = column.SortToken{Index: uint32(i), Payload: uint32(i)}
	}
	key.chain.StableSort(tokens, dir)
	arrangement := column.ExtractPayload(tokens)

	state := column.Nonmonotonic
	if slices.IsSorted(arrangement) {
		state = column.Monotonic
	}
	overlay := column.NewArrangementOverlay(arrangement, state)

	out := t.derive(arrangement)
	for i, c := range t.columns {
		args := column.ChainCreationArgs{ArrangementIsSorted: c == key && dir == column.Ascending}
		out.columns[i].chain = overlay.MakeChain(c.chain, args)
	}
	return out, nil
}

// Select returns the rows of t whose positions are set in rows, in
// ascending order. rows is borrowed and must not change while the
// returned table is in use.
func (t *Table) Select(rows *roaring.Bitmap) (*Table, error) {
	if !rows.IsEmpty() && rows.Maximum() >= t.rows {
		return nil, errors.Newf(errors.ErrInvalidConstraint, "selected row %d beyond %d rows", rows.Maximum(), t.rows)
	}
	overlay := column.NewSelectorOverlay(rows)
	out := t.derive(rows.ToArray())
	for i, c := range t.columns {
		out.columns[i].chain = overlay.MakeChain(c.chain, column.ChainCreationArgs{})
	}
	return out, nil
}

// derive returns a copy of t whose row i is t's row positions[i]. Chains
// are left for the caller to set.
func (t *Table) derive(positions []uint32) *Table {
	base := make([]uint32, len(positions))
	for i, p := range positions {
		base[i] = t.storageRow(p)
	}
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		byName:  t.byName,
		rows:    uint32(len(positions)),
		base:    base,
	}
	for i, c := range t.columns {
		cp := *c
		out.columns[i] = &cp
	}
	return out
}

// Builder assembles a Table column by column. The first error is kept and
// returned by Build.
type Builder struct {
	columns []*Column
	byName  map[string]int
	rows    int
	err     error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{byName: make(map[string]int), rows: -1}
}

// AddInt64 adds an integer column. data is borrowed.
func (b *Builder) AddInt64(name string, data []int64) *Builder {
	return b.add(name, Int64, len(data), func() column.Chain {
		return column.NewNumericStorage(data, slices.IsSorted(data)).MakeChain()
	}, func(i uint32) interface{} { return data[i] })
}

// AddFloat64 adds a real column. data is borrowed.
func (b *Builder) AddFloat64(name string, data []float64) *Builder {
	if i := column.IndexNaN(data); i >= 0 && b.err == nil {
		b.err = errors.Newf(errors.ErrInvalidValue, "column %s: NaN at row %d", name, i)
		return b
	}
	return b.add(name, Float64, len(data), func() column.Chain {
		return column.NewNumericStorage(data, slices.IsSorted(data)).MakeChain()
	}, func(i uint32) interface{} { return data[i] })
}

// AddString adds a text column. data is borrowed.
func (b *Builder) AddString(name string, data []string) *Builder {
	return b.add(name, String, len(data), func() column.Chain {
		return column.NewStringStorage(data, slices.IsSorted(data)).MakeChain()
	}, func(i uint32) interface{} { return data[i] })
}

func (b *Builder) add(name string, typ ColumnType, n int, chain func() column.Chain, value func(uint32) interface{}) *Builder {
	if b.err != nil {
		return b
	}
	if _, ok := b.byName[name]; ok {
		b.err = errors.Newf(errors.ErrColumnExists, "column already exists: %s", name)
		return b
	}
	if b.rows >= 0 && n != b.rows {
		b.err = errors.Newf(errors.ErrLengthMismatch, "column %s has %d rows, want %d", name, n, b.rows)
		return b
	}
	b.rows = n
	b.byName[name] = len(b.columns)
	b.columns = append(b.columns, &Column{Name: name, Type: typ, chain: chain(), value: value})
	return b
}

// Build returns the table, or the first error hit while adding columns.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	rows := b.rows
	if rows < 0 {
		rows = 0
	}
	return &Table{columns: b.columns, byName: b.byName, rows: uint32(rows)}, nil
}
