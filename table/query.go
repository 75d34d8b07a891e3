// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/featurebasedb/colchain/column"
	"github.com/featurebasedb/colchain/errors"
)

// Constraint filters rows on one column.
type Constraint struct {
	Column string
	Op     column.FilterOp
	Value  column.SqlValue
}

func (c Constraint) String() string {
	if c.Op == column.IsNull || c.Op == column.IsNotNull {
		return c.Column + " " + c.Op.String()
	}
	return c.Column + " " + c.Op.String() + " " + c.Value.String()
}

// Order is one sort key of a query.
type Order struct {
	Column string
	Desc   bool
}

func (o Order) direction() column.SortDirection {
	if o.Desc {
		return column.Descending
	}
	return column.Ascending
}

func (o Order) String() string { return o.Column + " " + o.direction().String() }

// Query is a conjunction of constraints followed by a multi-key sort. A
// zero Limit returns every matching row.
type Query struct {
	Constraints []Constraint
	Orders      []Order
	Limit       int
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT *")
	for i, c := range q.Constraints {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(c.String())
	}
	for i, o := range q.Orders {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(o.String())
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String()
}

// operator spellings, longest first so "<=" wins over "<".
var symbolOps = []struct {
	text string
	op   column.FilterOp
}{
	{"<=", column.Le},
	{">=", column.Ge},
	{"!=", column.Ne},
	{"<>", column.Ne},
	{"==", column.Eq},
	{"=", column.Eq},
	{"<", column.Lt},
	{">", column.Gt},
}

// ParseConstraint parses "col OP value", "col GLOB pattern", "col IS NULL"
// and "col IS NOT NULL". Keywords are case insensitive.
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	for _, op := range []column.FilterOp{column.IsNotNull, column.IsNull} {
		suffix := " " + op.String()
		if strings.HasSuffix(upper, suffix) && len(s) > len(suffix) {
			name := strings.TrimSpace(s[:len(s)-len(suffix)])
			return Constraint{Column: name, Op: op, Value: column.NullValue()}, nil
		}
	}

	if i := strings.Index(upper, " GLOB "); i > 0 {
		return newConstraint(s[:i], column.Glob, s[i+len(" GLOB "):])
	}

	best := -1
	for _, sym := range symbolOps {
		i := strings.Index(s, sym.text)
		if i > 0 && (best < 0 || i < best) {
			best = i
		}
	}
	if best > 0 {
		for _, sym := range symbolOps {
			if strings.HasPrefix(s[best:], sym.text) {
				return newConstraint(s[:best], sym.op, s[best+len(sym.text):])
			}
		}
	}
	return Constraint{}, errors.Newf(errors.ErrInvalidConstraint, "cannot parse constraint %q", s)
}

func newConstraint(name string, op column.FilterOp, operand string) (Constraint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Constraint{}, errors.Newf(errors.ErrInvalidConstraint, "constraint %s without a column", op)
	}
	v, err := ParseValue(operand)
	if err != nil {
		return Constraint{}, err
	}
	if op == column.Glob && v.Type != column.Text {
		v = column.TextValue(strings.TrimSpace(operand))
	}
	return Constraint{Column: name, Op: op, Value: v}, nil
}

// ParseValue parses a constraint operand. Quoted operands are text, NULL
// is null, and anything that parses as a number is numeric. Other bare
// words are text.
func ParseValue(s string) (column.SqlValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return column.SqlValue{}, errors.New(errors.ErrInvalidConstraint, "missing operand")
	}
	if n := len(s); n >= 2 && (s[0] == '\'' || s[0] == '"') && s[n-1] == s[0] {
		return column.TextValue(s[1 : n-1]), nil
	}
	if strings.EqualFold(s, "null") {
		return column.NullValue(), nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return column.Long(v), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return column.Double(v), nil
	}
	return column.TextValue(s), nil
}

// ParseOrder parses "col", "col ASC" or "col DESC".
func ParseOrder(s string) (Order, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return Order{Column: fields[0]}, nil
	case 2:
		switch strings.ToUpper(fields[1]) {
		case "ASC":
			return Order{Column: fields[0]}, nil
		case "DESC":
			return Order{Column: fields[0], Desc: true}, nil
		}
	}
	return Order{}, errors.Newf(errors.ErrInvalidConstraint, "cannot parse order %q", s)
}

// ParseQuery parses the form produced by Query.String:
//
//	[SELECT *] [WHERE c1 AND c2 ...] [ORDER BY k1 [DESC], ...] [LIMIT n]
//
// Keywords are case insensitive. Operands may not contain " AND ".
func ParseQuery(s string) (Query, error) {
	var q Query
	s = " " + strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToUpper(s), " SELECT *") {
		s = s[len(" SELECT *"):]
	}

	if i := strings.LastIndex(strings.ToUpper(s), " LIMIT "); i >= 0 {
		n, err := strconv.Atoi(strings.TrimSpace(s[i+len(" LIMIT "):]))
		if err != nil || n < 0 {
			return Query{}, errors.Newf(errors.ErrInvalidConstraint, "invalid limit in %q", s)
		}
		q.Limit = n
		s = s[:i]
	}

	if i := strings.LastIndex(strings.ToUpper(s), " ORDER BY "); i >= 0 {
		for _, part := range strings.Split(s[i+len(" ORDER BY "):], ",") {
			o, err := ParseOrder(part)
			if err != nil {
				return Query{}, err
			}
			q.Orders = append(q.Orders, o)
		}
		s = s[:i]
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return q, nil
	}
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "WHERE ") {
		return Query{}, errors.Newf(errors.ErrInvalidConstraint, "expected WHERE in %q", s)
	}
	s, upper = s[len("WHERE "):], upper[len("WHERE "):]
	for {
		i := strings.Index(upper, " AND ")
		part := s
		if i >= 0 {
			part = s[:i]
		}
		c, err := ParseConstraint(part)
		if err != nil {
			return Query{}, err
		}
		q.Constraints = append(q.Constraints, c)
		if i < 0 {
			return q, nil
		}
		s, upper = s[i+len(" AND "):], upper[i+len(" AND "):]
	}
}
