// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/table"
)

// LoadCSV reads a table from CSV with a header row. Each column is typed
// as int64 if every cell parses as an integer, float64 if every cell
// parses as a number, and string otherwise.
func LoadCSV(r io.Reader, delimiter rune) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrInvalidConfig, "csv input has no header row")
	} else if err != nil {
		return nil, errors.Wrap(err, "reading csv header")
	}
	cells := make([][]string, len(header))
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "reading csv record")
		}
		for i, cell := range record {
			cells[i] = append(cells[i], cell)
		}
	}

	b := table.NewBuilder()
	for i, name := range header {
		name = strings.TrimSpace(name)
		if ints, ok := parseInts(cells[i]); ok {
			b.AddInt64(name, ints)
		} else if floats, ok := parseFloats(cells[i]); ok {
			b.AddFloat64(name, floats)
		} else {
			b.AddString(name, cells[i])
		}
	}
	tbl, err := b.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building table")
	}
	return tbl, nil
}

func parseInts(cells []string) ([]int64, bool) {
	if len(cells) == 0 {
		return nil, false
	}
	out := make([]int64, len(cells))
	for i, s := range cells {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseFloats(cells []string) ([]float64, bool) {
	if len(cells) == 0 {
		return nil, false
	}
	out := make([]float64, len(cells))
	for i, s := range cells {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
