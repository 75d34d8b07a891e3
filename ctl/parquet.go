// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"os"
	"strings"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/table"
)

// LoadParquet reads a table from the parquet file at path. Integer
// columns load as int64, floating point columns as float64 and string
// columns as string. Null values are not supported.
func LoadParquet(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input")
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading parquet")
	}
	defer pf.Close()
	mem := memory.NewGoAllocator()
	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, errors.Wrap(err, "reading parquet")
	}
	at, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading parquet table")
	}
	defer at.Release()

	b := table.NewBuilder()
	for i := 0; i < int(at.NumCols()); i++ {
		if err := addArrowColumn(b, at.Column(i)); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// addArrowColumn copies the chunks of col into a new column of b.
func addArrowColumn(b *table.Builder, col *arrow.Column) error {
	name := col.Name()
	if col.NullN() > 0 {
		return errors.Newf(errors.ErrInvalidConfig, "column %s has %d null values", name, col.NullN())
	}
	switch col.DataType().ID() {
	case arrow.INT64, arrow.INT32, arrow.INT16, arrow.INT8:
		data := make([]int64, 0, col.Len())
		for _, chunk := range col.Data().Chunks() {
			switch a := chunk.(type) {
			case *array.Int64:
				data = append(data, a.Int64Values()...)
			case *array.Int32:
				for _, v := range a.Int32Values() {
					data = append(data, int64(v))
				}
			case *array.Int16:
				for _, v := range a.Int16Values() {
					data = append(data, int64(v))
				}
			case *array.Int8:
				for _, v := range a.Int8Values() {
					data = append(data, int64(v))
				}
			}
		}
		b.AddInt64(name, data)
	case arrow.FLOAT64, arrow.FLOAT32:
		data := make([]float64, 0, col.Len())
		for _, chunk := range col.Data().Chunks() {
			switch a := chunk.(type) {
			case *array.Float64:
				data = append(data, a.Float64Values()...)
			case *array.Float32:
				for _, v := range a.Float32Values() {
					data = append(data, float64(v))
				}
			}
		}
		b.AddFloat64(name, data)
	case arrow.STRING:
		data := make([]string, 0, col.Len())
		for _, chunk := range col.Data().Chunks() {
			a := chunk.(*array.String)
			for i := 0; i < a.Len(); i++ {
				data = append(data, strings.Clone(a.Value(i)))
			}
		}
		b.AddString(name, data)
	default:
		return errors.Newf(errors.ErrInvalidConfig, "column %s has unsupported type %s", name, col.DataType())
	}
	return nil
}
