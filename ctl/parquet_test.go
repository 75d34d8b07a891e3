// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"
	"github.com/davecgh/go-spew/spew"
	"github.com/featurebasedb/colchain/errors"
	"github.com/featurebasedb/colchain/table"
	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"
)

type parquetColumn struct {
	Name  string
	Type  arrow.DataType
	Value interface{}
}

// writeParquet writes input as a single record parquet file.
func writeParquet(t *testing.T, numRows int64, input []parquetColumn) string {
	t.Helper()
	mem := memory.NewGoAllocator()
	chunks := make([]arrow.Array, 0, len(input))
	fields := make([]arrow.Field, len(input))
	for i, in := range input {
		switch in.Type {
		case arrow.PrimitiveTypes.Int64:
			b := array.NewInt64Builder(mem)
			b.AppendValues(in.Value.([]int64), nil)
			chunks = append(chunks, b.NewArray())
		case arrow.PrimitiveTypes.Int32:
			b := array.NewInt32Builder(mem)
			b.AppendValues(in.Value.([]int32), nil)
			chunks = append(chunks, b.NewArray())
		case arrow.PrimitiveTypes.Float64:
			b := array.NewFloat64Builder(mem)
			b.AppendValues(in.Value.([]float64), nil)
			chunks = append(chunks, b.NewArray())
		case arrow.BinaryTypes.String:
			b := array.NewStringBuilder(mem)
			b.AppendValues(in.Value.([]string), nil)
			chunks = append(chunks, b.NewArray())
		case arrow.FixedWidthTypes.Boolean:
			b := array.NewBooleanBuilder(mem)
			b.AppendValues(in.Value.([]bool), nil)
			chunks = append(chunks, b.NewArray())
		default:
			t.Fatalf("unexpected type %s", in.Type)
		}
		fields[i] = arrow.Field{Name: in.Name, Type: in.Type}
	}
	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, chunks, numRows)
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})

	path := filepath.Join(t.TempDir(), "slices.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	props := parquet.NewWriterProperties(parquet.WithDictionaryDefault(false))
	require.NoError(t, pqarrow.WriteTable(tbl, f, 4096, props, pqarrow.DefaultWriterProps()))
	return path
}

func slicesParquet(t *testing.T) string {
	return writeParquet(t, 6, []parquetColumn{
		{Name: "name", Type: arrow.BinaryTypes.String, Value: []string{"sched", "irq", "sched", "binder", "irq", "sched"}},
		{Name: "dur", Type: arrow.PrimitiveTypes.Int64, Value: []int64{5, 3, 9, 1, 3, 7}},
		{Name: "cpu", Type: arrow.PrimitiveTypes.Float64, Value: []float64{0.5, 1, 2, 1, 0, 3}},
		{Name: "tid", Type: arrow.PrimitiveTypes.Int32, Value: []int32{10, 11, 10, 12, 11, 10}},
	})
}

func TestLoadParquet(t *testing.T) {
	tbl, err := LoadParquet(context.Background(), slicesParquet(t))
	require.NoError(t, err)
	require.Equal(t, uint32(6), tbl.Rows())

	c, err := tbl.Column("tid")
	require.NoError(t, err)
	require.Equal(t, table.Int64, c.Type)

	res, err := table.NewExecutor().Run(context.Background(), tbl, table.Query{
		Orders: []table.Order{{Column: "dur", Desc: true}},
		Limit:  3,
	})
	require.NoError(t, err)
	exp := [][]interface{}{
		{"sched", int64(9), 2.0, int64(10)},
		{"sched", int64(7), 3.0, int64(10)},
		{"sched", int64(5), 0.5, int64(10)},
	}
	if diff := deep.Equal(exp, res.Values()); diff != nil {
		t.Fatalf("unexpected values %v\n%s", diff, spew.Sdump(res.Values()))
	}
}

func TestLoadParquet_Errors(t *testing.T) {
	path := writeParquet(t, 2, []parquetColumn{
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean, Value: []bool{true, false}},
	})
	_, err := LoadParquet(context.Background(), path)
	require.True(t, errors.Is(err, errors.ErrInvalidConfig), "got %v", err)

	path = writeParquet(t, 2, []parquetColumn{
		{Name: "cpu", Type: arrow.PrimitiveTypes.Float64, Value: []float64{1, math.NaN()}},
	})
	_, err = LoadParquet(context.Background(), path)
	require.True(t, errors.Is(err, errors.ErrInvalidValue), "got %v", err)

	_, err = LoadParquet(context.Background(), writeTemp(t, "bad.parquet", slicesCSV))
	require.Error(t, err)

	_, err = LoadParquet(context.Background(), filepath.Join(t.TempDir(), "missing.parquet"))
	require.Error(t, err)
}

func TestQueryCommand_Parquet(t *testing.T) {
	stdout := &bytes.Buffer{}
	cm := NewQueryCommand(nil, stdout, &bytes.Buffer{})
	cm.Path = slicesParquet(t)
	cm.Where = []string{"name = irq"}
	cm.ArrangeBy = "cpu"
	cm.Config.Format = FormatCSV

	require.NoError(t, cm.Run(context.Background()))
	out := stdout.String()
	first, second := strings.Index(out, "irq,3,0,11"), strings.Index(out, "irq,3,1,11")
	require.True(t, first >= 0 && second > first, "unexpected output:\n%s", out)
}
