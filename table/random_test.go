// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package table_test

import (
	"context"
	"math/bits"
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/featurebasedb/colchain/column"
	"github.com/featurebasedb/colchain/table"
	"github.com/google/go-cmp/cmp"
	"github.com/molecula/apophenia"
	"github.com/stretchr/testify/require"
)

// randomRows returns a seeded random subset of [0, n) holding about
// density/scale of the rows.
func randomRows(t *testing.T, seed int64, n, density, scale uint64) *roaring.Bitmap {
	t.Helper()
	w, err := apophenia.NewWeighted(apophenia.NewSequence(seed))
	require.NoError(t, err)
	offset := apophenia.OffsetFor(apophenia.SequenceWeighted, 0, 0, 0)
	rows := roaring.New()
	for i := uint64(0); i < n; i += 128 {
		offset.Lo = i
		r := w.Bits(offset, density, scale)
		for lo := r.Lo; lo != 0; lo &= lo - 1 {
			if row := i + uint64(bits.TrailingZeros64(lo)); row < n {
				rows.Add(uint32(row))
			}
		}
		for hi := r.Hi; hi != 0; hi &= hi - 1 {
			if row := i + 64 + uint64(bits.TrailingZeros64(hi)); row < n {
				rows.Add(uint32(row))
			}
		}
	}
	return rows
}

func newRandomTable(t *testing.T, n int) *table.Table {
	t.Helper()
	durs := make([]int64, n)
	names := make([]string, n)
	for i := range durs {
		durs[i] = int64(i*7919) % 101
		names[i] = []string{"sched", "irq", "binder", "ksoftirqd"}[(i*31)%4]
	}
	tbl, err := table.NewBuilder().AddInt64("dur", durs).AddString("name", names).Build()
	require.NoError(t, err)
	return tbl
}

// matching returns the rows of tbl for which keep holds, in row order.
func matching(tbl *table.Table, keep func(vals []interface{}) bool) []uint32 {
	res := &table.Result{Table: tbl, Rows: make([]uint32, tbl.Rows())}
	for i := range res.Rows {
		res.Rows[i] = uint32(i)
	}
	var out []uint32
	for i, vals := range res.Values() {
		if keep(vals) {
			out = append(out, uint32(i))
		}
	}
	return out
}

func TestExecutor_RandomSelections(t *testing.T) {
	const n = 2000
	base := newRandomTable(t, n)
	e := table.NewExecutor()
	q := table.Query{Constraints: []table.Constraint{
		where("dur", column.Ge, column.Long(40)),
		where("name", column.Glob, column.TextValue("*irq")),
		where("dur", column.Ne, column.Long(77)),
	}}
	keep := func(vals []interface{}) bool {
		dur, name := vals[0].(int64), vals[1].(string)
		return dur >= 40 && strings.HasSuffix(name, "irq") && dur != 77
	}

	for seed := int64(0); seed < 8; seed++ {
		sel, err := base.Select(randomRows(t, seed, n, 64, 256))
		require.NoError(t, err)
		views := map[string]*table.Table{"Select": sel}
		if views["Arranged"], err = sel.ArrangeBy("dur", column.Ascending); err != nil {
			t.Fatal(err)
		}
		if views["Descending"], err = sel.ArrangeBy("name", column.Descending); err != nil {
			t.Fatal(err)
		}
		for name, view := range views {
			res, err := e.Run(context.Background(), view, q)
			require.NoError(t, err)
			require.NotEmpty(t, res.Rows, "seed %d %s", seed, name)
			if diff := cmp.Diff(matching(view, keep), res.Rows); diff != "" {
				t.Fatalf("seed %d %s: unexpected rows (-want +got):\n%s", seed, name, diff)
			}
		}
	}
}
