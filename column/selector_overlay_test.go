// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column_test

import (
	"math/rand"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/featurebasedb/colchain/bitset"
	"github.com/featurebasedb/colchain/column"
	"github.com/featurebasedb/colchain/column/columntest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorOverlay_Search(t *testing.T) {
	// Overlay rows are inner rows 1, 3, 4, 7, 8.
	selected := roaring.BitmapOf(1, 3, 4, 7, 8)
	inner := columntest.SearchSubsetBitSet(10, bitset.NewFromBools(false, true, true, false, true, false, false, false, true, true))
	chain := column.NewSelectorOverlay(selected).MakeChain(inner, column.ChainCreationArgs{})

	require.Equal(t, uint32(5), chain.Size())
	assert.Equal(t, []uint32{0, 2, 4}, column.ToIndexVector(chain.Search(column.Eq, column.Long(0), column.NewRange(0, 5))))
	assert.Equal(t, []uint32{2}, column.ToIndexVector(chain.Search(column.Eq, column.Long(0), column.NewRange(1, 4))))

	assert.Equal(t, column.Match, chain.SingleSearch(column.Eq, column.Long(0), 4))
	assert.Equal(t, column.NoMatch, chain.SingleSearch(column.Eq, column.Long(0), 1))
	requireViolation(t, func() { chain.SingleSearch(column.Eq, column.Long(0), 5) })
}

func TestSelectorOverlay_SearchRange(t *testing.T) {
	selected := roaring.BitmapOf(0, 2, 4, 6, 8)
	inner := columntest.SearchSubsetRange(10, column.NewRange(3, 7))
	chain := column.NewSelectorOverlay(selected).MakeChain(inner, column.ChainCreationArgs{})

	res := chain.Search(column.Eq, column.Long(0), column.NewRange(0, 5))
	require.True(t, res.IsRange())
	assert.Equal(t, []uint32{2, 3}, column.ToIndexVector(res))

	res = chain.Search(column.Eq, column.Long(0), column.NewRange(3, 5))
	assert.Equal(t, []uint32{3}, column.ToIndexVector(res))

	res = chain.Search(column.Eq, column.Long(0), column.NewRange(4, 5))
	assert.Empty(t, column.ToIndexVector(res))
}

func TestSelectorOverlay_IndexSearchKeepsState(t *testing.T) {
	rec := &recordingChain{Chain: columntest.SearchSubset(6, []uint32{5})}
	chain := column.NewSelectorOverlay(roaring.BitmapOf(0, 2, 5)).MakeChain(rec, column.ChainCreationArgs{})

	indices := column.Indices{Data: []uint32{0, 1, 2}, State: column.Monotonic}
	res := chain.IndexSearch(column.Eq, column.Long(0), indices)
	assert.Equal(t, []uint32{2}, column.SelectIndices(indices, res))
	assert.Equal(t, []column.IndicesState{column.Monotonic}, rec.states)
}

func TestSelectorOverlay_StableSort(t *testing.T) {
	leaf := column.NewStringStorage([]string{"d", "x", "b", "x", "a", "c"}, false).MakeChain()
	// Overlay values: d, b, a, c
	chain := column.NewSelectorOverlay(roaring.BitmapOf(0, 2, 4, 5)).MakeChain(leaf, column.ChainCreationArgs{})

	tokens := []column.SortToken{{0, 10}, {1, 11}, {2, 12}, {3, 13}}
	chain.StableSort(tokens, column.Ascending)
	assert.Equal(t, []column.SortToken{{2, 12}, {1, 11}, {3, 13}, {0, 10}}, tokens)
}

func TestSelectorOverlay_InvalidSelection(t *testing.T) {
	requireViolation(t, func() {
		column.NewSelectorOverlay(roaring.BitmapOf(1, 9)).MakeChain(columntest.SearchAll(5), column.ChainCreationArgs{})
	})
}

// Overlays stack: a selection of an arrangement of a leaf answers like
// the composed position map applied directly.
func TestSelectorOverArrangement(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := make([]int32, 120)
	for i := range data {
		data[i] = int32(rng.Intn(20))
	}
	arrangement := make([]uint32, 200)
	for i := range arrangement {
		arrangement[i] = uint32(rng.Intn(len(data)))
	}
	selected := roaring.New()
	for i := uint32(0); i < uint32(len(arrangement)); i++ {
		if rng.Intn(3) != 0 {
			selected.Add(i)
		}
	}
	positions := selected.ToArray()

	leaf := column.NewNumericStorage(data, false).MakeChain()
	arranged := column.NewArrangementOverlay(arrangement, column.Nonmonotonic).MakeChain(leaf, column.ChainCreationArgs{})
	chain := column.NewSelectorOverlay(selected).MakeChain(arranged, column.ChainCreationArgs{})
	require.Equal(t, uint32(len(positions)), chain.Size())

	for _, op := range []column.FilterOp{column.Lt, column.Eq, column.Ne, column.Ge} {
		v := column.Long(int64(rng.Intn(20)))
		var want []uint32
		for i, p := range positions {
			if leaf.SingleSearch(op, v, arrangement[p]) == column.Match {
				want = append(want, uint32(i))
			}
		}
		got := column.ToIndexVector(chain.Search(op, v, column.NewRange(0, chain.Size())))
		if diff := cmp.Diff(want, got, emptyEqual); diff != "" {
			t.Fatalf("Search(%s, %s) (-want +got):\n%s", op, v, diff)
		}
	}
}
