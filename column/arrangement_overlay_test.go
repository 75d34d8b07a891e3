// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/featurebasedb/colchain/bitset"
	"github.com/featurebasedb/colchain/column"
	"github.com/featurebasedb/colchain/column/columntest"
	"github.com/featurebasedb/colchain/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

func requireViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a contract violation")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.True(t, errors.Is(err, errors.ErrContractViolation), "unexpected panic: %v", err)
	}()
	fn()
}

func arrangementChain(arrangement []uint32, inner column.Chain, sorted bool) column.Chain {
	o := column.NewArrangementOverlay(arrangement, column.Nonmonotonic)
	return o.MakeChain(inner, column.ChainCreationArgs{ArrangementIsSorted: sorted})
}

var repeating = []uint32{1, 1, 2, 2, 3, 3, 4, 4, 1, 1}

func TestArrangementOverlay_SingleSearch(t *testing.T) {
	chain := arrangementChain(repeating, columntest.SearchSubset(5, []uint32{1, 2}), false)

	assert.Equal(t, column.Match, chain.SingleSearch(column.Ge, column.Long(0), 8))
	assert.Equal(t, column.NoMatch, chain.SingleSearch(column.Ge, column.Long(0), 4))
	requireViolation(t, func() { chain.SingleSearch(column.Ge, column.Long(0), 10) })
}

func TestArrangementOverlay_SearchAll(t *testing.T) {
	chain := arrangementChain(repeating, columntest.SearchAll(5), false)

	res := chain.Search(column.Ge, column.Long(0), column.NewRange(2, 4))
	require.True(t, res.IsRange())
	assert.Equal(t, []uint32{2, 3}, column.ToIndexVector(res))
}

func TestArrangementOverlay_SearchNone(t *testing.T) {
	chain := arrangementChain(repeating, columntest.SearchNone(5), false)

	for _, r := range []column.Range{column.NewRange(2, 4), column.NewRange(0, 10), column.NewRange(9, 10)} {
		res := chain.Search(column.Ge, column.Long(0), r)
		require.True(t, res.IsRange(), "range %s should give a compact empty result", r)
		assert.Empty(t, column.ToIndexVector(res))
	}
}

func TestArrangementOverlay_SearchLimited(t *testing.T) {
	chain := arrangementChain(repeating, columntest.SearchSubsetRange(5, column.NewRange(4, 5)), false)

	res := chain.Search(column.Ge, column.Long(0), column.NewRange(2, 7))
	assert.Equal(t, []uint32{6}, column.ToIndexVector(res))
}

func TestArrangementOverlay_SearchBitSet(t *testing.T) {
	inner := columntest.SearchSubsetBitSet(5, bitset.NewFromBools(false, true, false, true, false))
	chain := arrangementChain(repeating, inner, false)

	// Overlay membership: 1, 1, 0, 0, 1, 1, 0, 0, 1, 1
	res := chain.Search(column.Ge, column.Long(0), column.NewRange(0, 10))
	assert.Equal(t, []uint32{0, 1, 4, 5, 8, 9}, column.ToIndexVector(res))

	res = chain.Search(column.Ge, column.Long(0), column.NewRange(3, 9))
	assert.Equal(t, []uint32{4, 5, 8}, column.ToIndexVector(res))
}

func TestArrangementOverlay_SearchEmptyRange(t *testing.T) {
	chain := arrangementChain(repeating, columntest.SearchAll(5), false)

	res := chain.Search(column.Eq, column.Long(0), column.NewRange(3, 3))
	require.True(t, res.IsRange())
	assert.True(t, res.Range().Empty())
	requireViolation(t, func() { chain.Search(column.Eq, column.Long(0), column.NewRange(5, 11)) })
}

func TestArrangementOverlay_IndexSearch(t *testing.T) {
	inner := columntest.SearchSubsetBitSet(5, bitset.NewFromBools(false, true, false, true, false))
	chain := arrangementChain(repeating, inner, false)

	indices := column.Indices{Data: []uint32{7, 1, 3}, State: column.Nonmonotonic}
	res := chain.IndexSearch(column.Ge, column.Long(0), indices)

	// Positions 7, 1 and 3 reach inner rows 4, 1 and 2. Only row 1 matches.
	assert.Equal(t, []uint32{1}, column.ToIndexVector(res))
	assert.Equal(t, []uint32{1}, column.SelectIndices(indices, res))
	assert.Equal(t, []uint32{7, 1, 3}, indices.Data, "caller's indices must not be modified")
}

func TestArrangementOverlay_IndexSearchEmpty(t *testing.T) {
	chain := arrangementChain(repeating, columntest.SearchAll(5), false)
	res := chain.IndexSearch(column.Eq, column.Long(1), column.Indices{State: column.Monotonic})
	assert.Empty(t, column.ToIndexVector(res))
	requireViolation(t, func() {
		chain.IndexSearch(column.Eq, column.Long(1), column.Indices{Data: []uint32{10}})
	})
}

func TestArrangementOverlay_OrderingSearch(t *testing.T) {
	inner := columntest.SearchSubsetBitSet(5, bitset.NewFromBools(false, true, false, true, false))
	chain := arrangementChain([]uint32{0, 2, 4, 1, 3}, inner, true)

	before := testutil.ToFloat64(column.CounterOverlaySearches.WithLabelValues("arrangement", column.PathOrdered))
	res := chain.Search(column.Ge, column.Long(0), column.NewRange(0, 5))
	after := testutil.ToFloat64(column.CounterOverlaySearches.WithLabelValues("arrangement", column.PathOrdered))

	require.True(t, res.IsRange())
	assert.Equal(t, []uint32{3, 4}, column.ToIndexVector(res))
	assert.Equal(t, before+1, after)
}

// recordingChain records the Indices state the overlay hands down.
type recordingChain struct {
	column.Chain
	states []column.IndicesState
}

func (c *recordingChain) IndexSearch(op column.FilterOp, v column.SqlValue, indices column.Indices) column.RangeOrBitSet {
	c.states = append(c.states, indices.State)
	return c.Chain.IndexSearch(op, v, indices)
}

func TestArrangementOverlay_IndexStatePropagation(t *testing.T) {
	for _, tc := range []struct {
		sorted bool
		input  column.IndicesState
		exp    column.IndicesState
	}{
		{true, column.Monotonic, column.Monotonic},
		{true, column.Nonmonotonic, column.Nonmonotonic},
		{false, column.Monotonic, column.Nonmonotonic},
		{false, column.Nonmonotonic, column.Nonmonotonic},
	} {
		for _, tag := range []column.IndicesState{column.Monotonic, column.Nonmonotonic} {
			t.Run(fmt.Sprintf("sorted=%t/%s/%s", tc.sorted, tc.input, tag), func(t *testing.T) {
				rec := &recordingChain{Chain: columntest.SearchAll(6)}
				chain := column.NewArrangementOverlay([]uint32{0, 1, 1, 3, 5}, tag).
					MakeChain(rec, column.ChainCreationArgs{ArrangementIsSorted: tc.sorted})
				chain.IndexSearch(column.Eq, column.Long(0), column.Indices{Data: []uint32{0, 2, 4}, State: tc.input})
				assert.Equal(t, []column.IndicesState{tc.exp}, rec.states)
			})
		}
	}
}

func TestArrangementOverlay_StableSort(t *testing.T) {
	numeric := column.NewNumericStorage([]uint32{0, 1, 2, 3, 4}, true)
	chain := arrangementChain([]uint32{0, 2, 4, 1, 3}, numeric.MakeChain(), false)

	tokens := []column.SortToken{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}}
	chain.StableSort(tokens, column.Ascending)
	assert.Equal(t, []uint32{0, 3, 1, 4, 2}, column.ExtractPayload(tokens))
	for _, tok := range tokens {
		assert.Equal(t, tok.Index, tok.Payload, "index must be restored to the overlay position")
	}

	chain.StableSort(tokens, column.Descending)
	assert.Equal(t, []uint32{2, 4, 1, 3, 0}, column.ExtractPayload(tokens))
}

func TestArrangementOverlay_StableSortTies(t *testing.T) {
	numeric := column.NewNumericStorage([]int64{10, 20, 10}, false)
	// Overlay values: 20, 10, 10, 20, 10
	chain := arrangementChain([]uint32{1, 0, 2, 1, 0}, numeric.MakeChain(), false)

	tokens := []column.SortToken{{4, 100}, {3, 101}, {2, 102}, {1, 103}, {0, 104}, {2, 105}}
	chain.StableSort(tokens, column.Ascending)
	assert.Equal(t, []uint32{100, 102, 103, 105, 101, 104}, column.ExtractPayload(tokens))

	chain.StableSort(tokens, column.Descending)
	assert.Equal(t, []uint32{101, 104, 100, 102, 103, 105}, column.ExtractPayload(tokens))
}

func TestArrangementOverlay_InvalidArrangement(t *testing.T) {
	requireViolation(t, func() {
		arrangementChain([]uint32{0, 5}, columntest.SearchAll(5), false)
	})
}

func TestArrangementOverlay_IndirectionLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([]int64, 300)
	for i := range data {
		data[i] = int64(rng.Intn(40))
	}
	leaf := column.NewNumericStorage(data, false).MakeChain()
	arrangement := make([]uint32, 500)
	for i := range arrangement {
		arrangement[i] = uint32(rng.Intn(len(data)))
	}
	chain := arrangementChain(arrangement, leaf, false)

	ops := []column.FilterOp{column.Eq, column.Ne, column.Lt, column.Le, column.Gt, column.Ge}
	for i := 0; i < 200; i++ {
		op := ops[rng.Intn(len(ops))]
		v := column.Long(int64(rng.Intn(45) - 2))
		start := uint32(rng.Intn(len(arrangement)))
		end := start + uint32(rng.Intn(len(arrangement)-int(start)+1))
		r := column.NewRange(start, end)

		var want []uint32
		for p := r.Start; p < r.End; p++ {
			if leaf.SingleSearch(op, v, arrangement[p]) == column.Match {
				want = append(want, p)
			}
		}
		got := column.ToIndexVector(chain.Search(op, v, r))
		if diff := cmp.Diff(want, got, emptyEqual); diff != "" {
			t.Fatalf("Search(%s, %s, %s) (-want +got):\n%s", op, v, r, diff)
		}

		indices := column.Indices{Data: make([]uint32, rng.Intn(50))}
		for k := range indices.Data {
			indices.Data[k] = uint32(rng.Intn(len(arrangement)))
		}
		var wantIdx []uint32
		for _, p := range indices.Data {
			if chain.SingleSearch(op, v, p) == column.Match {
				wantIdx = append(wantIdx, p)
			}
		}
		gotIdx := column.SelectIndices(indices, chain.IndexSearch(op, v, indices))
		if diff := cmp.Diff(wantIdx, gotIdx, emptyEqual); diff != "" {
			t.Fatalf("IndexSearch(%s, %s) (-want +got):\n%s", op, v, diff)
		}
	}
}

func TestArrangementOverlay_SortedArrangementLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	data := make([]float64, 257)
	for i := range data {
		data[i] = float64(rng.Intn(30)) / 2
	}
	leaf := column.NewNumericStorage(data, false).MakeChain()

	// An arrangement which visits the rows in value order.
	tokens := make([]column.SortToken, len(data))
	for i := range tokens {
		tokens[i] = column.SortToken{Index: uint32(i), Payload: uint32(i)}
	}
	leaf.StableSort(tokens, column.Ascending)
	arrangement := column.ExtractPayload(tokens)
	require.True(t, slices.IsSortedFunc(arrangement, func(a, b uint32) bool { return data[a] < data[b] }))

	sorted := arrangementChain(arrangement, leaf, true)
	unsorted := arrangementChain(arrangement, leaf, false)
	for _, op := range []column.FilterOp{column.Eq, column.Lt, column.Le, column.Gt, column.Ge, column.Ne} {
		for _, v := range []column.SqlValue{column.Double(3.5), column.Long(7), column.Long(-1), column.Double(100)} {
			for _, r := range []column.Range{column.NewRange(0, 257), column.NewRange(13, 200), column.NewRange(64, 65)} {
				want := column.ToIndexVector(unsorted.Search(op, v, r))
				got := column.ToIndexVector(sorted.Search(op, v, r))
				if diff := cmp.Diff(want, got, emptyEqual); diff != "" {
					t.Fatalf("Search(%s, %s, %s) (-want +got):\n%s", op, v, r, diff)
				}
			}
		}
	}
}

// emptyEqual treats nil and empty slices alike.
var emptyEqual = cmp.FilterValues(func(x, y []uint32) bool {
	return len(x) == 0 && len(y) == 0
}, cmp.Ignore())
