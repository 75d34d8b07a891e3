// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column

import (
	"fmt"

	"github.com/featurebasedb/colchain/bitset"
	"github.com/featurebasedb/colchain/errors"
)

// ArrangementOverlay presents the rows of an inner chain in the order given
// by an arrangement: overlay position p is inner position arrangement[p].
// The arrangement may permute, select or repeat inner rows.
//
// The arrangement slice is borrowed from the table that built the
// overlay. It must stay unmodified for as long as any chain made from the
// overlay is in use.
type ArrangementOverlay struct {
	arrangement []uint32
	state       IndicesState
}

// NewArrangementOverlay returns an overlay over arrangement. state declares
// whether the arrangement positions themselves are non-decreasing and tags
// the arrangement slice when an ordered search hands it to the inner chain.
func NewArrangementOverlay(arrangement []uint32, state IndicesState) *ArrangementOverlay {
	return &ArrangementOverlay{arrangement: arrangement, state: state}
}

// MakeChain wraps inner. Every arrangement entry must be a valid inner
// position.
func (o *ArrangementOverlay) MakeChain(inner Chain, args ChainCreationArgs) Chain {
	n := inner.Size()
	for p, x := range o.arrangement {
		if x >= n {
			errors.Violation("arrangement overlay: arrangement[%d] = %d outside inner chain of %d rows", p, x, n)
		}
	}
	return &arrangementChain{
		inner:       inner,
		arrangement: o.arrangement,
		state:       o.state,
		sorted:      args.ArrangementIsSorted,
	}
}

type arrangementChain struct {
	inner       Chain
	arrangement []uint32
	state       IndicesState
	sorted      bool
}

var _ Chain = (*arrangementChain)(nil)

const arrangementName = "arrangement overlay"

func (c *arrangementChain) Size() uint32 { return uint32(len(c.arrangement)) }

func (c *arrangementChain) ValidateSearchConstraints(op FilterOp, v SqlValue) SearchValidationResult {
	return c.inner.ValidateSearchConstraints(op, v)
}

func (c *arrangementChain) SingleSearch(op FilterOp, v SqlValue, i uint32) SingleSearchResult {
	checkPosition(arrangementName, i, c.Size())
	return c.inner.SingleSearch(op, v, c.arrangement[i])
}

func (c *arrangementChain) Search(op FilterOp, v SqlValue, r Range) RangeOrBitSet {
	checkRange(arrangementName, r, c.Size())
	if r.Empty() {
		countSearch("arrangement", PathEmpty)
		return RangeResult(Range{})
	}
	arr := c.arrangement[r.Start:r.End]

	// Values reached through the arrangement are sorted, so the matches
	// are one contiguous run of arr.
	if c.sorted && op.IsOrdered() {
		countSearch("arrangement", PathOrdered)
		inner := c.inner.OrderedIndexSearch(op, v, Indices{Data: arr, State: c.state})
		return RangeResult(Range{Start: r.Start + inner.Start, End: r.Start + inner.End})
	}

	lo, hi := minMax(arr)
	span := Range{Start: lo, End: hi + 1}
	res := c.inner.Search(op, v, span)

	if res.IsRange() {
		ir := res.Range()
		switch {
		case ir.Empty():
			countSearch("arrangement", PathRange)
			return RangeResult(Range{})
		case ir.Start <= span.Start && span.End <= ir.End:
			countSearch("arrangement", PathRange)
			return RangeResult(r)
		}
		countSearch("arrangement", PathBitSet)
		b := bitset.NewBuilder(r.End, r.Start)
		for _, x := range arr {
			b.Append(ir.Contains(x))
		}
		return compactBitSet(r, b.Build())
	}

	countSearch("arrangement", PathBitSet)
	return compactBitSet(r, expandBitSet(r, arr, res.BitSet()))
}

// expandBitSet builds the overlay-domain set for r whose bit r.Start+i is
// inner[arr[i]]. Whole words are assembled in a register where possible.
func expandBitSet(r Range, arr []uint32, inner *bitset.BitSet) *bitset.BitSet {
	b := bitset.NewBuilder(r.End, r.Start)
	i := 0
	for n := int(b.BitsUntilWordAligned()); i < len(arr) && i < n; i++ {
		b.Append(inner.IsSet(arr[i]))
	}
	for ; len(arr)-i >= 64; i += 64 {
		var w uint64
		for j, x := range arr[i : i+64] {
			if inner.IsSet(x) {
				w |= 1 << uint(j)
			}
		}
		b.AppendWord(w)
	}
	for ; i < len(arr); i++ {
		b.Append(inner.IsSet(arr[i]))
	}
	return b.Build()
}

func (c *arrangementChain) IndexSearch(op FilterOp, v SqlValue, indices Indices) RangeOrBitSet {
	if len(indices.Data) == 0 {
		countSearch("arrangement", PathEmpty)
		return RangeResult(Range{})
	}
	countSearch("arrangement", PathIndex)
	// Offsets into the translated list equal offsets into indices, so the
	// inner result is already expressed in the caller's numbering.
	return c.inner.IndexSearch(op, v, c.translate(indices))
}

func (c *arrangementChain) OrderedIndexSearch(op FilterOp, v SqlValue, indices Indices) Range {
	if len(indices.Data) == 0 {
		return Range{}
	}
	return c.inner.OrderedIndexSearch(op, v, c.translate(indices))
}

// translate maps overlay positions to inner positions. The result is
// tagged monotonic only if the input is and the chain was made with
// ArrangementIsSorted.
func (c *arrangementChain) translate(indices Indices) Indices {
	size := c.Size()
	out := make([]uint32, len(indices.Data))
	for k, p := range indices.Data {
		checkPosition(arrangementName, p, size)
		out[k] = c.arrangement[p]
	}
	state := Nonmonotonic
	if indices.State == Monotonic && c.sorted {
		state = Monotonic
	}
	return Indices{Data: out, State: state}
}

func (c *arrangementChain) StableSort(tokens []SortToken, dir SortDirection) {
	size := c.Size()
	// Each translated token carries the offset of the token it came from,
	// so the caller's tokens can be put back in the inner order.
	scratch := make([]SortToken, len(tokens))
	for k, t := range tokens {
		checkPosition(arrangementName, t.Index, size)
		scratch[k] = SortToken{Index: c.arrangement[t.Index], Payload: uint32(k)}
	}
	c.inner.StableSort(scratch, dir)

	sorted := make([]SortToken, len(tokens))
	for j, s := range scratch {
		sorted[j] = tokens[s.Payload]
	}
	copy(tokens, sorted)
}

func (c *arrangementChain) String() string {
	return fmt.Sprintf("ArrangementOverlay(rows=%d, state=%s, sorted=%t) -> %s", c.Size(), c.state, c.sorted, c.inner)
}

func minMax(a []uint32) (lo, hi uint32) {
	lo, hi = a[0], a[0]
	for _, x := range a[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

func countSearch(overlay, path string) {
	CounterOverlaySearches.WithLabelValues(overlay, path).Inc()
}
