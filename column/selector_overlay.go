// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package column

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/featurebasedb/colchain/bitset"
	"github.com/featurebasedb/colchain/errors"
)

const selectorName = "selector overlay"

// SelectorOverlay keeps only the inner rows whose position is in a
// selection bitmap. Overlay position i is the i-th selected inner
// position, so the mapping is strictly increasing.
//
// The bitmap is borrowed and must not be modified while chains made from
// the overlay are in use.
type SelectorOverlay struct {
	selected *roaring.Bitmap
}

// NewSelectorOverlay returns an overlay selecting the rows in selected.
func NewSelectorOverlay(selected *roaring.Bitmap) *SelectorOverlay {
	return &SelectorOverlay{selected: selected}
}

// MakeChain wraps inner. Every selected position must be an inner row.
// Selection keeps inner order, so args carry nothing for this overlay.
func (o *SelectorOverlay) MakeChain(inner Chain, _ ChainCreationArgs) Chain {
	if !o.selected.IsEmpty() && o.selected.Maximum() >= inner.Size() {
		errors.Violation("selector overlay: selects row %d of %d row inner chain", o.selected.Maximum(), inner.Size())
	}
	return &selectorChain{
		inner:    inner,
		selected: o.selected,
		size:     uint32(o.selected.GetCardinality()),
	}
}

type selectorChain struct {
	inner    Chain
	selected *roaring.Bitmap
	size     uint32
}

var _ Chain = (*selectorChain)(nil)

func (c *selectorChain) Size() uint32 { return c.size }

// toInner maps an overlay position to its inner position.
func (c *selectorChain) toInner(i uint32) uint32 {
	checkPosition(selectorName, i, c.size)
	x, err := c.selected.Select(i)
	if err != nil {
		errors.Violation("selector overlay: select %d: %v", i, err)
	}
	return x
}

// countBelow returns how many selected positions are less than x, which
// is the overlay position of x when x is selected.
func (c *selectorChain) countBelow(x uint32) uint32 {
	if x == 0 {
		return 0
	}
	return uint32(c.selected.Rank(x - 1))
}

func (c *selectorChain) ValidateSearchConstraints(op FilterOp, v SqlValue) SearchValidationResult {
	return c.inner.ValidateSearchConstraints(op, v)
}

func (c *selectorChain) SingleSearch(op FilterOp, v SqlValue, i uint32) SingleSearchResult {
	return c.inner.SingleSearch(op, v, c.toInner(i))
}

func (c *selectorChain) Search(op FilterOp, v SqlValue, r Range) RangeOrBitSet {
	checkRange(selectorName, r, c.size)
	if r.Empty() {
		countSearch("selector", PathEmpty)
		return RangeResult(Range{})
	}
	span := Range{Start: c.toInner(r.Start), End: c.toInner(r.End-1) + 1}
	res := c.inner.Search(op, v, span)

	if res.IsRange() {
		countSearch("selector", PathRange)
		ir := res.Range()
		if ir.Empty() {
			return RangeResult(Range{})
		}
		out := Range{Start: c.countBelow(ir.Start), End: c.countBelow(ir.End)}
		if out.Start < r.Start {
			out.Start = r.Start
		}
		if out.End > r.End {
			out.End = r.End
		}
		if out.Start >= out.End {
			return RangeResult(Range{})
		}
		return RangeResult(out)
	}

	countSearch("selector", PathBitSet)
	inner := res.BitSet()
	b := bitset.NewBuilder(r.End, r.Start)
	it := c.selected.Iterator()
	it.AdvanceIfNeeded(span.Start)
	for n := r.Size(); n > 0; n-- {
		b.Append(inner.IsSet(it.Next()))
	}
	return compactBitSet(r, b.Build())
}

func (c *selectorChain) IndexSearch(op FilterOp, v SqlValue, indices Indices) RangeOrBitSet {
	if len(indices.Data) == 0 {
		countSearch("selector", PathEmpty)
		return RangeResult(Range{})
	}
	countSearch("selector", PathIndex)
	return c.inner.IndexSearch(op, v, c.translate(indices))
}

func (c *selectorChain) OrderedIndexSearch(op FilterOp, v SqlValue, indices Indices) Range {
	if len(indices.Data) == 0 {
		return Range{}
	}
	return c.inner.OrderedIndexSearch(op, v, c.translate(indices))
}

// translate keeps State: selection is strictly increasing.
func (c *selectorChain) translate(indices Indices) Indices {
	out := make([]uint32, len(indices.Data))
	for k, p := range indices.Data {
		out[k] = c.toInner(p)
	}
	return Indices{Data: out, State: indices.State}
}

func (c *selectorChain) StableSort(tokens []SortToken, dir SortDirection) {
	scratch := make([]SortToken, len(tokens))
	for k, t := range tokens {
		scratch[k] = SortToken{Index: c.toInner(t.Index), Payload: uint32(k)}
	}
	c.inner.StableSort(scratch, dir)

	sorted := make([]SortToken, len(tokens))
	for j, s := range scratch {
		sorted[j] = tokens[s.Payload]
	}
	copy(tokens, sorted)
}

func (c *selectorChain) String() string {
	return fmt.Sprintf("SelectorOverlay(rows=%d) -> %s", c.size, c.inner)
}
