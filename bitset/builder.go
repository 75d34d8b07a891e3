// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package bitset

import "github.com/featurebasedb/colchain/errors"

// Builder fills a BitSet of fixed size front to back. Positions below the
// start offset given to NewBuilder are left unset.
type Builder struct {
	bs  *BitSet
	pos uint32
}

// NewBuilder returns a Builder for a set of size n whose first start bits
// are unset.
func NewBuilder(n, start uint32) *Builder {
	if start > n {
		errors.Violation("bitset: builder start %d beyond size %d", start, n)
	}
	return &Builder{bs: New(n), pos: start}
}

// Remaining returns how many bits still have to be appended.
func (b *Builder) Remaining() uint32 { return b.bs.n - b.pos }

// BitsUntilWordAligned returns how many single bits must be appended before
// AppendWord may be used.
func (b *Builder) BitsUntilWordAligned() uint32 {
	if rem := b.pos % wordBits; rem != 0 {
		return wordBits - rem
	}
	return 0
}

// Append sets the next bit to v.
func (b *Builder) Append(v bool) {
	if b.pos >= b.bs.n {
		errors.Violation("bitset: append beyond size %d", b.bs.n)
	}
	if v {
		b.bs.words[b.pos/wordBits] |= 1 << (b.pos % wordBits)
	}
	b.pos++
}

// AppendWord appends 64 bits at once, least significant bit first. The
// builder must be word aligned with at least 64 bits remaining.
func (b *Builder) AppendWord(w uint64) {
	if b.pos%wordBits != 0 || b.Remaining() < wordBits {
		errors.Violation("bitset: unaligned word append at %d of %d", b.pos, b.bs.n)
	}
	b.bs.words[b.pos/wordBits] = w
	b.pos += wordBits
}

// Build returns the finished set. Every bit must have been appended.
func (b *Builder) Build() *BitSet {
	if b.pos != b.bs.n {
		errors.Violation("bitset: build with %d of %d bits appended", b.pos, b.bs.n)
	}
	bs := b.bs
	b.bs = nil
	return bs
}
