/*
NAME
  bits.go

DESCRIPTION
  bits.go provides Bits, an MSB-first bit-level reader/writer layered over a
  Bs, generalising the cache/shift technique used by h264dec's BitReader
  (codec/h264/h264dec/bits/bitreader.go) to both directions
  and to widths beyond 32 bits, as required for ALS and DTS slice layers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bitio

import "io"

// Bits is a bit-granularity view over a Bs. Reads and writes are MSB-first.
// When byte-aligned, cache holds no partial byte (store == 0).
type Bits struct {
	bs    *Bs
	cache uint8 // partial byte, left-justified bits already consumed/produced.
	store uint  // number of valid bits currently held in cache (0-7).
}

// NewBits returns a Bits view over bs.
func NewBits(bs *Bs) *Bits { return &Bits{bs: bs} }

// ByteAligned reports whether the writer/reader sits on a byte boundary.
func (b *Bits) ByteAligned() bool { return b.store == 0 }

// Put appends the low width bits of value, MSB-first, width <= 64.
func (b *Bits) Put(width int, value uint64) {
	if b.bs.Err() != nil || width <= 0 {
		return
	}
	for width > 0 {
		take := 8 - int(b.store)
		if take > width {
			take = width
		}
		shift := width - take
		bits := byte((value >> uint(shift)) & ((1 << uint(take)) - 1))
		b.cache |= bits << uint(8-int(b.store)-take)
		b.store += uint(take)
		width -= take
		if b.store == 8 {
			b.bs.PutByte(b.cache)
			b.cache = 0
			b.store = 0
		}
	}
}

// PutAlign flushes any partial cache byte, left-aligned with zero padding.
func (b *Bits) PutAlign() {
	if b.bs.Err() != nil || b.store == 0 {
		return
	}
	b.bs.PutByte(b.cache)
	b.cache = 0
	b.store = 0
}

// Get reads width bits (width <= 64), zero-extended, MSB-first. Reading past
// the end of available data sets the Bs's sticky error and returns zero.
func (b *Bits) Get(width int) uint64 {
	if b.bs.Err() != nil || width <= 0 {
		return 0
	}
	var result uint64
	for width > 0 {
		if b.store == 0 {
			if b.bs.Remaining() == 0 {
				b.bs.fail(io.ErrUnexpectedEOF)
				return 0
			}
			b.cache = b.bs.GetByte()
			if b.bs.Err() != nil {
				return 0
			}
			b.store = 8
		}
		take := int(b.store)
		if take > width {
			take = width
		}
		shift := int(b.store) - take
		bits := (b.cache >> uint(shift)) & byte((1<<uint(take))-1)
		result = result<<uint(take) | uint64(bits)
		b.store -= uint(take)
		width -= take
	}
	return result
}

// Peek returns the next width bits without advancing the reader, by saving
// and restoring both the bit cache and the underlying Bs read cursor.
func (b *Bits) Peek(width int) (uint64, bool) {
	savePos, saveErr, saveCache, saveStore := b.bs.pos, b.bs.err, b.cache, b.store
	v := b.Get(width)
	ok := b.bs.Err() == nil
	b.bs.pos, b.bs.err, b.cache, b.store = savePos, saveErr, saveCache, saveStore
	return v, ok
}

// Skip discards n bits without returning them.
func (b *Bits) Skip(n int) { b.Get(n) }
