/*
NAME
  bytestream.go

DESCRIPTION
  bytestream.go provides Bs, an append-mode byte stream writer/reader over a
  read/write/seek backend, with a sticky error flag: once set, all further
  mutating operations become no-ops and all further reads return zero.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bitio provides the bit- and byte-level stream primitives shared by
// every codec parser: Bs is a sticky-error byte stream over a read/write/seek
// backend, and Bits is an MSB-first bit reader/writer layered over it.
package bitio

import (
	"io"

	"github.com/pkg/errors"
)

// grow is the minimum allocation watermark step used when the internal
// buffer needs to grow, matching lsmash_bs_alloc's "size + 64KiB" policy.
const grow = 1 << 16

// Backend is the read/write/seek collaborator a Bs is layered over. A Bs
// never assumes more than this: file I/O policy, and everything upstream of
// it, is explicitly out of scope.
type Backend interface {
	io.Reader
	io.Writer
	io.Seeker
}

// Bs is an append-mode byte stream. Writes accumulate in an internal buffer
// (growing in >= 64KiB chunks) until Flush pushes them through the backend.
// Reads are served from the same buffer once data has been loaded via Read.
//
// Invariant: once Err() is non-nil, every subsequent mutating method is a
// no-op and every subsequent read/get method returns the zero value.
type Bs struct {
	backend Backend

	buffer []byte // accumulated bytes: [0:pos) already consumed by reads, [pos:store) pending.
	store  int    // valid length of buffer.
	pos    int    // read cursor into buffer.

	written int64 // cumulative bytes flushed to the backend.
	offset  int64 // current backend offset, reconciled on Seek.

	err error
}

// New returns a Bs layered over backend.
func New(backend Backend) *Bs {
	return &Bs{backend: backend}
}

// nopBackend is a Backend that discards writes and never produces data; it
// backs in-memory Bs instances used purely to assemble a box payload via
// Put* calls and then read back via Bytes().
type nopBackend struct{}

func (nopBackend) Read([]byte) (int, error)      { return 0, io.EOF }
func (nopBackend) Write(p []byte) (int, error)    { return len(p), nil }
func (nopBackend) Seek(int64, int) (int64, error) { return 0, nil }

// NewMemory returns a Bs suitable for assembling a payload purely in memory:
// Put* methods accumulate bytes retrievable via Bytes(), with no real I/O
// ever performed. This is the shape every config-box builder (dac3, dec3,
// ddts, damr, esds, avcC, hvcC, dvc1) uses.
func NewMemory() *Bs { return New(nopBackend{}) }

// NewMemoryFromBytes returns a Bs whose read side is pre-loaded with data,
// for parsing a box payload already held in memory.
func NewMemoryFromBytes(data []byte) *Bs {
	bs := New(nopBackend{})
	bs.buffer = append([]byte(nil), data...)
	bs.store = len(data)
	return bs
}

// Err returns the sticky error, if any.
func (bs *Bs) Err() error { return bs.err }

// fail sets the sticky error if not already set.
func (bs *Bs) fail(err error) {
	if bs.err == nil {
		bs.err = err
	}
}

// alloc grows buffer so that it can hold at least size bytes, matching the
// C implementation's "size + 64KiB" watermark so repeated small appends don't
// thrash reallocation.
func (bs *Bs) alloc(size int) {
	if bs.err != nil || cap(bs.buffer) >= size {
		return
	}
	next := make([]byte, len(bs.buffer), size+grow)
	copy(next, bs.buffer)
	bs.buffer = next
}

// PutByte appends a single byte.
func (bs *Bs) PutByte(v byte) {
	if bs.err != nil {
		return
	}
	bs.alloc(bs.store + 1)
	bs.buffer = append(bs.buffer[:bs.store], v)
	bs.store++
}

// PutBytes appends raw bytes verbatim.
func (bs *Bs) PutBytes(v []byte) {
	if bs.err != nil || len(v) == 0 {
		return
	}
	bs.alloc(bs.store + len(v))
	bs.buffer = append(bs.buffer[:bs.store], v...)
	bs.store += len(v)
}

// PutBE16 appends a big-endian uint16.
func (bs *Bs) PutBE16(v uint16) { bs.PutBytes([]byte{byte(v >> 8), byte(v)}) }

// PutBE24 appends a big-endian 24-bit value (low 24 bits of v).
func (bs *Bs) PutBE24(v uint32) { bs.PutBytes([]byte{byte(v >> 16), byte(v >> 8), byte(v)}) }

// PutBE32 appends a big-endian uint32.
func (bs *Bs) PutBE32(v uint32) {
	bs.PutBytes([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// PutBE64 appends a big-endian uint64.
func (bs *Bs) PutBE64(v uint64) {
	bs.PutBE32(uint32(v >> 32))
	bs.PutBE32(uint32(v))
}

// PutLE16 appends a little-endian uint16.
func (bs *Bs) PutLE16(v uint16) { bs.PutBytes([]byte{byte(v), byte(v >> 8)}) }

// PutLE32 appends a little-endian uint32.
func (bs *Bs) PutLE32(v uint32) {
	bs.PutBytes([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// Flush writes all pending bytes to the backend, advancing Written and
// Offset, and resets the pending store. On write shortfall it sets the
// sticky error.
func (bs *Bs) Flush() error {
	if bs.err != nil {
		return bs.err
	}
	if bs.store == 0 {
		return nil
	}
	n, err := bs.backend.Write(bs.buffer[:bs.store])
	if err != nil || n != bs.store {
		bs.fail(errors.Wrap(err, "short write flushing byte stream"))
		return bs.err
	}
	bs.written += int64(n)
	bs.offset += int64(n)
	bs.buffer = bs.buffer[:0]
	bs.store = 0
	return nil
}

// Bytes returns the bytes accumulated so far without flushing them; used by
// config-box builders that assemble a payload in memory before handing it to
// a caller rather than to a Backend.
func (bs *Bs) Bytes() []byte {
	if bs.err != nil {
		return nil
	}
	return bs.buffer[:bs.store]
}

// Written reports the cumulative number of bytes flushed through the backend.
func (bs *Bs) Written() int64 { return bs.written }

// Read appends size bytes read from the backend into buffer, beyond whatever
// is already pending (store), so Get* calls can consume them.
func (bs *Bs) Read(size int) error {
	if bs.err != nil || size <= 0 {
		return bs.err
	}
	bs.alloc(bs.store + size)
	tmp := make([]byte, size)
	n, err := io.ReadFull(bs.backend, tmp)
	if n > 0 {
		bs.buffer = append(bs.buffer[:bs.store], tmp[:n]...)
		bs.store += n
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		bs.fail(errors.Wrap(err, "byte stream read"))
	}
	return bs.err
}

// Seek delegates to the backend and reconciles Offset with Written, clamping
// to [0, Written].
func (bs *Bs) Seek(offset int64, whence int) error {
	if bs.err != nil {
		return bs.err
	}
	_, err := bs.backend.Seek(offset, whence)
	if err != nil {
		bs.fail(errors.Wrap(err, "byte stream seek"))
		return bs.err
	}
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			offset = 0
		}
		if offset > bs.written {
			offset = bs.written
		}
		bs.offset = offset
	case io.SeekCurrent:
		next := bs.offset + offset
		if next < 0 {
			next = 0
		}
		if next > bs.written {
			next = bs.written
		}
		bs.offset = next
	case io.SeekEnd:
		next := bs.written + offset
		if next < 0 {
			next = 0
		}
		if next > bs.written {
			next = bs.written
		}
		bs.offset = next
	}
	return nil
}

// GetByte reads and consumes a byte from the pending buffer. Over-read sets
// the sticky error and returns zero.
func (bs *Bs) GetByte() byte {
	if bs.err != nil || bs.pos >= bs.store {
		bs.fail(io.ErrUnexpectedEOF)
		return 0
	}
	b := bs.buffer[bs.pos]
	bs.pos++
	return b
}

// GetBE16 reads a big-endian uint16.
func (bs *Bs) GetBE16() uint16 {
	return uint16(bs.GetByte())<<8 | uint16(bs.GetByte())
}

// GetBE24 reads a big-endian 24-bit value.
func (bs *Bs) GetBE24() uint32 {
	return uint32(bs.GetByte())<<16 | uint32(bs.GetByte())<<8 | uint32(bs.GetByte())
}

// GetBE32 reads a big-endian uint32.
func (bs *Bs) GetBE32() uint32 {
	return uint32(bs.GetBE16())<<16 | uint32(bs.GetBE16())
}

// GetBE64 reads a big-endian uint64.
func (bs *Bs) GetBE64() uint64 {
	return uint64(bs.GetBE32())<<32 | uint64(bs.GetBE32())
}

// Remaining returns the number of unconsumed bytes pending in the buffer.
func (bs *Bs) Remaining() int {
	if bs.err != nil {
		return 0
	}
	return bs.store - bs.pos
}
