/*
NAME
  streambuf.go

DESCRIPTION
  streambuf.go provides Buffer, a sliding-window byte buffer over either a
  file-like io.Reader or an in-memory blob, generalising AusOcean's
  read/reload byte-scanner pattern into an anticipation-guaranteeing
  Update() contract: callers declare how many bytes they need next and the
  buffer reloads only when that demand isn't already satisfied.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package streambuf implements the sliding window over a
// file or in-memory blob that every codec probe/parse loop scans through.
package streambuf

import (
	"io"
)

// Buffer is a sliding window buf[:end] with a read cursor pos, backed by
// an io.Reader. Invariant: 0 <= pos <= end. After Update, unconsumed
// bytes [pos, end) are moved down to index 0 before refill.
type Buffer struct {
	r   io.Reader
	buf []byte

	end int // valid data extends to buf[:end].
	pos int // read cursor.

	noMoreRead bool // true once the backend has reported EOF.
}

// New returns a Buffer that reads from r using an internal buffer of the
// given size (grown by Update if a single anticipation demand exceeds it).
func New(r io.Reader, size int) *Buffer {
	if size <= 0 {
		size = 64 << 10
	}
	return &Buffer{r: r, buf: make([]byte, size)}
}

// NewFromBytes returns a Buffer over an in-memory blob, with no further
// reload ever needed once the blob is exhausted.
func NewFromBytes(data []byte) *Buffer {
	return &Buffer{buf: append([]byte(nil), data...), end: len(data), noMoreRead: true}
}

// Pos returns the current read cursor.
func (b *Buffer) Pos() int { return b.pos }

// End returns the end of currently valid data.
func (b *Buffer) End() int { return b.end }

// Bytes returns the unconsumed window [pos, end).
func (b *Buffer) Bytes() []byte { return b.buf[b.pos:b.end] }

// NoMoreRead reports whether the backend has been observed at EOF.
func (b *Buffer) NoMoreRead() bool { return b.noMoreRead }

// Advance moves pos forward by n bytes, which must not exceed End()-Pos().
func (b *Buffer) Advance(n int) {
	b.pos += n
	if b.pos > b.end {
		b.pos = b.end
	}
}

// Update guarantees that either End()-Pos() > anticipation, or NoMoreRead()
// is true. It slides unconsumed bytes down to the start of the buffer
// before refilling, and grows the buffer if a single anticipation demand
// cannot be satisfied by its current capacity.
func (b *Buffer) Update(anticipation int) error {
	if b.r == nil {
		// In-memory backend: everything is already resident.
		return nil
	}
	for !b.noMoreRead && b.end-b.pos <= anticipation {
		remainder := b.end - b.pos
		copy(b.buf, b.buf[b.pos:b.end])
		b.pos = 0
		b.end = remainder

		if anticipation+1 > len(b.buf) {
			grown := make([]byte, anticipation+1+len(b.buf))
			copy(grown, b.buf[:b.end])
			b.buf = grown
		}

		n, err := b.r.Read(b.buf[b.end:])
		b.end += n
		if err != nil {
			if err != io.EOF {
				return err
			}
			b.noMoreRead = true
		}
		if n == 0 {
			b.noMoreRead = true
		}
	}
	return nil
}
