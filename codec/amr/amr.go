/*
NAME
  amr.go

DESCRIPTION
  amr.go recognizes the AMR-NB/WB magic header and parses the one-byte
  table-of-contents of each frame, building the damr configuration box.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package amr implements the AMR-NB/WB elementary stream importer.
package amr

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
)

// MagicNB and MagicWB are the file-header magics that identify the two
// AMR variants.
const (
	MagicNB = "#!AMR\n"
	MagicWB = "#!AMR-WB\n"
)

// frameLengthsNB/WB index frame_type (FT) to payload length in bytes,
// excluding the 1-byte TOC.
var frameLengthsNB = [16]int{13, 14, 16, 18, 20, 21, 27, 32, 5, 5, 5, 5, 0, 0, 0, 1}
var frameLengthsWB = [16]int{18, 24, 33, 37, 41, 47, 51, 59, 61, 6, 6, 0, 0, 0, 1, 1}

// Variant discriminates AMR-NB from AMR-WB.
type Variant int

const (
	NB Variant = iota
	WB
)

// DetectMagic reports the AMR variant and the magic's byte length, or false
// if buf does not begin with a recognized magic.
func DetectMagic(buf []byte) (Variant, int, bool) {
	if len(buf) >= len(MagicWB) && string(buf[:len(MagicWB)]) == MagicWB {
		return WB, len(MagicWB), true
	}
	if len(buf) >= len(MagicNB) && string(buf[:len(MagicNB)]) == MagicNB {
		return NB, len(MagicNB), true
	}
	return 0, 0, false
}

// SamplesPerFrame returns 160 for NB, 320 for WB.
func (v Variant) SamplesPerFrame() uint32 {
	if v == WB {
		return 320
	}
	return 160
}

// Frequency returns 8000 for NB, 16000 for WB.
func (v Variant) Frequency() uint32 {
	if v == WB {
		return 16000
	}
	return 8000
}

// TOC is the one-byte table-of-contents preceding each AMR frame.
type TOC struct {
	FT uint8
	Q  bool
}

// ParseTOC decodes the TOC byte: {?:1, FT:4, Q:1, ?:2}.
func ParseTOC(b byte) TOC {
	bs := bitio.NewMemoryFromBytes([]byte{b})
	bits := bitio.NewBits(bs)
	bits.Skip(1)
	ft := uint8(bits.Get(4))
	q := bits.Get(1) == 1
	return TOC{FT: ft, Q: q}
}

// FrameLength returns the payload length in bytes (excluding the TOC byte)
// for the given variant and frame type, or -1 if FT is out of range.
func FrameLength(v Variant, ft uint8) int {
	if ft > 15 {
		return -1
	}
	if v == WB {
		return frameLengthsWB[ft]
	}
	return frameLengthsNB[ft]
}

// BuildDamr serializes the damr configuration box: vendor
// "    ", version 0, mode_set 0x83FF, change_period 1, frames_per_sample 1.
func BuildDamr() []byte {
	bs := bitio.NewMemory()
	bs.PutBE32(17)
	bs.PutBytes([]byte("damr"))
	bs.PutBytes([]byte("    ")) // vendor.
	bs.PutByte(0)               // decoder version.
	bs.PutBE16(0x83FF)          // mode_set.
	bs.PutByte(1)               // mode_change_period.
	bs.PutByte(1)               // frames_per_sample.
	return bs.Bytes()
}

// ErrUnrecognizedMagic is returned by the probe when buf does not begin
// with an AMR magic.
var ErrUnrecognizedMagic = errors.New("amr: unrecognized magic")
