/*
NAME
  ac3.go

DESCRIPTION
  ac3.go parses AC-3 syncframe headers and builds the dac3 configuration
  box. The syncword scan follows the same reload-on-demand byte-scanner
  shape as streambuf.Buffer; bit-field extraction follows
  h264dec/bits.BitReader's cache/shift technique, generalised here via
  bitio.Bits.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ac3 implements the AC-3 and Enhanced AC-3 (E-AC-3) elementary
// stream importers.
package ac3

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
)

// Syncword is the 16-bit AC-3/E-AC-3 syncframe marker.
const Syncword = 0x0B77

// SamplesPerFrame is fixed for AC-3: 6 blocks of 256 samples.
const SamplesPerFrame = 1536

// frameSizeWords[frmsizecod>>1][fscod] gives the base frame size in 16-bit
// words for fscod in {0:48kHz, 1:44.1kHz, 2:32kHz}. For fscod==1, an
// additional word (2 bytes) is added when frmsizecod is odd, per the
// ATSC A/52 Annex frame-size table.
var frameSizeWords = [19][3]uint16{
	{64, 69, 96}, {80, 87, 120}, {96, 104, 144}, {112, 121, 168},
	{128, 139, 192}, {160, 174, 240}, {192, 208, 288}, {224, 243, 336},
	{256, 278, 384}, {320, 348, 480}, {384, 417, 576}, {448, 487, 672},
	{512, 557, 768}, {640, 696, 960}, {768, 835, 1152}, {896, 975, 1344},
	{1024, 1114, 1536}, {1152, 1253, 1728}, {1280, 1392, 1920},
}

// SyncFrame holds the AC-3 syncframe's parsed parameter fields.
type SyncFrame struct {
	Fscod      uint8
	Frmsizecod uint8
	Bsid       uint8
	Bsmod      uint8
	Acmod      uint8
	CMixLev    uint8 // present only when Acmod implies a center channel.
	SurMixLev  uint8 // present only when Acmod implies a surround channel.
	DSurMod    uint8 // present only when Acmod == 2 (stereo).
	LFEOn      bool

	// FrameSize is the syncframe's total size in bytes, derived from the
	// frame-size table.
	FrameSize int
}

// changeKey returns the subset of fields that determine whether a new
// syncframe constitutes a sample-description CHANGE.
func (f *SyncFrame) changeKey() [6]uint8 {
	return [6]uint8{f.Fscod, f.Bsid, f.Bsmod, f.Acmod, b2u8(f.LFEOn), f.Frmsizecod >> 1}
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SameSampleDescription reports whether a and b would produce the same
// dac3 configuration.
func SameSampleDescription(a, b *SyncFrame) bool { return a.changeKey() == b.changeKey() }

// Parse reads one AC-3 syncframe header (including the syncword) from buf
// and returns the decoded fields. buf must contain at least 6 bytes.
func Parse(buf []byte) (*SyncFrame, error) {
	if len(buf) < 6 {
		return nil, errors.New("ac3: buffer too short for syncframe header")
	}
	bs := bitio.NewMemoryFromBytes(buf)
	if bs.GetBE16() != Syncword {
		return nil, errors.New("ac3: bad syncword")
	}

	b := bitio.NewBits(bs)
	f := &SyncFrame{}
	f.Fscod = uint8(b.Get(2))
	f.Frmsizecod = uint8(b.Get(6))
	f.Bsid = uint8(b.Get(5))
	f.Bsmod = uint8(b.Get(3))
	f.Acmod = uint8(b.Get(3))

	if f.Fscod == 3 {
		return nil, errors.New("ac3: reserved fscod")
	}
	if f.Frmsizecod > 0x25 {
		return nil, errors.New("ac3: frmsizecod out of range")
	}
	if f.Bsid >= 10 {
		return nil, errors.Errorf("ac3: unsupported bsid %d (E-AC-3 or later)", f.Bsid)
	}

	// acmod-dependent downmix fields, per ATSC A/52 and L-SMASH's a52.c.
	if f.Acmod&0x01 != 0 && f.Acmod != 1 {
		f.CMixLev = uint8(b.Get(2))
	}
	if f.Acmod&0x04 != 0 {
		f.SurMixLev = uint8(b.Get(2))
	}
	if f.Acmod == 2 {
		f.DSurMod = uint8(b.Get(2))
	}
	f.LFEOn = b.Get(1) == 1

	if bs.Err() != nil {
		return nil, bs.Err()
	}

	row := frameSizeWords[f.Frmsizecod>>1]
	words := row[f.Fscod]
	size := int(words) * 2
	if f.Fscod == 1 && f.Frmsizecod&1 != 0 {
		size += 2
	}
	f.FrameSize = size
	return f, nil
}

// BuildDac3 serializes the dac3 configuration box: 4-byte
// box size 11, 4-char type "dac3", then 3 bytes of bit-packed AC-3 params.
func BuildDac3(f *SyncFrame) []byte {
	bs := bitio.NewMemory()
	bs.PutBE32(11)
	bs.PutBytes([]byte("dac3"))

	b := bitio.NewBits(bs)
	b.Put(2, uint64(f.Fscod))
	b.Put(5, uint64(f.Bsid))
	b.Put(3, uint64(f.Bsmod))
	b.Put(3, uint64(f.Acmod))
	b.Put(1, uint64(b2u8(f.LFEOn)))
	b.Put(5, uint64(f.Frmsizecod>>1))
	b.Put(5, 0) // reserved.
	b.PutAlign()

	return bs.Bytes()
}
