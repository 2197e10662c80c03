/*
NAME
  seqhdr.go

DESCRIPTION
  seqhdr.go parses the Advanced Profile sequence header and entry-point
  header fields this module tracks, reusing the h264dec bit reader
  (codec/h264/h264dec/bits/bitreader.go) the way codec/h265/golomb.go does,
  since VC-1's sequence layer is fixed-width bit fields rather than
  Exp-Golomb codes.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vc1

import (
	"bytes"

	"github.com/ausocean/esimport/codec/h264/h264dec/bits"
)

// bitReader wraps h264dec/bits.BitReader with a sticky error, mirroring the
// egolomb wrapper codec/h265/golomb.go provides for its own bit source.
type bitReader struct {
	br  *bits.BitReader
	err error
}

func newBitReader(b []byte) *bitReader {
	return &bitReader{br: bits.NewBitReader(bytes.NewReader(b))}
}

func (r *bitReader) u(n int) uint64 {
	if r.err != nil || n == 0 {
		return 0
	}
	v, err := r.br.ReadBits(n)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *bitReader) flag() bool { return r.u(1) == 1 }

// SequenceHeader holds the Advanced Profile sequence-layer fields this
// module tracks for dvc1 serialization and picture-layer context.
type SequenceHeader struct {
	Profile              uint8
	Level                uint8
	ColorDiffFormat      uint8
	FrameRateNumerator   uint32
	FrameRateDenominator uint32
	FrameRateFlag        bool
	DispHorizSize        uint16
	DispVertSize         uint16
	AspectWidth          uint8
	AspectHeight         uint8
	ColorPrim            uint8
	TransferChar         uint8
	MatrixCoef           uint8

	raw []byte
}

// parseSequenceHeader parses the ADVANCED profile sequence header fields
// this module needs: profile/level, optional display extension
// (aspect/framerate/color description), per Annex J of SMPTE 421M.
func parseSequenceHeader(payload []byte) (*SequenceHeader, error) {
	r := newBitReader(payload)
	s := &SequenceHeader{raw: append([]byte(nil), payload...)}

	s.Profile = uint8(r.u(2))
	s.Level = uint8(r.u(3))
	s.ColorDiffFormat = uint8(r.u(2))
	_ = r.u(3) // FRMRTQ_POSTPROC
	_ = r.u(5) // BITRTQ_POSTPROC
	_ = r.flag() // POSTPROCFLAG
	s.DispHorizSize = uint16(r.u(12)) + 1
	s.DispVertSize = uint16(r.u(12)) + 1
	_ = r.flag() // PULLDOWN
	_ = r.flag() // INTERLACE
	_ = r.flag() // TFCNTRFLAG
	_ = r.flag() // FINTERPFLAG
	_ = r.u(1)   // reserved
	_ = r.flag() // PSF

	if r.flag() { // DISPLAY_EXT
		s.DispHorizSize = uint16(r.u(14)) + 1
		s.DispVertSize = uint16(r.u(14)) + 1
		if r.flag() { // ASPECT_RATIO_FLAG
			ratio := r.u(4)
			if ratio == 15 { // extended aspect ratio
				s.AspectWidth = uint8(r.u(8))
				s.AspectHeight = uint8(r.u(8))
			} else {
				s.AspectWidth = uint8(ratio)
			}
		}
		if r.flag() { // FRAMERATE_FLAG
			s.FrameRateFlag = true
			if r.flag() { // FRAMERATEIND
				s.FrameRateNumerator = uint32(r.u(16)) + 1
				s.FrameRateDenominator = 32
			} else {
				s.FrameRateNumerator = frameRateNumTable[r.u(8)]
				s.FrameRateDenominator = frameRateDenTable[r.u(4)]
			}
		}
		if r.flag() { // COLOR_FORMAT_FLAG
			s.ColorPrim = uint8(r.u(8))
			s.TransferChar = uint8(r.u(8))
			s.MatrixCoef = uint8(r.u(8))
		}
	}

	_ = r.flag() // HRD_PARAM_FLAG, HRD parameters are not tracked by this module.

	return s, r.err
}

// frameRateNumTable and frameRateDenTable are the Table-based framerate
// encodings of Annex J, abbreviated to the entries this module exercises;
// indices this module does not populate default to 0.
var frameRateNumTable = map[uint64]uint32{
	1: 24000, 2: 25000, 3: 30000, 4: 50000, 5: 60000,
}

var frameRateDenTable = map[uint64]uint32{
	1: 1000, 2: 1001,
}

// EntryPoint holds the entry-point header fields this module tracks.
type EntryPoint struct {
	ClosedEntryPoint bool
	BrokenLink       bool
	raw              []byte
}

func parseEntryPoint(payload []byte) (*EntryPoint, error) {
	r := newBitReader(payload)
	e := &EntryPoint{raw: append([]byte(nil), payload...)}
	e.BrokenLink = r.flag()
	e.ClosedEntryPoint = r.flag()
	return e, r.err
}
