/*
NAME
  nal.go

DESCRIPTION
  nal.go scans an Annex B byte stream for NAL unit start codes and extracts
  each unit's header and RBSP.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264 implements the H.264/AVC elementary stream importer: NAL
// scanning, SPS/PPS/slice-header parsing, POC derivation, timestamp
// synthesis, and avcC construction.
package h264

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/ausocean/esimport/codec/h264/h264dec"
	"github.com/ausocean/esimport/codec/h264/h264dec/bits"
)

// NAL unit types referenced by AU delimitation and parameter-set handling,
// per Table 7-1.
const (
	nalTypeNonIDRSlice = 1
	nalTypeIDRSlice    = 5
	nalTypeSEI         = 6
	nalTypeSPS         = 7
	nalTypePPS         = 8
	nalTypeAUD         = 9
	nalTypeEndOfSeq    = 10
	nalTypeEndOfStream = 11
	nalTypeFillerData  = 12
	nalTypeSPSExt      = 13
)

var errNoLongStartCode = errors.New("h264: parameter set or AU delimiter not preceded by a long start code")

// nalUnit is one scanned NAL unit: its header fields and EPB-stripped RBSP.
type nalUnit struct {
	long    bool // preceded by a 4-byte 0x00000001 start code.
	refIdc  uint8
	nalType uint8
	rbsp    []byte
	size    int // total bytes consumed from the scanned buffer, start code included.
}

// startCodeLen reports the length of the start code beginning at buf[0] (3
// for 0x000001, 4 for 0x00000001), or ok == false if buf does not begin with
// either.
func startCodeLen(buf []byte) (n int, ok bool) {
	if len(buf) >= 4 && buf[0] == 0 && buf[1] == 0 && buf[2] == 0 && buf[3] == 1 {
		return 4, true
	}
	if len(buf) >= 3 && buf[0] == 0 && buf[1] == 0 && buf[2] == 1 {
		return 3, true
	}
	return 0, false
}

// findNextStartCode returns the offset of the first 0x000001 pattern in buf,
// regardless of whether it is the short or long form.
func findNextStartCode(buf []byte) (offset int, ok bool) {
	for i := 0; i+3 <= len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			return i, true
		}
	}
	return 0, false
}

// scanNAL reads the single NAL unit beginning at the start code at buf[0],
// returning it and the number of bytes consumed, up to but excluding the
// NEXT unit's start code. ok is false when buf does not contain a complete
// NAL unit (more data is needed).
func scanNAL(buf []byte) (n nalUnit, ok bool) {
	scLen, found := startCodeLen(buf)
	if !found {
		return nalUnit{}, false
	}
	body := buf[scLen:]

	j, found := findNextStartCode(body)
	if !found {
		return nalUnit{}, false // need more data to find the unit's end.
	}
	// A long start code's extra leading zero byte belongs to the start
	// code, not to this unit's content.
	contentEnd := j
	if j > 0 && body[j-1] == 0 {
		contentEnd = j - 1
	}

	nu := nalUnit{long: scLen == 4, size: scLen + contentEnd}
	if err := nu.parse(body[:contentEnd]); err != nil {
		return nalUnit{}, false
	}
	return nu, true
}

func (n *nalUnit) parse(raw []byte) error {
	if len(raw) == 0 {
		return errors.New("h264: empty NAL unit")
	}
	br := bits.NewBitReader(bytes.NewReader(raw))
	u, err := h264dec.NewNALUnit(br)
	if err != nil {
		return errors.Wrap(err, "h264: parsing NAL unit")
	}
	n.refIdc = u.RefIdc
	n.nalType = u.Type
	n.rbsp = u.RBSP
	return nil
}

// isVCL reports whether nalType identifies a coded slice NAL unit.
func isVCL(nalType uint8) bool {
	return nalType >= 1 && nalType <= 5
}

// forcesNewAU reports whether a non-VCL NAL unit of this type, observed
// after a VCL NAL unit, forces the start of a new access unit.
func forcesNewAU(nalType uint8) bool {
	switch nalType {
	case nalTypeSEI, nalTypeAUD, nalTypeSPS, nalTypePPS:
		return true
	}
	return nalType >= 13 && nalType <= 18
}
