/*
NAME
  nal.go

DESCRIPTION
  nal.go scans an Annex B HEVC byte stream into NAL units, using the
  2-byte nal_unit_header() layout of Rec. ITU-T H.265 section 7.3.1.2, and
  classifies nal_unit_type against the VCL/IRAP/RASL/RADL/sub-layer
  non-reference ranges of Table 7-1.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import "github.com/pkg/errors"

// nal_unit_type values from Table 7-1, named the way the RTP extractor
// names the aggregation/fragmentation/PACI NAL types it dispatches on.
const (
	typeTrailN = 0
	typeTrailR = 1
	typeTSAN   = 2
	typeTSAR   = 3
	typeSTSAN  = 4
	typeSTSAR  = 5
	typeRADLN  = 6
	typeRADLR  = 7
	typeRASLN  = 8
	typeRASLR  = 9

	typeBLAWLP   = 16
	typeBLAWRADL = 17
	typeBLANLP   = 18
	typeIDRWRADL = 19
	typeIDRNLP   = 20
	typeCRANUT   = 21

	typeVPS = 32
	typeSPS = 33
	typePPS = 34
	typeAUD = 35
	typeEOS = 36
	typeEOB = 37
	typeFD  = 38

	typePrefixSEI = 39
	typeSuffixSEI = 40
)

var errNoLongStartCode = errors.New("h265: non-VCL NAL unit not preceded by a long start code")

// nalUnit is one scanned NAL unit: its 2-byte header fields and its
// emulation-prevention-stripped RBSP.
type nalUnit struct {
	long       bool
	nalType    uint8
	layerID    uint8
	temporalID uint8 // TemporalId, already reduced from nuh_temporal_id_plus1.
	rbsp       []byte
	size       int // total bytes consumed from the scan buffer, start code included.
}

// startCodeLen reports the length of the start code at the front of buf: 4
// for a long start code (00 00 00 01), 3 for a short one (00 00 01), or
// false if buf does not begin with either.
func startCodeLen(buf []byte) (int, bool) {
	if len(buf) >= 4 && buf[0] == 0 && buf[1] == 0 && buf[2] == 0 && buf[3] == 1 {
		return 4, true
	}
	if len(buf) >= 3 && buf[0] == 0 && buf[1] == 0 && buf[2] == 1 {
		return 3, true
	}
	return 0, false
}

// findNextStartCode scans buf for the next 00 00 01 byte pattern, long or
// short, returning its offset.
func findNextStartCode(buf []byte) (int, bool) {
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			return i, true
		}
	}
	return 0, false
}

// scanNAL extracts one complete NAL unit from the front of buf, which must
// begin with a start code. It reports ok == false when no terminating start
// code has yet arrived (the caller should read more and retry, or treat
// end-of-stream as the final unit's terminator).
func scanNAL(buf []byte) (nalUnit, bool) {
	scLen, ok := startCodeLen(buf)
	if !ok {
		return nalUnit{}, false
	}
	body := buf[scLen:]
	j, ok := findNextStartCode(body)
	if !ok {
		return nalUnit{}, false
	}
	contentEnd := j
	if contentEnd > 0 && body[contentEnd-1] == 0 {
		// The next unit's start code is long; its extra leading zero byte
		// belongs to that start code, not to this unit's content.
		contentEnd--
	}

	if len(body) < 2 {
		return nalUnit{}, false
	}
	n := nalUnit{
		long: scLen == 4,
		size: scLen + contentEnd,
	}
	n.nalType = (body[0] >> 1) & 0x3f
	n.layerID = ((body[0] & 0x1) << 5) | (body[1] >> 3)
	n.temporalID = (body[1] & 0x7) - 1
	n.rbsp = removeEmulationPrevention(body[2:contentEnd])
	return n, true
}

// removeEmulationPrevention strips emulation_prevention_three_byte (the 0x03
// byte following any 00 00 in RBSP data) from raw NAL payload bytes.
func removeEmulationPrevention(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	zeros := 0
	for _, b := range raw {
		if zeros >= 2 && b == 0x03 {
			zeros = 0
			continue
		}
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}

// isVCL reports whether nalType identifies a coded slice NAL unit.
func isVCL(nalType uint8) bool { return nalType <= 31 }

// isIRAP reports whether nalType is one of the intra random-access picture
// classes (BLA, IDR, CRA), nal_unit_type 16-23.
func isIRAP(nalType uint8) bool { return nalType >= 16 && nalType <= 23 }

func isIDR(nalType uint8) bool { return nalType == typeIDRWRADL || nalType == typeIDRNLP }
func isBLA(nalType uint8) bool {
	return nalType == typeBLAWLP || nalType == typeBLAWRADL || nalType == typeBLANLP
}
func isCRA(nalType uint8) bool { return nalType == typeCRANUT }

// isRASL and isRADL report whether nalType marks a leading picture as
// undecodable (RASL) or decodable (RADL) when the stream is entered at the
// IRAP picture it leads.
func isRASL(nalType uint8) bool { return nalType == typeRASLN || nalType == typeRASLR }
func isRADL(nalType uint8) bool { return nalType == typeRADLN || nalType == typeRADLR }

// isSubLayerNonRef reports whether a VCL nal_unit_type in the TRAIL/TSA/
// STSA/RADL/RASL/RSV_VCL ranges is a sub-layer non-reference picture (the
// _N suffix in Table 7-1): even-valued types below the IRAP range.
func isSubLayerNonRef(nalType uint8) bool { return nalType <= 14 && nalType%2 == 0 }

// forcesNewAU reports whether a non-VCL nal_unit_type, when it appears
// ahead of the next VCL NAL, closes out the access unit in progress.
func forcesNewAU(nalType uint8) bool {
	switch nalType {
	case typeAUD, typeVPS, typeSPS, typePPS, typePrefixSEI:
		return true
	}
	return false
}
