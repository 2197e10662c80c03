/*
NAME
  bdu.go

DESCRIPTION
  bdu.go scans a VC-1 Advanced Profile byte stream into EBDUs (encapsulated
  bitstream data units), each introduced by the 0x00 0x00 0x01 <bdu_type>
  start-code prefix, the same start-code scan architecture codec/h264/nal.go
  and codec/h265/nal.go use, generalized to VC-1's single 3-byte prefix
  (VC-1 has no long/short start-code distinction).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vc1

import "github.com/pkg/errors"

// BDU types, restricted to the video-layer range this module supports.
const (
	typeEndOfSequence = 0x0A
	typeSlice         = 0x0B
	typeField         = 0x0C
	typeFrame         = 0x0D
	typeEntryPoint    = 0x0E
	typeSequence      = 0x0F
)

var errUnsupportedBDU = errors.New("vc1: unsupported BDU type")

// ebdu is one scanned encapsulated bitstream data unit.
type ebdu struct {
	bduType byte
	payload []byte // bytes following the 4-byte start code + type, trailing start code excluded.
	size    int    // total bytes consumed from the scan buffer, start code included.
}

// findStartCode scans buf for the next 00 00 01 byte pattern, returning its
// offset.
func findStartCode(buf []byte) (int, bool) {
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			return i, true
		}
	}
	return 0, false
}

// scanEBDU extracts one complete EBDU from the front of buf, which must
// begin with a start code. It reports ok == false when no terminating start
// code has yet arrived.
func scanEBDU(buf []byte) (ebdu, bool) {
	if len(buf) < 4 || buf[0] != 0 || buf[1] != 0 || buf[2] != 1 {
		return ebdu{}, false
	}
	bduType := buf[3]

	rest := buf[4:]
	j, ok := findStartCode(rest)
	if !ok {
		return ebdu{}, false
	}

	e := ebdu{
		bduType: bduType,
		payload: rest[:j],
		size:    4 + j,
	}
	return e, true
}

// validBDUType reports whether t is one of the supported video-layer EBDU
// types, [0x0A, 0x0F].
func validBDUType(t byte) bool { return t >= typeEndOfSequence && t <= typeSequence }
