/*
NAME
  poc.go

DESCRIPTION
  poc.go derives picture order count across IRAP/leading/trailing pictures,
  using the same wraparound-comparison technique as codec/h264/poc.go's type
  0 derivation, but against a prevTid0Pic state rather than the immediately
  preceding picture.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import "github.com/pkg/errors"

var errPOCOverflow = errors.New("h265: picture order count overflow")

// tid0Pic records the fields that the prevTid0Pic state of clause 8.3.1
// needs from the most recent picture with TemporalId == 0 that is not RASL,
// RADL, or sub-layer non-reference.
type tid0Pic struct {
	picOrderCntMsb int64
	picOrderCntLsb int64
}

// pocState carries the running picture-order-count state across an entire
// bitstream: the prevTid0Pic picture and whether the next IRAP access unit
// is the first in the stream (or immediately follows an end-of-sequence/
// end-of-bitstream NAL), which governs NoRaslOutputFlag.
type pocState struct {
	prevTid0      tid0Pic
	havePrevTid0  bool
	firstPicture  bool
	afterEOSOrEOB bool
}

func newPOCState() *pocState {
	return &pocState{firstPicture: true}
}

// noRaslOutputFlag reports NoRaslOutputFlag for an IRAP access unit, per
// clause 8.1.3: always true for IDR and BLA, true for CRA only when it is
// the first picture in the bitstream or immediately follows an EOS/EOB NAL.
func (p *pocState) noRaslOutputFlag(nalType uint8) bool {
	if isIDR(nalType) || isBLA(nalType) {
		return true
	}
	if isCRA(nalType) {
		return p.firstPicture || p.afterEOSOrEOB
	}
	return false
}

// derive computes PicOrderCntVal for a picture with the given NAL type and
// parsed slice header, against sps's log2_max_pic_order_cnt_lsb_minus4.
func (p *pocState) derive(sps *SPS, nalType uint8, h *sliceHeader) (int64, error) {
	maxLsb := int64(1) << uint(sps.Log2MaxPOCLsbM4+4)

	noRASLOutput := p.noRaslOutputFlag(nalType)
	if isIRAP(nalType) && noRASLOutput {
		return int64(h.picOrderCntLsb), nil
	}

	prevMsb, prevLsb := int64(0), int64(0)
	if p.havePrevTid0 {
		prevMsb, prevLsb = p.prevTid0.picOrderCntMsb, p.prevTid0.picOrderCntLsb
	}
	lsb := int64(h.picOrderCntLsb)

	var msb int64
	switch {
	case lsb < prevLsb && prevLsb-lsb >= maxLsb/2:
		msb = prevMsb + maxLsb
	case lsb > prevLsb && lsb-prevLsb > maxLsb/2:
		msb = prevMsb - maxLsb
	default:
		msb = prevMsb
	}
	if isIRAP(nalType) {
		msb = 0
	}

	poc := msb + lsb
	if poc > 1<<31-1 || poc < -(1<<31) {
		return 0, errPOCOverflow
	}
	return poc, nil
}

// update advances the running state after a picture with the given NAL
// type, temporal id and derived MSB/LSB has been output.
func (p *pocState) update(nalType uint8, temporalID uint8, msb, lsb int64) {
	p.firstPicture = false
	switch nalType {
	case typeEOS, typeEOB:
		p.afterEOSOrEOB = true
		return
	}
	p.afterEOSOrEOB = false

	if temporalID == 0 && !isRASL(nalType) && !isRADL(nalType) && !isSubLayerNonRef(nalType) {
		p.prevTid0 = tid0Pic{picOrderCntMsb: msb, picOrderCntLsb: lsb}
		p.havePrevTid0 = true
	}
}

// pocMSB recovers PicOrderCntMsb from a derived POC and its LSB, for
// feeding update.
func pocMSB(poc, lsb int64) int64 { return poc - lsb }
