/*
NAME
  poc.go

DESCRIPTION
  poc.go derives picture order count across the three pic_order_cnt_type
  modes, and determines whether a slice starts a new access unit.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/codec/h264/h264dec"
)

var errPOCOverflow = errors.New("h264: picture order count overflow")

// pocState carries the running state POC derivation needs across pictures,
// across the type 0/1/2 recurrences.
type pocState struct {
	prevPicOrderCntMsb int64
	prevPicOrderCntLsb int64
	prevFrameNum       int
	prevFrameNumOffset int64
	haveFirst          bool
}

func (p *pocState) reset() { *p = pocState{} }

// derive computes (TopFieldOrderCnt, BottomFieldOrderCnt) for h against sps,
// and the picture's final POC (the frame-coded minimum of the two, or the
// relevant field for field pictures).
func (p *pocState) derive(sps *h264dec.SPS, h *sliceHeader) (poc int64, err error) {
	switch sps.PicOrderCountType {
	case 0:
		return p.deriveType0(sps, h)
	case 1:
		return p.deriveType1(sps, h)
	default:
		return p.deriveType2(sps, h)
	}
}

func (p *pocState) deriveType0(sps *h264dec.SPS, h *sliceHeader) (int64, error) {
	maxLsb := int64(1) << uint(sps.Log2MaxPicOrderCntLSBMin4+4)

	prevMsb, prevLsb := p.prevPicOrderCntMsb, p.prevPicOrderCntLsb
	if h.IDRPicFlag {
		prevMsb, prevLsb = 0, 0
	}
	lsb := int64(h.PicOrderCntLsb)

	var msb int64
	switch {
	case lsb < prevLsb && prevLsb-lsb >= maxLsb/2:
		msb = prevMsb + maxLsb
	case lsb > prevLsb && lsb-prevLsb > maxLsb/2:
		msb = prevMsb - maxLsb
	default:
		msb = prevMsb
	}

	top := msb + lsb
	bottom := top
	if !h.FieldPic {
		bottom += int64(h.DeltaPicOrderCntBottom)
	}
	if err := checkRange(top); err != nil {
		return 0, err
	}
	if err := checkRange(bottom); err != nil {
		return 0, err
	}

	if h.RefIdc != 0 {
		if h.HasMMCO5 {
			p.prevPicOrderCntMsb = 0
			if h.BottomField {
				p.prevPicOrderCntLsb = 0
			} else {
				p.prevPicOrderCntLsb = top
			}
		} else {
			p.prevPicOrderCntMsb = msb
			p.prevPicOrderCntLsb = lsb
		}
	}

	if h.FieldPic && h.BottomField {
		return bottom, nil
	}
	return minI64(top, bottom), nil
}

func (p *pocState) deriveType1(sps *h264dec.SPS, h *sliceHeader) (int64, error) {
	maxFrameNum := int64(1) << uint(sps.Log2MaxFrameNumMinus4+4)

	var frameNumOffset int64
	switch {
	case h.IDRPicFlag:
		frameNumOffset = 0
	case p.prevFrameNum > h.FrameNum:
		frameNumOffset = p.prevFrameNumOffset + maxFrameNum
	default:
		frameNumOffset = p.prevFrameNumOffset
	}

	absFrameNum := frameNumOffset + int64(h.FrameNum)
	if sps.NumRefFramesInPicOrderCntCycle == 0 {
		absFrameNum = 0
	} else if h.RefIdc == 0 && absFrameNum > 0 {
		absFrameNum--
	}

	var expected int64
	if absFrameNum > 0 && sps.NumRefFramesInPicOrderCntCycle > 0 {
		cycle := int64(sps.NumRefFramesInPicOrderCntCycle)
		var expectedDeltaPerCycle int64
		for _, off := range sps.OffsetForRefFrameList {
			expectedDeltaPerCycle += int64(off)
		}
		picOrderCntCycleCnt := (absFrameNum - 1) / cycle
		frameNumInCycle := (absFrameNum - 1) % cycle
		expected = picOrderCntCycleCnt * expectedDeltaPerCycle
		for i := int64(0); i <= frameNumInCycle && int(i) < len(sps.OffsetForRefFrameList); i++ {
			expected += int64(sps.OffsetForRefFrameList[i])
		}
	}
	if h.RefIdc == 0 {
		expected += sps.OffsetForNonRefPic
	}

	top := expected + int64(h.DeltaPicOrderCnt[0])
	bottom := top + sps.OffsetForTopToBottomField
	if !h.FieldPic {
		bottom += int64(h.DeltaPicOrderCnt[1])
	}
	if err := checkRange(top); err != nil {
		return 0, err
	}
	if err := checkRange(bottom); err != nil {
		return 0, err
	}

	p.prevFrameNumOffset = frameNumOffset
	p.prevFrameNum = h.FrameNum

	if h.FieldPic && h.BottomField {
		return bottom, nil
	}
	return minI64(top, bottom), nil
}

func (p *pocState) deriveType2(sps *h264dec.SPS, h *sliceHeader) (int64, error) {
	maxFrameNum := int64(1) << uint(sps.Log2MaxFrameNumMinus4+4)

	var frameNumOffset int64
	switch {
	case h.IDRPicFlag:
		frameNumOffset = 0
	case p.prevFrameNum > h.FrameNum:
		frameNumOffset = p.prevFrameNumOffset + maxFrameNum
	default:
		frameNumOffset = p.prevFrameNumOffset
	}

	var temp int64
	if h.IDRPicFlag {
		temp = 0
	} else if h.RefIdc == 0 {
		temp = 2*(frameNumOffset+int64(h.FrameNum)) - 1
	} else {
		temp = 2 * (frameNumOffset + int64(h.FrameNum))
	}
	if err := checkRange(temp); err != nil {
		return 0, err
	}

	p.prevFrameNumOffset = frameNumOffset
	p.prevFrameNum = h.FrameNum

	return temp, nil
}

func checkRange(v int64) error {
	if v > 1<<31-1 || v < -(1<<31) {
		return errPOCOverflow
	}
	return nil
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// sameAU reports whether slice headers a and b (observed on successive VCL
// NAL units, for the given SPS pic_order_cnt_type) belong to the same access
// unit, per an eleven-field slice-header comparison.
func sameAU(sps *h264dec.SPS, a, b *sliceHeader) bool {
	if a.FrameNum != b.FrameNum {
		return false
	}
	if a.PPSID != b.PPSID {
		return false
	}
	if a.FieldPic != b.FieldPic {
		return false
	}
	if a.BottomField != b.BottomField {
		return false
	}
	if a.IDRPicFlag != b.IDRPicFlag {
		return false
	}
	if (a.RefIdc == 0) != (b.RefIdc == 0) {
		return false
	}
	if a.IDRPicFlag && b.IDRPicFlag && a.IDRPicID != b.IDRPicID {
		return false
	}
	if sps.PicOrderCountType == 0 {
		if a.PicOrderCntLsb != b.PicOrderCntLsb || a.DeltaPicOrderCntBottom != b.DeltaPicOrderCntBottom {
			return false
		}
	}
	if sps.PicOrderCountType == 1 {
		if a.DeltaPicOrderCnt != b.DeltaPicOrderCnt {
			return false
		}
	}
	return true
}
