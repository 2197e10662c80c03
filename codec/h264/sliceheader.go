/*
NAME
  sliceheader.go

DESCRIPTION
  sliceheader.go extracts the minimum slice-header fields needed
  to identify access-unit boundaries and picture properties,
  without decoding macroblock or residual data.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/ausocean/esimport/codec/h264/h264dec"
	"github.com/ausocean/esimport/codec/h264/h264dec/bits"
)

// sliceHeader holds the slice_header() fields needed for AU delimitation
// and POC derivation.
type sliceHeader struct {
	FirstMbInSlice         int
	SliceType              int // already reduced mod 5.
	PPSID                  int
	FrameNum               int
	FieldPic               bool
	BottomField            bool
	IDRPicFlag             bool
	IDRPicID               int
	PicOrderCntLsb         int
	DeltaPicOrderCntBottom int
	DeltaPicOrderCnt       [2]int
	RedundantPicCnt        int
	HasMMCO5               bool

	RefIdc  uint8
	NalType uint8
}

// egolomb is a minimal Exp-Golomb bit reader layered over an h264dec bit
// reader, mirroring the fieldReader pattern h264dec/parse.go uses internally
// (unexported there, so reimplemented here for the header-only parser).
type egolomb struct {
	br  *bits.BitReader
	err error
}

func (e *egolomb) u(n int) uint64 {
	if e.err != nil {
		return 0
	}
	v, err := e.br.ReadBits(n)
	if err != nil {
		e.err = err
	}
	return v
}

func (e *egolomb) flag() bool { return e.u(1) == 1 }

// ue reads an unsigned Exp-Golomb-coded value per section 9.1.
func (e *egolomb) ue() uint64 {
	if e.err != nil {
		return 0
	}
	leadingZeros := 0
	for {
		b := e.u(1)
		if e.err != nil {
			return 0
		}
		if b == 1 {
			break
		}
		leadingZeros++
		if leadingZeros > 32 {
			e.err = errors.New("h264: exp-golomb code too long")
			return 0
		}
	}
	if leadingZeros == 0 {
		return 0
	}
	suffix := e.u(leadingZeros)
	return (1 << uint(leadingZeros)) - 1 + suffix
}

// se reads a signed Exp-Golomb-coded value per section 9.1.1.
func (e *egolomb) se() int {
	v := e.ue()
	if v%2 == 0 {
		return -int(v / 2)
	}
	return int(v+1) / 2
}

// parseSliceHeader decodes a slice_header() from rbsp, given the SPS/PPS it
// references and the NAL header's refIdc/nalType.
func parseSliceHeader(rbsp []byte, sps *h264dec.SPS, pps *h264dec.PPS, refIdc, nalType uint8) (*sliceHeader, error) {
	br := bits.NewBitReader(bytes.NewReader(rbsp))
	e := &egolomb{br: br}
	h := &sliceHeader{RefIdc: refIdc, NalType: nalType}
	h.IDRPicFlag = nalType == nalTypeIDRSlice

	h.FirstMbInSlice = int(e.ue())
	h.SliceType = int(e.ue()) % 5
	h.PPSID = int(e.ue())
	if sps.SeparateColorPlaneFlag {
		e.u(2) // colour_plane_id.
	}
	h.FrameNum = int(e.u(int(sps.Log2MaxFrameNumMinus4 + 4)))
	if !sps.FrameMBSOnlyFlag {
		h.FieldPic = e.flag()
		if h.FieldPic {
			h.BottomField = e.flag()
		}
	}
	if h.IDRPicFlag {
		h.IDRPicID = int(e.ue())
	}
	if sps.PicOrderCountType == 0 {
		h.PicOrderCntLsb = int(e.u(int(sps.Log2MaxPicOrderCntLSBMin4 + 4)))
		if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
			h.DeltaPicOrderCntBottom = e.se()
		}
	} else if sps.PicOrderCountType == 1 && !sps.DeltaPicOrderAlwaysZeroFlag {
		h.DeltaPicOrderCnt[0] = e.se()
		if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
			h.DeltaPicOrderCnt[1] = e.se()
		}
	}
	if pps.RedundantPicCntPresent {
		h.RedundantPicCnt = int(e.ue())
	}
	// Reference picture marking (dec_ref_pic_marking) is only examined for
	// the mmco5 flag; the rest of the syntax structure past this point
	// (ref_pic_list_modification, pred_weight_table, slice QP, deblocking)
	// is not needed for AU delimitation or POC and is not parsed.
	if refIdc != 0 {
		if h.IDRPicFlag {
			e.flag() // no_output_of_prior_pics_flag.
			e.flag() // long_term_reference_flag.
		} else {
			if e.flag() { // adaptive_ref_pic_marking_mode_flag.
				for {
					op := e.ue()
					if op == 0 {
						break
					}
					switch op {
					case 1:
						e.ue()
					case 2:
						e.ue()
					case 3:
						e.ue()
						e.ue()
					case 4:
						e.ue()
					case 5:
						h.HasMMCO5 = true
					case 6:
						e.ue()
					}
					if e.err != nil {
						break
					}
				}
			}
		}
	}
	if e.err != nil {
		return nil, errors.Wrap(e.err, "h264: parsing slice header")
	}
	return h, nil
}
