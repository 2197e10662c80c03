/*
NAME
  sliceheader.go

DESCRIPTION
  sliceheader.go parses the fixed prefix of slice_segment_header() that POC
  derivation and access-unit boundary detection need: first_slice_segment_
  in_pic_flag, the referenced PPS/SPS ids, and slice_pic_order_cnt_lsb.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import "github.com/pkg/errors"

var errUnknownPPS = errors.New("h265: slice references unknown PPS")

// sliceHeader holds the slice_segment_header() fields this module reads.
type sliceHeader struct {
	firstSliceSegmentInPic bool
	noOutputOfPriorPics    bool
	ppsID                  int
	picOrderCntLsb         int
}

// parseSliceHeader parses just enough of slice_segment_header() to derive
// POC and access-unit boundaries, given the NAL's type/IDR-ness and the
// active parameter sets it references.
func parseSliceHeader(nalType uint8, rbsp []byte, ps *paramSets) (*sliceHeader, error) {
	g := newEgolomb(rbsp)
	h := &sliceHeader{}

	h.firstSliceSegmentInPic = g.flag()
	if isIRAP(nalType) {
		h.noOutputOfPriorPics = g.flag()
	}
	h.ppsID = int(g.ue())
	if g.err != nil {
		return nil, g.err
	}

	pps, ok := ps.pps[h.ppsID]
	if !ok {
		return nil, errUnknownPPS
	}
	sps, ok := ps.sps[pps.SPSID]
	if !ok {
		return nil, errors.New("h265: PPS references unknown SPS")
	}

	if !h.firstSliceSegmentInPic {
		// dependent_slice_segment_flag and slice_segment_address follow for
		// non-first slice segments; neither affects POC or AU boundaries, and
		// this module treats the access unit's first slice segment as
		// authoritative for both, so parsing stops here for later segments.
		return h, nil
	}

	for i := 0; i < pps.NumExtraSliceHeaderBits; i++ {
		_ = g.flag() // slice_reserved_flag[i]
	}
	_ = g.ue() // slice_type

	if pps.OutputFlagPresent {
		_ = g.flag() // pic_output_flag
	}
	if sps.ChromaFormatIDC == 0 {
		// separate_colour_plane_flag's colour_plane_id is not tracked: no
		// component of this module distinguishes planes.
	}

	if !isIDR(nalType) {
		h.picOrderCntLsb = int(g.u(sps.Log2MaxPOCLsbM4 + 4))
	}

	return h, g.err
}
