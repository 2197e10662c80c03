package h265

import "testing"

func buildSPSForSliceTest() *SPS {
	return &SPS{ID: 0, ChromaFormatIDC: 1, Log2MaxPOCLsbM4: 4}
}

func buildPPSForSliceTest() *PPS {
	return &PPS{ID: 0, SPSID: 0, OutputFlagPresent: false, NumExtraSliceHeaderBits: 0}
}

func testParamSetsForSlice() *paramSets {
	ps := newParamSets()
	ps.sps[0] = buildSPSForSliceTest()
	ps.pps[0] = buildPPSForSliceTest()
	return ps
}

func TestParseSliceHeaderIDR(t *testing.T) {
	g := newEgolombBuilder()
	g.flag(true) // first_slice_segment_in_pic_flag
	g.flag(false) // no_output_of_prior_pics_flag (IRAP)
	g.ue(0)       // slice_pic_parameter_set_id
	g.ue(0)       // slice_type
	raw := g.bytes()

	ps := testParamSetsForSlice()
	h, err := parseSliceHeader(typeIDRWRADL, raw, ps)
	if err != nil {
		t.Fatalf("parseSliceHeader: %v", err)
	}
	if !h.firstSliceSegmentInPic {
		t.Fatal("expected first_slice_segment_in_pic_flag set")
	}
	if h.picOrderCntLsb != 0 {
		t.Fatalf("IDR should not carry slice_pic_order_cnt_lsb, got %d", h.picOrderCntLsb)
	}
}

func TestParseSliceHeaderTrailing(t *testing.T) {
	g := newEgolombBuilder()
	g.flag(true) // first_slice_segment_in_pic_flag
	g.ue(0)      // slice_pic_parameter_set_id
	g.ue(0)      // slice_type
	g.u(8, 7)    // slice_pic_order_cnt_lsb (8 bits, since Log2MaxPOCLsbM4=4)
	raw := g.bytes()

	ps := testParamSetsForSlice()
	h, err := parseSliceHeader(typeTrailR, raw, ps)
	if err != nil {
		t.Fatalf("parseSliceHeader: %v", err)
	}
	if h.picOrderCntLsb != 7 {
		t.Fatalf("picOrderCntLsb = %d, want 7", h.picOrderCntLsb)
	}
}

func TestParseSliceHeaderNonFirstSegmentStopsEarly(t *testing.T) {
	g := newEgolombBuilder()
	g.flag(false) // first_slice_segment_in_pic_flag clear
	g.ue(0)       // slice_pic_parameter_set_id
	raw := g.bytes()

	ps := testParamSetsForSlice()
	h, err := parseSliceHeader(typeTrailR, raw, ps)
	if err != nil {
		t.Fatalf("parseSliceHeader: %v", err)
	}
	if h.firstSliceSegmentInPic {
		t.Fatal("expected first_slice_segment_in_pic_flag clear")
	}
}
