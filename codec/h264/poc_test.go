package h264

import (
	"testing"

	"github.com/ausocean/esimport/codec/h264/h264dec"
)

func type2SPS() *h264dec.SPS {
	return &h264dec.SPS{
		PicOrderCountType:     2,
		Log2MaxFrameNumMinus4: 4, // MaxFrameNum = 256.
	}
}

// TestDeriveType2IDRTwoP reproduces the "H.264 IDR + two P" worked example's
// picture order counts: IDR temp=0, P1 temp=2, P2 temp=4.
func TestDeriveType2IDRTwoP(t *testing.T) {
	sps := type2SPS()
	var p pocState

	idr := &sliceHeader{IDRPicFlag: true, FrameNum: 0, RefIdc: 1}
	poc, err := p.derive(sps, idr)
	if err != nil || poc != 0 {
		t.Fatalf("IDR poc = %d, err = %v, want 0, nil", poc, err)
	}

	p1 := &sliceHeader{FrameNum: 1, RefIdc: 1}
	poc, err = p.derive(sps, p1)
	if err != nil || poc != 2 {
		t.Fatalf("P1 poc = %d, err = %v, want 2, nil", poc, err)
	}

	p2 := &sliceHeader{FrameNum: 2, RefIdc: 1}
	poc, err = p.derive(sps, p2)
	if err != nil || poc != 4 {
		t.Fatalf("P2 poc = %d, err = %v, want 4, nil", poc, err)
	}
}

// TestDeriveType2Disposable verifies the odd-temp formula for a disposable
// (non-reference, refIdc == 0) picture.
func TestDeriveType2Disposable(t *testing.T) {
	sps := type2SPS()
	var p pocState
	p.derive(sps, &sliceHeader{IDRPicFlag: true, FrameNum: 0, RefIdc: 1})

	b := &sliceHeader{FrameNum: 1, RefIdc: 0}
	poc, err := p.derive(sps, b)
	if err != nil {
		t.Fatal(err)
	}
	if poc != 1 { // 2*(0+1) - 1.
		t.Fatalf("disposable poc = %d, want 1", poc)
	}
}

func TestDeriveType2FrameNumWraparound(t *testing.T) {
	sps := type2SPS() // MaxFrameNum = 256.
	var p pocState
	p.derive(sps, &sliceHeader{IDRPicFlag: true, FrameNum: 0, RefIdc: 1})
	p.prevFrameNum = 255

	wrapped := &sliceHeader{FrameNum: 0, RefIdc: 1}
	poc, err := p.derive(sps, wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if poc != 2*256 {
		t.Fatalf("wrapped poc = %d, want %d", poc, 2*256)
	}
}

func type0SPS() *h264dec.SPS {
	return &h264dec.SPS{
		PicOrderCountType:         0,
		Log2MaxPicOrderCntLSBMin4: 4, // MaxPicOrderCntLsb = 256.
	}
}

func TestDeriveType0Basic(t *testing.T) {
	sps := type0SPS()
	var p pocState

	idr := &sliceHeader{IDRPicFlag: true, PicOrderCntLsb: 0, RefIdc: 1}
	poc, err := p.derive(sps, idr)
	if err != nil || poc != 0 {
		t.Fatalf("IDR poc = %d, err = %v, want 0, nil", poc, err)
	}

	next := &sliceHeader{PicOrderCntLsb: 4, RefIdc: 1}
	poc, err = p.derive(sps, next)
	if err != nil || poc != 4 {
		t.Fatalf("poc = %d, err = %v, want 4, nil", poc, err)
	}
}

func TestDeriveType0MSBWraparound(t *testing.T) {
	sps := type0SPS() // maxLsb = 256.
	var p pocState
	p.derive(sps, &sliceHeader{IDRPicFlag: true, PicOrderCntLsb: 0, RefIdc: 1})
	p.prevPicOrderCntLsb = 250
	p.prevPicOrderCntMsb = 0

	wrapped := &sliceHeader{PicOrderCntLsb: 2, RefIdc: 1}
	poc, err := p.derive(sps, wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if poc != 256+2 {
		t.Fatalf("poc = %d, want %d", poc, 256+2)
	}
}

func TestDeriveType0MMCO5Reset(t *testing.T) {
	sps := type0SPS()
	var p pocState
	p.derive(sps, &sliceHeader{IDRPicFlag: true, PicOrderCntLsb: 0, RefIdc: 1})
	p.derive(sps, &sliceHeader{PicOrderCntLsb: 8, RefIdc: 1})

	mmco5 := &sliceHeader{PicOrderCntLsb: 16, RefIdc: 1, HasMMCO5: true}
	if _, err := p.derive(sps, mmco5); err != nil {
		t.Fatal(err)
	}
	if p.prevPicOrderCntMsb != 0 {
		t.Fatalf("prevPicOrderCntMsb = %d, want 0 after mmco5", p.prevPicOrderCntMsb)
	}
}

func TestSameAU(t *testing.T) {
	sps := type2SPS()
	a := &sliceHeader{FrameNum: 1, PPSID: 0, RefIdc: 1}
	b := &sliceHeader{FrameNum: 1, PPSID: 0, RefIdc: 1}
	if !sameAU(sps, a, b) {
		t.Fatal("identical slice headers should be in the same AU")
	}

	c := &sliceHeader{FrameNum: 2, PPSID: 0, RefIdc: 1}
	if sameAU(sps, a, c) {
		t.Fatal("differing frame_num should start a new AU")
	}

	d := &sliceHeader{FrameNum: 1, PPSID: 0, RefIdc: 0}
	if sameAU(sps, a, d) {
		t.Fatal("differing nal_ref_idc==0-ness should start a new AU")
	}
}
