package vc1

import "testing"

func TestParseSequenceHeaderBasic(t *testing.T) {
	b := &bitBuilder{}
	b.u(2, 3)   // Profile (Advanced = 3)
	b.u(3, 0)   // Level
	b.u(2, 1)   // ColorDiffFormat
	b.u(3, 0)   // FRMRTQ_POSTPROC
	b.u(5, 0)   // BITRTQ_POSTPROC
	b.flag(false) // POSTPROCFLAG
	b.u(12, 1279) // DISP_HORIZ_SIZE - 1 (1280)
	b.u(12, 719)  // DISP_VERT_SIZE - 1 (720)
	b.flag(false) // PULLDOWN
	b.flag(false) // INTERLACE
	b.flag(false) // TFCNTRFLAG
	b.flag(false) // FINTERPFLAG
	b.u(1, 0)     // reserved
	b.flag(false) // PSF
	b.flag(false) // DISPLAY_EXT
	b.flag(false) // HRD_PARAM_FLAG

	s, err := parseSequenceHeader(b.bytes())
	if err != nil {
		t.Fatalf("parseSequenceHeader: %v", err)
	}
	if s.Profile != 3 {
		t.Errorf("Profile = %d, want 3", s.Profile)
	}
	if s.ColorDiffFormat != 1 {
		t.Errorf("ColorDiffFormat = %d, want 1", s.ColorDiffFormat)
	}
	if s.DispHorizSize != 1280 {
		t.Errorf("DispHorizSize = %d, want 1280", s.DispHorizSize)
	}
	if s.DispVertSize != 720 {
		t.Errorf("DispVertSize = %d, want 720", s.DispVertSize)
	}
	if s.FrameRateFlag {
		t.Error("FrameRateFlag = true, want false (no DISPLAY_EXT)")
	}
}

func TestParseSequenceHeaderDisplayExt(t *testing.T) {
	b := &bitBuilder{}
	b.u(2, 3)
	b.u(3, 1)
	b.u(2, 0)
	b.u(3, 0)
	b.u(5, 0)
	b.flag(false)
	b.u(12, 639)
	b.u(12, 479)
	b.flag(false)
	b.flag(false)
	b.flag(false)
	b.flag(false)
	b.u(1, 0)
	b.flag(false)

	b.flag(true) // DISPLAY_EXT
	b.u(14, 639) // extended disp horiz - 1
	b.u(14, 479) // extended disp vert - 1
	b.flag(true) // ASPECT_RATIO_FLAG
	b.u(4, 2)    // ratio = 2 (not extended)
	b.flag(true) // FRAMERATE_FLAG
	b.flag(false) // FRAMERATEIND = 0, use tables
	b.u(8, 3)     // frameRateNumTable index -> 30000
	b.u(4, 2)     // frameRateDenTable index -> 1001
	b.flag(true)  // COLOR_FORMAT_FLAG
	b.u(8, 1)     // ColorPrim
	b.u(8, 1)     // TransferChar
	b.u(8, 6)     // MatrixCoef

	b.flag(false) // HRD_PARAM_FLAG

	s, err := parseSequenceHeader(b.bytes())
	if err != nil {
		t.Fatalf("parseSequenceHeader: %v", err)
	}
	if s.DispHorizSize != 640 {
		t.Errorf("DispHorizSize = %d, want 640", s.DispHorizSize)
	}
	if s.DispVertSize != 480 {
		t.Errorf("DispVertSize = %d, want 480", s.DispVertSize)
	}
	if s.AspectWidth != 2 {
		t.Errorf("AspectWidth = %d, want 2", s.AspectWidth)
	}
	if !s.FrameRateFlag {
		t.Fatal("FrameRateFlag = false, want true")
	}
	if s.FrameRateNumerator != 30000 {
		t.Errorf("FrameRateNumerator = %d, want 30000", s.FrameRateNumerator)
	}
	if s.FrameRateDenominator != 1001 {
		t.Errorf("FrameRateDenominator = %d, want 1001", s.FrameRateDenominator)
	}
	if s.ColorPrim != 1 || s.TransferChar != 1 || s.MatrixCoef != 6 {
		t.Errorf("color description = (%d,%d,%d), want (1,1,6)", s.ColorPrim, s.TransferChar, s.MatrixCoef)
	}
}

func TestParseEntryPoint(t *testing.T) {
	b := &bitBuilder{}
	b.flag(true)  // BrokenLink
	b.flag(false) // ClosedEntryPoint

	ep, err := parseEntryPoint(b.bytes())
	if err != nil {
		t.Fatalf("parseEntryPoint: %v", err)
	}
	if !ep.BrokenLink {
		t.Error("BrokenLink = false, want true")
	}
	if ep.ClosedEntryPoint {
		t.Error("ClosedEntryPoint = true, want false")
	}
}
