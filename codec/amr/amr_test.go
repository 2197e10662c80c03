/*
NAME
  amr_test.go

DESCRIPTION
  amr_test.go tests AMR magic detection, TOC parsing, and damr construction.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package amr

import "testing"

func TestDetectMagic(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		want    Variant
		wantLen int
		wantOK  bool
	}{
		{"NB", []byte(MagicNB + "rest"), NB, len(MagicNB), true},
		{"WB", []byte(MagicWB + "rest"), WB, len(MagicWB), true},
		{"unrecognized", []byte("garbage"), 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, n, ok := DetectMagic(tc.buf)
			if ok != tc.wantOK {
				t.Fatalf("DetectMagic() ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if v != tc.want || n != tc.wantLen {
				t.Errorf("DetectMagic() = (%v, %d), want (%v, %d)", v, n, tc.want, tc.wantLen)
			}
		})
	}
}

func TestParseTOCAndFrameLength(t *testing.T) {
	// TOC byte: reserved(1)=0, FT=0111 (7), Q=1, padding=00 -> 0_0111_1_00 = 0x3C.
	toc := ParseTOC(0x3C)
	if toc.FT != 7 || !toc.Q {
		t.Fatalf("ParseTOC(0x3C) = %+v, want {FT:7 Q:true}", toc)
	}
	if got, want := FrameLength(NB, toc.FT), 32; got != want {
		t.Errorf("FrameLength(NB, 7) = %d, want %d", got, want)
	}
	if got, want := FrameLength(WB, toc.FT), 59; got != want {
		t.Errorf("FrameLength(WB, 7) = %d, want %d", got, want)
	}
}

func TestBuildDamr(t *testing.T) {
	got := BuildDamr()
	if len(got) != 17 {
		t.Fatalf("BuildDamr() length = %d, want 17", len(got))
	}
	if string(got[4:8]) != "damr" {
		t.Errorf("BuildDamr() type = %q, want damr", got[4:8])
	}
	modeSet := uint16(got[13])<<8 | uint16(got[14])
	if modeSet != 0x83FF {
		t.Errorf("BuildDamr() mode_set = 0x%X, want 0x83FF", modeSet)
	}
}
