package h265

import "testing"

func TestBuildHvcC(t *testing.T) {
	sets := newParamSets()
	sets.addVPS(&VPS{ID: 0, raw: []byte{0x01, 0x02}})
	sets.addSPS(&SPS{
		ID:               0,
		ChromaFormatIDC:  1,
		BitDepthLumaM8:   0,
		BitDepthChromaM8: 0,
		MaxSubLayersM1:   0,
		PTL: profileTierLevel{
			profileSpace: 0,
			tierFlag:     false,
			profileIDC:   1,
			levelIDC:     120,
		},
		raw: []byte{0x10, 0x20, 0x30},
	})
	sets.addPPS(&PPS{ID: 0, SPSID: 0, raw: []byte{0xaa}})

	box := BuildHvcC(sets, 4)
	if len(box) < 8 {
		t.Fatalf("box too short: %d bytes", len(box))
	}
	if string(box[4:8]) != "hvcC" {
		t.Fatalf("box type = %q, want hvcC", box[4:8])
	}
	wantSize := uint32(len(box))
	gotSize := uint32(box[0])<<24 | uint32(box[1])<<16 | uint32(box[2])<<8 | uint32(box[3])
	if gotSize != wantSize {
		t.Fatalf("box size field = %d, want %d", gotSize, wantSize)
	}
	if box[8] != 1 {
		t.Fatalf("configurationVersion = %d, want 1", box[8])
	}
}

func TestBuildHvcCEmptyParamSets(t *testing.T) {
	sets := newParamSets()
	box := BuildHvcC(sets, 4)
	if len(box) < 8 || string(box[4:8]) != "hvcC" {
		t.Fatal("expected a well-formed hvcC box even with no parameter sets")
	}
}
