package vc1

import "testing"

func TestBuildDvc1(t *testing.T) {
	seq := &SequenceHeader{
		Profile:       3,
		Level:         1,
		DispHorizSize: 1280,
		DispVertSize:  720,
		AspectWidth:   2,
		AspectHeight:  0,
		raw:           []byte{0xAA, 0xBB},
	}
	ep := &EntryPoint{
		ClosedEntryPoint: true,
		BrokenLink:       false,
		raw:              []byte{0xCC},
	}

	box := BuildDvc1(seq, ep, true, true)

	if len(box) < 8 {
		t.Fatalf("BuildDvc1: box too short: %d bytes", len(box))
	}
	size := uint32(box[0])<<24 | uint32(box[1])<<16 | uint32(box[2])<<8 | uint32(box[3])
	if int(size) != len(box) {
		t.Errorf("box size field = %d, want %d", size, len(box))
	}
	if string(box[4:8]) != "dvc1" {
		t.Errorf("box type = %q, want \"dvc1\"", box[4:8])
	}

	payload := box[8:]
	if payload[0] != 1 {
		t.Errorf("configurationVersion = %d, want 1", payload[0])
	}
	if payload[1] != seq.Profile {
		t.Errorf("profile = %d, want %d", payload[1], seq.Profile)
	}
	if payload[2] != seq.Level {
		t.Errorf("level = %d, want %d", payload[2], seq.Level)
	}
}

func TestBuildDvc1NilHeaders(t *testing.T) {
	box := BuildDvc1(nil, nil, false, false)
	if len(box) < 8 {
		t.Fatalf("BuildDvc1: box too short with nil headers: %d bytes", len(box))
	}
	if string(box[4:8]) != "dvc1" {
		t.Errorf("box type = %q, want \"dvc1\"", box[4:8])
	}
}
