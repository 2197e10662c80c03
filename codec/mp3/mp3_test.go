/*
NAME
  mp3_test.go

DESCRIPTION
  mp3_test.go tests MP3 frame header parsing, frame-size computation, and
  Xing/VBRI side-info detection.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mp3

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type bw struct {
	acc   uint64
	nbits int
	out   []byte
}

func (w *bw) put(width int, v uint64) {
	w.acc = w.acc<<uint(width) | (v & (1<<uint(width) - 1))
	w.nbits += width
	for w.nbits >= 8 {
		w.nbits -= 8
		w.out = append(w.out, byte(w.acc>>uint(w.nbits)))
	}
}

func buildHeader(id, layerWire, protection, bitrateIdx, sampleRateIdx, padding, mode, modeExt, emphasis uint8) []byte {
	w := &bw{}
	w.put(12, Syncword)
	w.put(1, uint64(id))
	w.put(2, uint64(layerWire))
	w.put(1, uint64(protection))
	w.put(4, uint64(bitrateIdx))
	w.put(2, uint64(sampleRateIdx))
	w.put(1, uint64(padding))
	w.put(1, 0) // private.
	w.put(2, uint64(mode))
	w.put(2, uint64(modeExt))
	w.put(1, 0) // copyright.
	w.put(1, 0) // original/copy.
	w.put(2, uint64(emphasis))
	for w.nbits > 0 {
		w.put(1, 0)
	}
	return w.out
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		want    *Header
		wantErr bool
	}{
		{
			name: "Layer III 128kbps 44.1kHz stereo",
			buf:  buildHeader(1, 0x1, 1, 9, 0, 0, 0, 0, 0),
			want: &Header{ID: 1, Layer: 3, ProtectionBit: 1, BitrateIndex: 9, SampleRateIdx: 0, Mode: 0},
		},
		{
			name:    "reserved layer",
			buf:     buildHeader(1, 0x0, 1, 9, 0, 0, 0, 0, 0),
			wantErr: true,
		},
		{
			name:    "free bitrate index rejected",
			buf:     buildHeader(1, 0x1, 1, 0, 0, 0, 0, 0, 0),
			wantErr: true,
		},
		{
			name:    "bad bitrate index",
			buf:     buildHeader(1, 0x1, 1, 0xF, 0, 0, 0, 0, 0),
			wantErr: true,
		},
		{
			name:    "reserved sample rate",
			buf:     buildHeader(1, 0x1, 1, 9, 3, 0, 0, 0, 0),
			wantErr: true,
		},
		{
			name:    "reserved emphasis",
			buf:     buildHeader(1, 0x1, 1, 9, 0, 0, 0, 0, 2),
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseHeader(tc.buf)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseHeader() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeader() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseHeader() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrameSize(t *testing.T) {
	h := &Header{ID: 1, Layer: 3, BitrateIndex: 9, SampleRateIdx: 0}
	if got, want := h.FrameSize(), 417; got != want {
		t.Errorf("FrameSize() = %d, want %d", got, want)
	}
}

func TestSamplesPerFrame(t *testing.T) {
	tests := []struct {
		h    Header
		want uint32
	}{
		{Header{Layer: 1}, 384},
		{Header{Layer: 2}, 1152},
		{Header{Layer: 3, ID: 1}, 1152},
		{Header{Layer: 3, ID: 0}, 576},
	}
	for _, tc := range tests {
		if got := tc.h.SamplesPerFrame(); got != tc.want {
			t.Errorf("SamplesPerFrame() for %+v = %d, want %d", tc.h, got, tc.want)
		}
	}
}

func TestDetectVBRHeaderXing(t *testing.T) {
	h := &Header{ID: 1, Mode: 0} // stereo MPEG-1 -> offset 6+32=38.
	frame := make([]byte, 60)
	copy(frame[38:], []byte("Xing"))
	frame[38+4] = 0 // flags = 0x00000003 (frames + bytes present).
	frame[38+5] = 0
	frame[38+6] = 0
	frame[38+7] = 3
	frame[38+8] = 0
	frame[38+9] = 0
	frame[38+10] = 1
	frame[38+11] = 0x2C // frame count = 300.

	info, ok := DetectVBRHeader(h, frame)
	if !ok {
		t.Fatalf("DetectVBRHeader() ok = false, want true")
	}
	if info.Kind != "Xing" {
		t.Errorf("Kind = %q, want Xing", info.Kind)
	}
	if info.FrameCount != 300 {
		t.Errorf("FrameCount = %d, want 300", info.FrameCount)
	}
}
