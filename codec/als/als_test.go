/*
NAME
  als_test.go

DESCRIPTION
  als_test.go tests ALSSpecificConfig fixed-prefix parsing, RA unit size
  table decoding, and the derived AU-duration helpers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package als

import (
	"testing"

	"github.com/ausocean/esimport/bitio"
)

func buildFixedPrefix(sampFreq, samples uint32, channels uint16, resolution uint8, frameLength uint16, randomAccess uint8, raFlag uint8, chanConfig, chanSort, crc, aux bool) []byte {
	bs := bitio.NewMemory()
	bs.PutBytes([]byte(Magic))
	bs.PutBE32(sampFreq)
	bs.PutBE32(samples)
	bs.PutBE16(channels)
	bs.PutByte(resolution << 5) // file_type in low bits, unused here.
	bs.PutByte(0)               // floating-point flag byte.
	bs.PutBE16(frameLength)
	bs.PutByte(randomAccess)

	var b byte
	b |= raFlag << 6
	if chanConfig {
		b |= 1 << 5
	}
	if chanSort {
		b |= 1 << 4
	}
	if crc {
		b |= 1 << 3
	}
	if aux {
		b |= 1 << 2
	}
	bs.PutByte(b)
	bs.PutBytes(make([]byte, 6)) // rest of the 26-byte fixed prefix, not decoded by Parse.
	return bs.Bytes()
}

func TestParse(t *testing.T) {
	buf := buildFixedPrefix(48000, 480000, 2, 15, 2047, 16, 2, true, false, true, false)
	cfg, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.SampFreq != 48000 {
		t.Errorf("SampFreq = %d, want 48000", cfg.SampFreq)
	}
	if cfg.Samples != 480000 {
		t.Errorf("Samples = %d, want 480000", cfg.Samples)
	}
	if cfg.Channels != 2 {
		t.Errorf("Channels = %d, want 2", cfg.Channels)
	}
	if cfg.FrameLength != 2047 {
		t.Errorf("FrameLength = %d, want 2047", cfg.FrameLength)
	}
	if cfg.RandomAccess != 16 {
		t.Errorf("RandomAccess = %d, want 16", cfg.RandomAccess)
	}
	if cfg.RAFlag != 2 {
		t.Errorf("RAFlag = %d, want 2", cfg.RAFlag)
	}
	if !cfg.ChanConfig || cfg.ChanSort || !cfg.CRCEnabled || cfg.AuxDataEnabled {
		t.Errorf("flags = {ChanConfig:%v ChanSort:%v CRCEnabled:%v AuxDataEnabled:%v}, want {true false true false}",
			cfg.ChanConfig, cfg.ChanSort, cfg.CRCEnabled, cfg.AuxDataEnabled)
	}
}

func TestParseBadMagic(t *testing.T) {
	buf := append([]byte("XYZ\x00"), make([]byte, 22)...)
	if _, err := Parse(buf); err == nil {
		t.Fatal("Parse() with bad magic: want error, got nil")
	}
}

func TestParseTooShort(t *testing.T) {
	buf := []byte(Magic)
	if _, err := Parse(buf); err == nil {
		t.Fatal("Parse() with short buffer: want error, got nil")
	}
}

func TestParseRAUnitSizes(t *testing.T) {
	bs := bitio.NewMemory()
	bs.PutBE32(1000)
	bs.PutBE32(2000)
	bs.PutBE32(1500)
	buf := bs.Bytes()

	sizes, n, err := ParseRAUnitSizes(buf, 3)
	if err != nil {
		t.Fatalf("ParseRAUnitSizes() error = %v", err)
	}
	if n != 12 {
		t.Errorf("ParseRAUnitSizes() consumed = %d, want 12", n)
	}
	want := []uint32{1000, 2000, 1500}
	for i, w := range want {
		if sizes[i] != w {
			t.Errorf("sizes[%d] = %d, want %d", i, sizes[i], w)
		}
	}
}

func TestParseRAUnitSizesTooShort(t *testing.T) {
	if _, _, err := ParseRAUnitSizes([]byte{0, 0, 0, 1}, 2); err == nil {
		t.Fatal("ParseRAUnitSizes() with short buffer: want error, got nil")
	}
}

func TestFinalizeBlobClearsRAFlagBits(t *testing.T) {
	buf := buildFixedPrefix(48000, 480000, 2, 15, 2047, 16, 2, false, false, false, false)
	cfg, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cfg.FinalizeBlob()
	const raFlagByteOffset = 4 + 15
	if cfg.Blob[raFlagByteOffset]&0xC0 != 0 {
		t.Errorf("FinalizeBlob() left ra_flag bits set: byte = 0x%02X", cfg.Blob[raFlagByteOffset])
	}
}

func TestSamplesInFrame(t *testing.T) {
	cfg := &SpecificConfig{RandomAccess: 4, FrameLength: 2047}
	if got, want := cfg.SamplesInFrame(), uint32(4*2048); got != want {
		t.Errorf("SamplesInFrame() = %d, want %d", got, want)
	}

	single := &SpecificConfig{RandomAccess: 0}
	if got := single.SamplesInFrame(); got != 0 {
		t.Errorf("SamplesInFrame() with random_access=0 = %d, want 0", got)
	}
}

func TestLastDelta(t *testing.T) {
	cfg := &SpecificConfig{Samples: 480000}

	if got, want := cfg.LastDelta(0, 0), uint32(480000); got != want {
		t.Errorf("LastDelta(0, 0) = %d, want %d", got, want)
	}

	spf := uint32(8192)
	if got, want := cfg.LastDelta(59, spf), cfg.Samples-58*spf; got != want {
		t.Errorf("LastDelta(59, %d) = %d, want %d", spf, got, want)
	}
}
