/*
NAME
  dts_test.go

DESCRIPTION
  dts_test.go tests core/extension substream header parsing, the
  StreamConstruction/coding-name derivation, channel-count popcount logic,
  and ddts box construction.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dts

import (
	"testing"

	"github.com/ausocean/esimport/bitio"
)

// buildCoreFrame packs a minimal core substream syncframe: stereo, no LFE,
// 16-bit PCM resolution, no extended coding, padded with zero bytes to
// frameSizeBytes.
func buildCoreFrame(sampFreqIdx uint8, amode uint8, frameSizeBytes int) []byte {
	bs := bitio.NewMemory()
	b := bitio.NewBits(bs)
	b.Put(32, uint64(SyncwordCore))
	b.Put(1, 1)  // FTYPE.
	b.Put(5, 31) // SHORT.
	b.Put(1, 0)  // CPF.
	b.Put(7, 15) // NBLKS - 1 (16 blocks).
	b.Put(14, uint64(frameSizeBytes-1))
	b.Put(6, uint64(amode))
	b.Put(4, uint64(sampFreqIdx))
	b.Put(10, 0) // RATE, MIX, DYNF, TIMEF, AUXF, HDCD.
	b.Put(3, 0)  // EXT_AUDIO_ID.
	b.Put(1, 0)  // EXT_AUDIO (extended_coding_flag).
	b.Put(1, 0)  // ASPF.
	b.Put(2, 0)  // LFF.
	b.Put(8, 0)  // HFLAG, FILTS, VERNUM, CHIST (CPF == 0, no HCRC).
	b.Put(3, 0)  // PCMR (16-bit).
	b.Put(6, 0)  // SUMF, SUMS, DIALNORM/UNSPEC.
	b.PutAlign()

	out := bs.Bytes()
	if len(out) < frameSizeBytes {
		out = append(out, make([]byte, frameSizeBytes-len(out))...)
	}
	return out
}

// buildXLLExtensionFrame packs an extension substream with an embedded
// XLL asset reporting the given sampling-frequency index (xllSampleRateTable)
// and bit width.
func buildXLLExtensionFrame(extIndex uint8, xllFreqIdx uint8, wide bool) []byte {
	const headerSize = 16  // bytes, from the extension sync.
	const xllHeaderSize = 14 // bytes, from the XLL sync, covering the common header.
	const frameSize = 64   // bytes, overall extension substream size.

	bs := bitio.NewMemory()
	b := bitio.NewBits(bs)
	b.Put(32, uint64(SyncwordExtension))
	b.Put(8, 0)             // UserDefinedBits.
	b.Put(2, uint64(extIndex))
	b.Put(1, 0)             // bHeaderSizeType.
	b.Put(8, headerSize-1)  // nuExtSSHeaderSize - 1.
	b.Put(16, frameSize-1)  // nuExtSSFsize - 1.
	b.Put(1, 0)             // bStaticFieldsPresent.
	b.PutAlign()

	ext := bs.Bytes()
	if len(ext) < headerSize {
		ext = append(ext, make([]byte, headerSize-len(ext))...)
	}

	xbs := bitio.NewMemory()
	xb := bitio.NewBits(xbs)
	xb.Put(32, uint64(syncwordXLL))
	xb.Put(4, 0)               // nVersion.
	xb.Put(8, xllHeaderSize-1) // nHeaderSize - 1.
	xb.Put(5, 15)              // nBits4FrameFsize - 1 (16 bits).
	xb.Put(16, 0)              // nLLFrameSize.
	xb.Put(4, 0)               // nNumChSetsInFrame - 1.
	xb.Put(4, 0)               // nSegmentsInFrame exponent.
	xb.Put(4, 0)               // nSmplInSeg exponent.
	xb.Put(5, 0)               // nBits4SSize.
	xb.Put(3, 0)               // nBandDataCRCEn, bScalableLSBs.
	xb.Put(5, 0)               // nBits4ChMask - 1.
	xb.PutAlign()
	xll := xbs.Bytes()
	if len(xll) < xllHeaderSize {
		xll = append(xll, make([]byte, xllHeaderSize-len(xll))...)
	}

	cbs := bitio.NewMemory()
	cb := bitio.NewBits(cbs)
	cb.Put(10, 15) // nChSetHeaderSize - 1.
	cb.Put(4, 1)   // nChSetLLChannel - 1 (2 channels).
	cb.Put(2+5, 0) // nResidualChEncode, nBitResolution.
	bitWidthCode := uint64(10)
	if wide {
		bitWidthCode = 23
	}
	cb.Put(5, bitWidthCode) // nBitWidth.
	cb.Put(4, uint64(xllFreqIdx))
	cb.PutAlign()
	chset := cbs.Bytes()
	xll = append(xll, chset...)

	full := append(ext, xll...)
	if len(full) < frameSize {
		full = append(full, make([]byte, frameSize-len(full))...)
	}
	return full
}

func TestParseCoreSubstream(t *testing.T) {
	buf := buildCoreFrame(13, 2, 192) // 48kHz, stereo.
	size, info, extra, err := parseCoreSubstream(buf)
	if err != nil {
		t.Fatalf("parseCoreSubstream() error = %v", err)
	}
	if size != 192 {
		t.Errorf("size = %d, want 192", size)
	}
	if info.SamplingFrequency != 48000 {
		t.Errorf("SamplingFrequency = %d, want 48000", info.SamplingFrequency)
	}
	if info.ChannelLayout != LayoutLR {
		t.Errorf("ChannelLayout = 0x%04X, want 0x%04X", info.ChannelLayout, LayoutLR)
	}
	if info.PCMResolution != 16 {
		t.Errorf("PCMResolution = %d, want 16", info.PCMResolution)
	}
	if extra != 0 {
		t.Errorf("extra flags = %d, want 0", extra)
	}
}

func TestParseCoreSubstreamTooFewBlocks(t *testing.T) {
	bs := bitio.NewMemory()
	b := bitio.NewBits(bs)
	b.Put(32, uint64(SyncwordCore))
	b.Put(1, 1)
	b.Put(5, 31)
	b.Put(1, 0)
	b.Put(7, 2) // NBLKS - 1 = 2 -> nblks = 3, <= 5.
	b.Put(14, 95)
	b.PutAlign() // flush the cached partial byte before appending raw padding.
	buf := append(bs.Bytes(), make([]byte, 96)...)
	if _, _, _, err := parseCoreSubstream(buf); err == nil {
		t.Fatal("parseCoreSubstream() with NBLKS <= 5: want error, got nil")
	}
}

func TestParseExtensionWithXLL(t *testing.T) {
	buf := buildXLLExtensionFrame(0, 13, true) // 96kHz, 24-bit.
	size, extIndex, ext, _, lossless, extra, err := parseExtensionSubstream(buf)
	if err != nil {
		t.Fatalf("parseExtensionSubstream() error = %v", err)
	}
	if size != 64 {
		t.Errorf("size = %d, want 64", size)
	}
	if extIndex != 0 {
		t.Errorf("extIndex = %d, want 0", extIndex)
	}
	if ext.NumberOfAssets != 1 {
		t.Errorf("NumberOfAssets = %d, want 1", ext.NumberOfAssets)
	}
	if extra&FlagExtXLL == 0 {
		t.Fatal("expected FlagExtXLL to be set")
	}
	if lossless.SamplingFrequency != 96000 {
		t.Errorf("lossless.SamplingFrequency = %d, want 96000", lossless.SamplingFrequency)
	}
	if lossless.BitWidth != 24 {
		t.Errorf("lossless.BitWidth = %d, want 24", lossless.BitWidth)
	}
}

func TestParserCoreThenXLL(t *testing.T) {
	var p Parser
	core := buildCoreFrame(13, 2, 192) // 48kHz stereo.
	size, newAU, err := p.Feed(core)
	if err != nil {
		t.Fatalf("Feed(core) error = %v", err)
	}
	if newAU {
		t.Fatal("Feed(core) on empty parser: want newAU false")
	}
	if size != 192 {
		t.Errorf("Feed(core) size = %d, want 192", size)
	}

	ext := buildXLLExtensionFrame(0, 13, true) // 96kHz, 24-bit.
	size, newAU, err = p.Feed(ext)
	if err != nil {
		t.Fatalf("Feed(ext) error = %v", err)
	}
	if newAU {
		t.Fatal("Feed(ext) after core: want newAU false")
	}
	if size != 64 {
		t.Errorf("Feed(ext) size = %d, want 64", size)
	}

	flags := p.Flags()
	if flags&FlagCore == 0 || flags&FlagExtXLL == 0 {
		t.Fatalf("Flags() = %d, want FlagCore|FlagExtXLL set", flags)
	}

	sc := StreamConstruction(flags)
	if sc != 14 {
		t.Errorf("StreamConstruction = %d, want 14", sc)
	}
	if name := CodingName(sc, p.Extension().NumberOfAssets > 1); name != "dtsl" {
		t.Errorf("CodingName = %q, want dtsl", name)
	}

	ddts := BuildDdts(flags, p.Core(), p.Extension(), p.LBR(), p.Lossless())
	if string(ddts[4:8]) != "ddts" {
		t.Fatalf("BuildDdts() type = %q, want ddts", ddts[4:8])
	}
	sampFreq := be32(ddts[8:])
	if sampFreq != 96000 {
		t.Errorf("ddts DTSSamplingFrequency = %d, want 96000", sampFreq)
	}
	pcmDepth := ddts[20]
	if pcmDepth != 24 {
		t.Errorf("ddts pcmSampleDepth = %d, want 24", pcmDepth)
	}
}

func TestParserCoreAfterCoreTerminatesAU(t *testing.T) {
	var p Parser
	core := buildCoreFrame(13, 2, 192)
	if _, newAU, err := p.Feed(core); err != nil || newAU {
		t.Fatalf("first Feed(core): newAU=%v err=%v, want false, nil", newAU, err)
	}
	_, newAU, err := p.Feed(core)
	if err != nil {
		t.Fatalf("second Feed(core) error = %v", err)
	}
	if !newAU {
		t.Error("second Feed(core): want newAU true (core after any substream)")
	}
}

func TestParserNonIncreasingExtIndexTerminatesAU(t *testing.T) {
	var p Parser
	ext0 := buildXLLExtensionFrame(1, 13, false)
	if _, newAU, err := p.Feed(ext0); err != nil || newAU {
		t.Fatalf("first Feed(ext, index 1): newAU=%v err=%v, want false, nil", newAU, err)
	}
	ext1 := buildXLLExtensionFrame(1, 13, false) // same index again.
	_, newAU, err := p.Feed(ext1)
	if err != nil {
		t.Fatalf("second Feed(ext) error = %v", err)
	}
	if !newAU {
		t.Error("second Feed(ext) with non-increasing exss_index: want newAU true")
	}
}

func TestChannelCount(t *testing.T) {
	// 5.1: C, L/R, Ls/Rs, LFE1 -> popcount(layout) = 4, pairs = L/R and Ls/Rs = 2 pairs -> 4+2 = 6.
	layout := LayoutC | LayoutLR | LayoutLsRs | LayoutLFE1
	if got, want := ChannelCount(layout), 6; got != want {
		t.Errorf("ChannelCount(5.1) = %d, want %d", got, want)
	}
	// Stereo: L/R only -> popcount = 1, pair = 1 -> 2.
	if got, want := ChannelCount(LayoutLR), 2; got != want {
		t.Errorf("ChannelCount(stereo) = %d, want %d", got, want)
	}
}

func TestStreamConstructionUnrecognizedDefaultsToZero(t *testing.T) {
	if got, want := StreamConstruction(FlagXCH|FlagExtLBR), uint8(0); got != want {
		t.Errorf("StreamConstruction(unrecognized) = %d, want %d", got, want)
	}
	if name := CodingName(0, false); name != "dtsh" {
		t.Errorf("CodingName(0, false) = %q, want dtsh", name)
	}
}
