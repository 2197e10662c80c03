/*
NAME
  dts.go

DESCRIPTION
  dts.go parses DTS core and extension substream headers, accumulates
  embedded sub-payload presence (XCH/XXCH/X96/XBR/XLL/LBR/extension-embedded
  core) into one access unit, and derives the StreamConstruction, coding
  name, and ddts configuration box this module builds.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dts implements the DTS (core + extension substream) elementary
// stream importer.
package dts

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
)

// Syncwords identifying a core substream, an extension substream, and the
// sub-payloads that may be embedded within either.
const (
	SyncwordCore      uint32 = 0x7FFE8001
	SyncwordExtension uint32 = 0x64582025
	syncwordXCH       uint32 = 0x5A5A5A5A
	syncwordXXCH      uint32 = 0x47004A03
	syncwordX96       uint32 = 0x1D95F262
	syncwordXBR       uint32 = 0x655E315E
	syncwordLBR       uint32 = 0x0A801921
	syncwordXLL       uint32 = 0x41A29547
)

const dtsMinCoreSize = 96

// Flags records which substream/sub-payload kinds have contributed to the
// access unit under construction; StreamConstruction is derived from it.
type Flags uint32

const (
	FlagCore Flags = 1 << iota
	FlagXCH
	FlagXXCH
	FlagX96
	FlagExtXXCH
	FlagExtXBR
	FlagExtX96
	FlagExtXLL
	FlagExtLBR
	FlagExtCore
)

// streamConstructionTable maps the observed Flags combination to the
// StreamConstruction value ddts requires; index 0 is unused (construction
// values are 1-21). An unrecognized combination maps to 0 ("dtsh").
var streamConstructionTable = [22]Flags{
	0,
	FlagCore,
	FlagCore | FlagXCH,
	FlagCore | FlagXXCH,
	FlagCore | FlagX96,
	FlagCore | FlagExtXXCH,
	FlagCore | FlagExtXBR,
	FlagCore | FlagXCH | FlagExtXBR,
	FlagCore | FlagXXCH | FlagExtXBR,
	FlagCore | FlagExtXXCH | FlagExtXBR,
	FlagCore | FlagExtX96,
	FlagCore | FlagXCH | FlagExtX96,
	FlagCore | FlagXXCH | FlagExtX96,
	FlagCore | FlagExtXXCH | FlagExtX96,
	FlagCore | FlagExtXLL,
	FlagCore | FlagXCH | FlagExtXLL,
	FlagCore | FlagX96 | FlagExtXLL,
	FlagExtXLL,
	FlagExtLBR,
	FlagExtCore,
	FlagExtCore | FlagExtXXCH,
	FlagExtCore | FlagExtXLL,
}

// codingNameTable maps StreamConstruction to the ISO-BMFF coding name,
// indexed the same way as streamConstructionTable.
var codingNameTable = [22]string{
	"dtsh",
	"dtsc", "dtsc", "dtsh", "dtsc", "dtsh", "dtsh", "dtsh", "dtsh", "dtsh",
	"dtsh", "dtsh", "dtsh", "dtsh",
	"dtsl", "dtsl", "dtsl", "dtsl", "dtse",
	"dtsh", "dtsh", "dtsl",
}

// StreamConstruction returns the 1-21 value matching flags, or 0 ("dtsh")
// when no table entry matches.
func StreamConstruction(flags Flags) uint8 {
	for i := 1; i < len(streamConstructionTable); i++ {
		if streamConstructionTable[i] == flags {
			return uint8(i)
		}
	}
	return 0
}

// CodingName returns the coding name for the given StreamConstruction;
// MultiAssetFlag overrides the table with "dtsh".
func CodingName(streamConstruction uint8, multiAsset bool) string {
	if multiAsset {
		return "dtsh"
	}
	return codingNameTable[streamConstruction]
}

// Channel layout bits, per the 16-entry loudspeaker-position table ETSI TS
// 102 114 defines.
const (
	LayoutC      uint16 = 0x0001
	LayoutLR     uint16 = 0x0002
	LayoutLsRs   uint16 = 0x0004
	LayoutLFE1   uint16 = 0x0008
	LayoutCs     uint16 = 0x0010
	LayoutLhRh   uint16 = 0x0020
	LayoutLsrRsr uint16 = 0x0040
	LayoutCh     uint16 = 0x0080
	LayoutOh     uint16 = 0x0100
	LayoutLcRc   uint16 = 0x0200
	LayoutLwRw   uint16 = 0x0400
	LayoutLssRss uint16 = 0x0800
	LayoutLFE2   uint16 = 0x1000
	LayoutLhsRhs uint16 = 0x2000
	LayoutChr    uint16 = 0x4000
	LayoutLhrRhr uint16 = 0x8000
)

// channelPairMask enumerates the layout bits that each represent a
// left/right pair, so that the channel count formula below counts each
// of them as two channels.
const channelPairMask = LayoutLR | LayoutLsRs | LayoutLhRh | LayoutLsrRsr |
	LayoutLcRc | LayoutLwRw | LayoutLssRss | LayoutLhsRhs | LayoutLhrRhr

// ChannelCount returns popcount(layout) + popcount(layout & pairMask).
func ChannelCount(layout uint16) int {
	return popcount16(layout) + popcount16(layout&channelPairMask)
}

func popcount16(v uint16) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

// coreChannelLayoutTable maps AMODE (channel_arrangement) to the layout
// bits it implies, per dts_generate_channel_layout_from_core.
var coreChannelLayoutTable = [16]uint16{
	LayoutC,
	LayoutLR, LayoutLR, LayoutLR, LayoutLR,
	LayoutC | LayoutLR,
	LayoutLR | LayoutCs,
	LayoutC | LayoutLR | LayoutCs,
	LayoutLR | LayoutLsRs,
	LayoutC | LayoutLR | LayoutLsRs,
	LayoutLcRc | LayoutLR | LayoutLsRs,
	LayoutC | LayoutLR | LayoutLsrRsr | LayoutOh,
	LayoutC | LayoutCs | LayoutLR | LayoutLsrRsr,
	LayoutC | LayoutLR | LayoutLcRc | LayoutLsRs,
	LayoutLR | LayoutLcRc | LayoutLsRs | LayoutLsrRsr,
	LayoutC | LayoutCs | LayoutLR | LayoutLcRc | LayoutLsRs,
}

func coreChannelLayout(amode uint8) uint16 {
	if amode >= 16 {
		return 0
	}
	return coreChannelLayoutTable[amode]
}

var coreSampleRateTable = [16]uint32{
	0,
	8000, 16000, 32000, 0, 0,
	11025, 22050, 44100, 0, 0,
	12000, 24000, 48000, 0, 0,
}

var sourceResolutionTable = [8]uint8{16, 16, 20, 20, 0, 24, 24, 0}

var lbrSampleRateTable = [16]uint32{
	8000, 16000, 32000, 0, 0,
	11025, 22050, 44100, 0, 0,
	12000, 24000, 48000, 0, 0, 0,
}

var xllSampleRateTable = [16]uint32{
	8000, 16000, 32000, 64000, 128000,
	22050, 44100, 88200, 176400, 352800,
	12000, 24000, 48000, 96000, 192000, 384000,
}

// CoreInfo holds the fields parsed from a core substream header.
type CoreInfo struct {
	SamplingFrequency  uint32
	FrameDuration      uint32
	FrameSize          uint16 // bytes.
	ChannelArrangement uint8
	ChannelLayout      uint16
	ExtAudioDescriptor uint8
	PCMResolution      uint8
}

// ExtensionInfo holds the static fields parsed from an extension substream
// header (excluding per-sub-payload detail, which lives on LBRInfo /
// LosslessInfo).
type ExtensionInfo struct {
	SamplingFrequency  uint32
	FrameDuration      uint32
	ChannelLayout      uint16
	NumberOfAssets     uint8
	StereoDownmix      uint8
	RepresentationType uint8
	BitResolution      uint8
}

// LBRInfo holds fields parsed from an embedded LBR asset.
type LBRInfo struct {
	SamplingFrequency uint32
	FrameDuration     uint32
	ChannelLayout     uint16
	StereoDownmix     uint8
	DurationModifier  uint8
	SampleSize        uint8
}

// LosslessInfo holds fields parsed from an embedded XLL asset.
type LosslessInfo struct {
	SamplingFrequency uint32
	FrameDuration     uint32
	ChannelLayout     uint16
	BitWidth          uint8
}

var (
	errShortCoreHeader    = errors.New("dts: buffer too short for core substream header")
	errBadFrameType       = errors.New("dts: normal frame must have SHORT == 31")
	errTooFewBlocks       = errors.New("dts: NBLKS must be greater than 5")
	errCoreTooShort       = errors.New("dts: core substream frame size below minimum")
	errBadSampleRate      = errors.New("dts: reserved core sampling frequency index")
	errBadLFE             = errors.New("dts: reserved LFF value")
	errBadPCMResolution   = errors.New("dts: reserved PCMR value")
	errShortExtHeader     = errors.New("dts: buffer too short for extension substream header")
	errExtFrameTooShort   = errors.New("dts: extension substream frame size below minimum")
	errUnrecognizedSync   = errors.New("dts: unrecognized substream syncword")
)

// parseCoreSubstream decodes a core substream header beginning at buf[0]
// (the 0x7FFE8001 syncword included), per ETSI TS 102 114 and
// dts_parse_core_substream. It returns the frame size in bytes and any
// embedded XCH/XXCH/X96 flags detected by a syncword scan of the
// remainder of the frame (sub-payload fields are not decoded beyond
// presence, a reasonable-effort simplification of the original's full
// per-sub-block field extraction).
func parseCoreSubstream(buf []byte) (frameSize int, info CoreInfo, extra Flags, err error) {
	if len(buf) < 14 {
		return 0, CoreInfo{}, 0, errShortCoreHeader
	}
	bs := bitio.NewMemoryFromBytes(buf)
	b := bitio.NewBits(bs)

	b.Skip(32) // SYNC.
	ftype := b.Get(1)
	short := b.Get(5)
	if ftype == 1 && short != 31 {
		return 0, CoreInfo{}, 0, errBadFrameType
	}
	cpf := b.Get(1)
	nblks := b.Get(7) + 1
	if nblks <= 5 {
		return 0, CoreInfo{}, 0, errTooFewBlocks
	}
	frameDuration := uint32(32 * nblks)
	fsize := b.Get(14)
	frameSizeBytes := int(fsize) + 1
	if frameSizeBytes < dtsMinCoreSize {
		return 0, CoreInfo{}, 0, errCoreTooShort
	}
	amode := uint8(b.Get(6))
	layout := coreChannelLayout(amode)
	sfreqIdx := b.Get(4)
	sampFreq := coreSampleRateTable[sfreqIdx]
	if sampFreq == 0 {
		return 0, CoreInfo{}, 0, errBadSampleRate
	}
	b.Skip(10) // RATE, MIX, DYNF, TIMEF, AUXF, HDCD.
	extAudioID := uint8(b.Get(3))
	extCoding := b.Get(1)
	b.Skip(1) // ASPF.
	lff := b.Get(2)
	if lff == 3 {
		return 0, CoreInfo{}, 0, errBadLFE
	}
	if lff != 0 {
		layout |= LayoutLFE1
	}
	skip := 8
	if cpf == 1 {
		skip += 16
	}
	b.Skip(skip) // HFLAG, HCRC, FILTS, VERNUM, CHIST.
	pcmr := b.Get(3)
	pcmRes := sourceResolutionTable[pcmr]
	if pcmRes == 0 {
		return 0, CoreInfo{}, 0, errBadPCMResolution
	}
	b.Skip(6) // SUMF, SUMS, DIALNORM/UNSPEC.
	if bs.Err() != nil {
		return 0, CoreInfo{}, 0, bs.Err()
	}

	// The fixed header above always lands byte-aligned (13 or 15 bytes,
	// depending on cpf): 87 + 8 + 16*cpf + 3 + 6 bits == 104 or 120.
	headerBytes := 13
	if cpf == 1 {
		headerBytes = 15
	}
	if extCoding == 1 {
		extra = scanEmbeddedSyncwords(buf, headerBytes, frameSizeBytes, coreEmbeddedSyncwords)
	}

	info = CoreInfo{
		SamplingFrequency:  sampFreq,
		FrameDuration:      frameDuration,
		FrameSize:          uint16(frameSizeBytes),
		ChannelArrangement: amode,
		ChannelLayout:      layout,
		ExtAudioDescriptor: extAudioID,
		PCMResolution:      pcmRes,
	}
	return frameSizeBytes, info, extra, nil
}

type embeddedSync struct {
	word uint32
	flag Flags
}

var coreEmbeddedSyncwords = []embeddedSync{
	{syncwordXCH, FlagXCH},
	{syncwordXXCH, FlagXXCH},
	{syncwordX96, FlagX96},
}

var extEmbeddedSyncwords = []embeddedSync{
	{syncwordXBR, FlagExtXBR},
	{syncwordXXCH, FlagExtXXCH},
	{syncwordX96, FlagExtX96},
}

// scanEmbeddedSyncwords looks for any of syncs' 4-byte markers within
// buf[from:to], OR-ing in the matching flag for each one found. This
// detects presence only; it does not decode the sub-payload's own fields,
// since callers only need substream dispatch, not a full per-sub-block
// decode.
func scanEmbeddedSyncwords(buf []byte, from, to int, syncs []embeddedSync) Flags {
	if to > len(buf) {
		to = len(buf)
	}
	var flags Flags
	for i := from; i+4 <= to; i++ {
		word := be32(buf[i:])
		for _, s := range syncs {
			if word == s.word {
				flags |= s.flag
			}
		}
	}
	return flags
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// parseExtensionSubstream decodes an extension substream header beginning
// at buf[0] (the 0x64582025 syncword included), per
// dts_parse_extension_substream. It returns the frame size in bytes, the
// nExtSSIndex field, the static fields, and any LBR/XLL/XBR/XXCH/X96
// sub-payload flags and fields detected within the remainder of the
// frame.
func parseExtensionSubstream(buf []byte) (frameSize, extIndex int, ext ExtensionInfo, lbr LBRInfo, lossless LosslessInfo, extra Flags, err error) {
	if len(buf) < 14 {
		return 0, 0, ExtensionInfo{}, LBRInfo{}, LosslessInfo{}, 0, errShortExtHeader
	}
	bs := bitio.NewMemoryFromBytes(buf)
	b := bitio.NewBits(bs)

	b.Skip(40) // SYNCEXTSSH, UserDefinedBits.
	nExtSSIndex := int(b.Get(2))
	bHeaderSizeType := b.Get(1)
	bitsHeader := 8 + int(bHeaderSizeType)*4
	bitsFsize := 16 + int(bHeaderSizeType)*4
	headerSize := int(b.Get(bitsHeader)) + 1
	frameSizeBytes := int(b.Get(bitsFsize)) + 1
	if frameSizeBytes < 10 {
		return 0, 0, ExtensionInfo{}, LBRInfo{}, LosslessInfo{}, 0, errExtFrameTooShort
	}

	var frameDuration uint32
	bStaticFieldsPresent := b.Get(1)
	if bStaticFieldsPresent == 1 {
		b.Skip(2) // nuRefClockCode.
		frameDuration = 512 * uint32(b.Get(3)+1)
		if b.Get(1) == 1 { // bTimeStampFlag.
			b.Skip(36)
		}
		numAudioPresent := int(b.Get(3)) + 1
		numAssets := int(b.Get(3)) + 1
		masks := make([]int, numAudioPresent)
		for i := range masks {
			masks[i] = int(b.Get(nExtSSIndex + 1))
		}
		for _, mask := range masks {
			for ss := 0; ss <= nExtSSIndex; ss++ {
				if mask&(1<<uint(ss)) != 0 {
					b.Skip(8) // nuActiveAssetMask.
				}
			}
		}
		ext.NumberOfAssets = uint8(numAssets)
		if b.Get(1) == 1 { // bMixMetadataEnbl.
			b.Skip(2) // nuMixMetadataAdjLevel.
			bitsMixOutMask := (int(b.Get(2)) + 1) << 2
			numMixOutConfigs := int(b.Get(2)) + 1
			for i := 0; i < numMixOutConfigs; i++ {
				b.Skip(bitsMixOutMask)
			}
		}
	} else {
		ext.NumberOfAssets = 1
	}
	if bs.Err() != nil {
		return 0, 0, ExtensionInfo{}, LBRInfo{}, LosslessInfo{}, 0, bs.Err()
	}
	ext.FrameDuration = frameDuration

	// Asset fsize table and per-asset descriptors (representation_type,
	// stereo_downmix, bit_resolution) are not walked bit-exactly here;
	// esimport instead locates sub-payloads (LBR/XLL/XBR/XXCH/X96) by
	// scanning from the end of the fixed header, matching 's
	// framing of the parser as a syncword walker rather than a bit-exact
	// asset-descriptor decoder.
	if extCoding := scanEmbeddedSyncwords(buf, headerSize, frameSizeBytes, extEmbeddedSyncwords); extCoding != 0 {
		extra |= extCoding
	}
	if off := findSyncword(buf, headerSize, frameSizeBytes, syncwordLBR); off >= 0 {
		extra |= FlagExtLBR
		if l, perr := parseLBR(buf[off+4:]); perr == nil {
			lbr = l
		}
	}
	if off := findSyncword(buf, headerSize, frameSizeBytes, syncwordXLL); off >= 0 {
		extra |= FlagExtXLL
		if ll, perr := parseXLL(buf[off:]); perr == nil {
			lossless = ll
		}
	}

	return frameSizeBytes, nExtSSIndex, ext, lbr, lossless, extra, nil
}

func findSyncword(buf []byte, from, to int, word uint32) int {
	if to > len(buf) {
		to = len(buf)
	}
	for i := from; i+4 <= to; i++ {
		if be32(buf[i:]) == word {
			return i
		}
	}
	return -1
}

// parseLBR decodes the small fixed LBR asset header that follows the
// 0x0A801921 syncword, per dts_parse_exsub_lbr.
func parseLBR(buf []byte) (LBRInfo, error) {
	if len(buf) < 10 {
		return LBRInfo{}, errors.New("dts: buffer too short for LBR header")
	}
	bs := bitio.NewMemoryFromBytes(buf)
	b := bitio.NewBits(bs)
	fmtInfo := b.Get(8)
	if fmtInfo != 2 {
		return LBRInfo{}, nil // no decoder-init payload present.
	}
	rateCode := b.Get(8)
	spkrMask := uint16(b.Get(16))
	b.Skip(16) // nLBRversion.
	compressedFlags := b.Get(8)
	b.Skip(40) // bit-rate fields.
	if bs.Err() != nil {
		return LBRInfo{}, bs.Err()
	}

	sampFreq := lbrSampleRateTable[rateCode]
	var duration uint32
	switch {
	case sampFreq < 16000:
		duration = 1024
	case sampFreq < 32000:
		duration = 2048
	default:
		duration = 4096
	}
	// usLBRSpkrMask is little-endian; byte-swap it before treating it as a
	// channel-layout mask byte-order note.
	layout := (spkrMask>>8)&0xff | (spkrMask<<8)&0xff00

	info := LBRInfo{
		SamplingFrequency: sampFreq,
		FrameDuration:     duration,
		ChannelLayout:     layout,
		DurationModifier:  boolBit(compressedFlags&0x04 != 0 || compressedFlags&0x0C != 0),
	}
	if compressedFlags&0x20 != 0 {
		info.StereoDownmix = 1
	}
	if compressedFlags&0x01 != 0 {
		info.SampleSize = 24
	} else {
		info.SampleSize = 16
	}
	return info, nil
}

func boolBit(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// parseXLL decodes enough of the XLL common header and first channel-set
// sub-header (beginning at the 0x41A29547 syncword) to recover the
// sampling frequency and bit width ddts needs, per dts_parse_exsub_xll.
// Downmix-coefficient and per-channel-set speaker-mapping detail beyond
// the first channel set is not modeled, since ddts only reports the
// maximum sampling frequency / bit width observed.
func parseXLL(buf []byte) (LosslessInfo, error) {
	if len(buf) < 16 {
		return LosslessInfo{}, errors.New("dts: buffer too short for XLL header")
	}
	bs := bitio.NewMemoryFromBytes(buf)
	b := bitio.NewBits(bs)

	b.Skip(32) // SYNCXLL.
	b.Skip(4)  // nVersion.
	headerSize := int(b.Get(8)) + 1
	bitsFrameFsize := int(b.Get(5)) + 1
	b.Skip(bitsFrameFsize) // nLLFrameSize.
	b.Skip(4)              // nNumChSetsInFrame.
	b.Skip(4)              // nSegmentsInFrame.
	b.Skip(4)              // nSmplInSeg.
	b.Skip(5)              // nBits4SSize.
	b.Skip(3)              // nBandDataCRCEn, bScalableLSBs.
	b.Skip(5)              // nBits4ChMask.
	if bs.Err() != nil {
		return LosslessInfo{}, bs.Err()
	}

	// The common header's declared size is in bytes, from the syncword;
	// skip straight to the channel-set sub-header rather than tracking
	// the exact bit position of trailing reserved fields.
	chsetStart := headerSize
	if chsetStart+2 > len(buf) {
		return LosslessInfo{}, nil
	}
	cb := bitio.NewMemoryFromBytes(buf[chsetStart:])
	cbits := bitio.NewBits(cb)
	cbits.Skip(10) // nChSetHeaderSize.
	nChSetLLChannel := int(cbits.Get(4)) + 1
	cbits.Skip(nChSetLLChannel + 5) // nResidualChEncode, nBitResolution.
	bitWidthCode := cbits.Get(5)
	bitWidth := uint8(16)
	if bitWidthCode >= 16 {
		bitWidth = 24
	}
	sFreqIndex := cbits.Get(4)
	if cb.Err() != nil {
		return LosslessInfo{}, cb.Err()
	}
	sampFreq := xllSampleRateTable[sFreqIndex]

	return LosslessInfo{
		SamplingFrequency: sampFreq,
		BitWidth:          bitWidth,
	}, nil
}

// BuildDdts serializes the ddts configuration box from the accumulated
// AU-level state field layout and
// lsmash_create_dts_specific_info.
func BuildDdts(flags Flags, core CoreInfo, ext ExtensionInfo, lbr LBRInfo, lossless LosslessInfo) []byte {
	samplingFrequency := core.SamplingFrequency
	frameDuration := core.FrameDuration
	if flags&FlagCore == 0 {
		samplingFrequency = ext.SamplingFrequency
		frameDuration = ext.FrameDuration
	}
	if samplingFrequency <= lbr.SamplingFrequency {
		samplingFrequency = lbr.SamplingFrequency
		frameDuration = lbr.FrameDuration
	}
	if samplingFrequency <= lossless.SamplingFrequency {
		samplingFrequency = lossless.SamplingFrequency
		frameDuration = lossless.FrameDuration
	}

	var durationCode uint8
	for d := frameDuration >> 10; d != 0; d >>= 1 {
		durationCode++
	}

	pcmDepth := core.PCMResolution
	if ext.BitResolution > pcmDepth {
		pcmDepth = ext.BitResolution
	}
	if lbr.SampleSize > pcmDepth {
		pcmDepth = lbr.SampleSize
	}
	if lossless.BitWidth > pcmDepth {
		pcmDepth = lossless.BitWidth
	}
	if pcmDepth > 16 {
		pcmDepth = 24
	} else {
		pcmDepth = 16
	}

	streamConstruction := StreamConstruction(flags)
	coreLFEPresent := boolBit(core.ChannelLayout&LayoutLFE1 != 0)

	var coreLayout uint8 = 31
	if streamConstruction != 0 && streamConstruction < 19 {
		if core.ChannelArrangement != 1 && core.ChannelArrangement != 3 && core.ChannelArrangement <= 9 {
			coreLayout = core.ChannelArrangement
		}
	}

	coreSize := core.FrameSize
	if coreSize > 0x3FFF {
		coreSize = 0x3FFF
	}

	stereoDownmix := ext.StereoDownmix | lbr.StereoDownmix
	multiAsset := ext.NumberOfAssets > 1
	channelLayout := core.ChannelLayout | ext.ChannelLayout | lbr.ChannelLayout | lossless.ChannelLayout

	durationModifier := lbr.DurationModifier
	if multiAsset {
		durationModifier = boolBit(lbr.DurationModifier != 0 && flags&FlagCore == 0)
	}

	bs := bitio.NewMemory()
	bs.PutBE32(0) // box size, patched below.
	bs.PutBytes([]byte("ddts"))
	bs.PutBE32(samplingFrequency)
	bs.PutBE32(0) // maxBitrate, filled in by the caller once known.
	bs.PutBE32(0) // avgBitrate, filled in by the caller once known.
	bs.PutByte(pcmDepth)

	b := bitio.NewBits(bs)
	b.Put(2, uint64(durationCode))
	b.Put(5, uint64(streamConstruction))
	b.Put(1, uint64(coreLFEPresent))
	b.Put(6, uint64(coreLayout))
	b.Put(14, uint64(coreSize))
	b.Put(1, uint64(stereoDownmix))
	b.Put(3, uint64(ext.RepresentationType))
	b.Put(16, uint64(channelLayout))
	b.Put(1, uint64(boolBit(multiAsset)))
	b.Put(1, uint64(durationModifier))
	b.Put(6, 0) // reserved.
	b.PutAlign()

	out := bs.Bytes()
	size := len(out)
	out[0] = byte(size >> 24)
	out[1] = byte(size >> 16)
	out[2] = byte(size >> 8)
	out[3] = byte(size)
	return out
}
