/*
NAME
  mp3.go

DESCRIPTION
  mp3.go parses MPEG-1/2 Audio (Layer I-III) frame headers, computes frame
  size and samples-per-frame, and detects Xing/Info/VBRI side-info frames.
  Field extraction follows the same bitio.Bits idiom as codec/ac3, built on
  a sticky-error bit reader.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mp3 implements the MPEG-1/2 Audio (MP3) elementary stream
// importer's legacy interface.
package mp3

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
)

// Syncword is the 12-bit MP3 frame marker.
const Syncword = 0xFFF

// bitrateTableV1 and bitrateTableV2 give [layer-1][bitrate_index] in kbps
// (Layer I=0, Layer II=1, Layer III=2) for ID==1 (MPEG-1) and ID==0
// (MPEG-2) respectively.
var bitrateTableV1 = [3][16]uint32{
	{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0},
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0},
	{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0},
}
var bitrateTableV2 = [3][16]uint32{
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0},
	{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},
	{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},
}

var sampleRatesV1 = [4]uint32{44100, 48000, 32000, 0}
var sampleRatesV2 = [4]uint32{22050, 24000, 16000, 0}   // MPEG-2 (ID==0).
var sampleRatesV25 = [4]uint32{11025, 12000, 8000, 0}    // MPEG-2.5; unused: ParseHeader reads a 1-bit ID, which cannot signal it.

// Header holds the parsed MP3 frame header fields.
type Header struct {
	ID             uint8 // 1: MPEG-1, 0: MPEG-2.
	Layer          uint8 // 1, 2 or 3 (III has value 1 on the wire; stored here as the logical layer number).
	ProtectionBit  uint8
	BitrateIndex   uint8
	SampleRateIdx  uint8
	Padding        uint8
	Mode           uint8
	ModeExtension  uint8
}

func (h *Header) changeKey() [2]uint8 { return [2]uint8{h.Layer, h.SampleRateIdx} }

// SameSampleDescription reports whether a and b share the fatal-change
// fields {layer, sampling_frequency}.
func SameSampleDescription(a, b *Header) bool { return a.changeKey() == b.changeKey() }

// wireLayerToLogical converts the on-wire 2-bit layer field (01=Layer III,
// 10=Layer II, 11=Layer I) to a logical layer number in {1,2,3}.
func wireLayerToLogical(wire uint8) uint8 {
	switch wire {
	case 0x3:
		return 1
	case 0x2:
		return 2
	case 0x1:
		return 3
	default:
		return 0
	}
}

// ParseHeader decodes a 4-byte MP3 frame header.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < 4 {
		return nil, errors.New("mp3: buffer too short for frame header")
	}
	bs := bitio.NewMemoryFromBytes(buf)
	b := bitio.NewBits(bs)

	sync := b.Get(12)
	if sync != Syncword {
		return nil, errors.New("mp3: bad syncword")
	}
	h := &Header{}
	h.ID = uint8(b.Get(1))
	layerWire := uint8(b.Get(2))
	h.Layer = wireLayerToLogical(layerWire)
	h.ProtectionBit = uint8(b.Get(1))
	h.BitrateIndex = uint8(b.Get(4))
	h.SampleRateIdx = uint8(b.Get(2))
	h.Padding = uint8(b.Get(1))
	b.Skip(1) // private.
	h.Mode = uint8(b.Get(2))
	h.ModeExtension = uint8(b.Get(2))
	b.Skip(1) // copyright.
	b.Skip(1) // original/copy.
	emphasis := uint8(b.Get(2))

	if bs.Err() != nil {
		return nil, bs.Err()
	}
	if h.Layer == 0 {
		return nil, errors.New("mp3: layer must not be 0 (reserved)")
	}
	if h.BitrateIndex == 0 || h.BitrateIndex == 0xF {
		return nil, errors.New("mp3: bitrate_index out of range")
	}
	if h.SampleRateIdx == 3 {
		return nil, errors.New("mp3: sampling_frequency reserved")
	}
	if emphasis == 2 {
		return nil, errors.New("mp3: emphasis reserved")
	}
	return h, nil
}

// SampleRate returns the sampling frequency in Hz.
func (h *Header) SampleRate() uint32 {
	if h.ID == 1 {
		return sampleRatesV1[h.SampleRateIdx]
	}
	return sampleRatesV2[h.SampleRateIdx]
}

// Bitrate returns the nominal bitrate in kbps.
func (h *Header) Bitrate() uint32 {
	idx := h.Layer - 1
	if h.ID == 1 {
		return bitrateTableV1[idx][h.BitrateIndex]
	}
	return bitrateTableV2[idx][h.BitrateIndex]
}

// SamplesPerFrame returns the number of PCM samples this frame decodes to:
// 384 for Layer I, 1152 for Layer II or any MPEG-1 layer, and 576 for
// MPEG-2 Layer III.
func (h *Header) SamplesPerFrame() uint32 {
	switch {
	case h.Layer == 1:
		return 384
	case h.Layer == 2 || h.ID == 1:
		return 1152
	default:
		return 576
	}
}

// FrameSize computes the total frame size in bytes. Here
// "bitrate" is in kbps, matching Bitrate()'s units.
func (h *Header) FrameSize() int {
	bitrate := h.Bitrate()
	freq := h.SampleRate()
	if freq == 0 {
		return 0
	}
	padding := uint32(h.Padding)
	if h.Layer == 1 {
		return int((12000*bitrate/freq + padding) * 4)
	}
	div := freq
	if h.Layer == 3 && h.ID == 0 {
		div <<= 1
	}
	return int(144000*bitrate/div + padding)
}

// mainDataBeginBits returns the bit width of the main_data_begin field for
// Layer III: 9 bits for ID==1, 8 for ID==0.
func (h *Header) mainDataBeginBits() int {
	if h.ID == 1 {
		return 9
	}
	return 8
}

// SideInfoOffset returns the byte offset (relative to the start of the
// frame) at which a Xing/Info/VBRI marker would appear: 6 plus the
// side-information size, which is 32 bytes (17 for mono) for MPEG-1 and
// 17 bytes (9 for mono) for MPEG-2.
func (h *Header) SideInfoOffset() int {
	if h.ID == 1 {
		if h.Mode == 3 { // mono.
			return 6 + 17
		}
		return 6 + 32
	}
	if h.Mode == 3 {
		return 6 + 9
	}
	return 6 + 17
}

// VBRInfo holds the fields recovered from a Xing/Info or VBRI side-info
// frame.
type VBRInfo struct {
	Kind         string // "Xing", "Info" or "VBRI".
	FrameCount   uint32
	ByteCount    uint32
	EncoderDelay uint16
	EncoderPad   uint16
}

// DetectVBRHeader looks for a Xing/Info/VBRI marker at the frame's
// side-info offset and parses it if present.
func DetectVBRHeader(h *Header, frame []byte) (*VBRInfo, bool) {
	off := h.SideInfoOffset()
	if off+4 > len(frame) {
		return nil, false
	}
	tag := string(frame[off : off+4])
	switch tag {
	case "Xing", "Info":
		return parseXing(tag, frame[off:])
	case "VBRI":
		return parseVBRI(frame[off:])
	default:
		return nil, false
	}
}

func parseXing(tag string, buf []byte) (*VBRInfo, bool) {
	if len(buf) < 8 {
		return nil, false
	}
	flags := uint32(buf[4])<<24 | uint32(buf[5])<<16 | uint32(buf[6])<<8 | uint32(buf[7])
	pos := 8
	info := &VBRInfo{Kind: tag}
	if flags&0x1 != 0 && pos+4 <= len(buf) {
		info.FrameCount = uint32(buf[pos])<<24 | uint32(buf[pos+1])<<16 | uint32(buf[pos+2])<<8 | uint32(buf[pos+3])
		pos += 4
	}
	if flags&0x2 != 0 && pos+4 <= len(buf) {
		info.ByteCount = uint32(buf[pos])<<24 | uint32(buf[pos+1])<<16 | uint32(buf[pos+2])<<8 | uint32(buf[pos+3])
		pos += 4
	}
	return info, true
}

func parseVBRI(buf []byte) (*VBRInfo, bool) {
	if len(buf) < 26 {
		return nil, false
	}
	info := &VBRInfo{Kind: "VBRI"}
	info.ByteCount = uint32(buf[10])<<24 | uint32(buf[11])<<16 | uint32(buf[12])<<8 | uint32(buf[13])
	info.FrameCount = uint32(buf[14])<<24 | uint32(buf[15])<<16 | uint32(buf[16])<<8 | uint32(buf[17])
	return info, true
}

// ReservoirTracker maintains the 32-entry FIFO of previous-frame main_data
// sizes used to compute pre_roll.distance for Layer III bit-reservoir
// dependency.
type ReservoirTracker struct {
	sizes []int // most recent last.
}

// NewReservoirTracker returns an empty tracker.
func NewReservoirTracker() *ReservoirTracker { return &ReservoirTracker{} }

// Push records the main_data size of the frame just decoded.
func (rt *ReservoirTracker) Push(size int) {
	rt.sizes = append(rt.sizes, size)
	if len(rt.sizes) > 32 {
		rt.sizes = rt.sizes[1:]
	}
}

// PreRollDistance returns the number of prior frames whose cumulative
// main_data size covers mainDataBegin bytes of bit-reservoir dependency.
func (rt *ReservoirTracker) PreRollDistance(mainDataBegin int) uint16 {
	if mainDataBegin == 0 {
		return 0
	}
	sum := 0
	for i := len(rt.sizes) - 1; i >= 0; i-- {
		sum += rt.sizes[i]
		if sum >= mainDataBegin {
			return uint16(len(rt.sizes) - i)
		}
	}
	return uint16(len(rt.sizes))
}

// MainDataBegin reads the main_data_begin field from the start of a Layer
// III frame's side info (immediately after the 4-byte header, plus 2 bytes
// of CRC when protection_bit == 0).
func (h *Header) MainDataBegin(frame []byte) (int, error) {
	off := 4
	if h.ProtectionBit == 0 {
		off += 2
	}
	if off >= len(frame) {
		return 0, errors.New("mp3: frame too short for side info")
	}
	bs := bitio.NewMemoryFromBytes(frame[off:])
	b := bitio.NewBits(bs)
	v := b.Get(h.mainDataBeginBits())
	if bs.Err() != nil {
		return 0, bs.Err()
	}
	return int(v), nil
}

// ObjectTypeIndication returns the esds objectTypeIndication for this
// stream: 0x6B for MPEG-1 Audio (ID==1), 0x69 for MPEG-2 BC Audio (ID==0).
func (h *Header) ObjectTypeIndication() byte {
	if h.ID == 1 {
		return 0x6B
	}
	return 0x69
}
