/*
NAME
  aac.go

DESCRIPTION
  aac.go parses ADTS (Audio Data Transport Stream) headers and synthesizes
  the AudioSpecificConfig wrapped in an esds box. Field extraction is
  generalised to bitio.Bits and extended to the multi-raw_data_block case
  a single-frame ADTS reader doesn't handle.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package aac implements the AAC-ADTS elementary stream importer.
package aac

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
	"github.com/ausocean/esimport/mp4sys"
)

// Syncword is the 12-bit ADTS frame marker.
const Syncword = 0xFFF

// SamplesInFrame is fixed for ADTS: one raw_data_block covers 1024 samples.
const SamplesInFrame = 1024

// sampleRates indexes sampling_frequency_index per ISO/IEC 13818-7 Table 35.
var sampleRates = [16]uint32{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350, 0, 0, 0,
}

// Header holds the fixed+variable ADTS header fields.
type Header struct {
	ID                  uint8 // 0: MPEG-4, 1: MPEG-2.
	ProtectionAbsent    bool
	ProfileObjectType   uint8
	SamplingFreqIndex   uint8
	ChannelConfig       uint8
	FrameLength         uint16
	RawDataBlocksMinus1 uint8
}

func (h *Header) changeKey() [3]uint8 {
	return [3]uint8{h.ProfileObjectType, h.ID, h.SamplingFreqIndex}
}

// SameSampleDescription reports whether a and b share the fatal-change
// fields {profile_ObjectType, ID, sampling_frequency_index}.
func SameSampleDescription(a, b *Header) bool { return a.changeKey() == b.changeKey() }

// ParseHeader decodes one ADTS header (7 or 9 bytes, depending on
// ProtectionAbsent) from buf field layout and
// validation rules.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < 7 {
		return nil, errors.New("aac: buffer too short for ADTS header")
	}
	bs := bitio.NewMemoryFromBytes(buf)
	b := bitio.NewBits(bs)

	sync := b.Get(12)
	if sync != Syncword {
		return nil, errors.New("aac: bad ADTS syncword")
	}
	h := &Header{}
	h.ID = uint8(b.Get(1))
	layer := b.Get(2)
	h.ProtectionAbsent = b.Get(1) == 1
	h.ProfileObjectType = uint8(b.Get(2))
	h.SamplingFreqIndex = uint8(b.Get(4))
	b.Skip(1) // private.
	h.ChannelConfig = uint8(b.Get(3))
	b.Skip(1) // original/copy.
	b.Skip(1) // home.
	b.Skip(1) // copyright_identification_bit.
	b.Skip(1) // copyright_identification_start.
	h.FrameLength = uint16(b.Get(13))
	b.Skip(11) // adts_buffer_fullness.
	h.RawDataBlocksMinus1 = uint8(b.Get(2))

	if bs.Err() != nil {
		return nil, bs.Err()
	}
	if layer != 0 {
		return nil, errors.New("aac: layer must be 0")
	}
	if h.ProfileObjectType != 1 {
		return nil, errors.Errorf("aac: unsupported profile_ObjectType %d (only LC supported)", h.ProfileObjectType)
	}
	if h.ChannelConfig == 0 {
		return nil, errors.New("aac: channel_configuration must be > 0")
	}
	if h.SamplingFreqIndex > 0xB {
		return nil, errors.New("aac: sampling_frequency_index out of range")
	}
	return h, nil
}

// HeaderSize returns the on-wire header length: 7 bytes, or 9 when a CRC is
// present.
func (h *Header) HeaderSize() int {
	if h.ProtectionAbsent {
		return 7
	}
	return 9
}

// RawDataBlockOffsets computes, for a multi-block frame, the byte offsets
// (relative to the start of the frame) that divide the raw_data_block
// region, given the block-position table read after the header.
type RawDataBlockOffsets struct {
	Positions []uint16 // positions[i] is the size in bytes of raw_data_block i, all but the last read explicitly.
}

// ParseBlockPositions reads the block-position table and trailing CRC that
// follow a multi-block ADTS header: "the parser reads
// number_of_blocks 16-bit raw_data_block positions and a 16-bit CRC".
func ParseBlockPositions(buf []byte, numBlocks int) ([]uint16, error) {
	need := numBlocks*2 + 2
	if len(buf) < need {
		return nil, errors.New("aac: buffer too short for raw_data_block position table")
	}
	bs := bitio.NewMemoryFromBytes(buf)
	positions := make([]uint16, numBlocks)
	for i := range positions {
		positions[i] = bs.GetBE16()
	}
	_ = bs.GetBE16() // CRC, not validated.
	if bs.Err() != nil {
		return nil, bs.Err()
	}
	return positions, nil
}

// BuildAudioSpecificConfig synthesizes the 2-byte AudioSpecificConfig
// (AOT=profile+1, sampling_frequency_index, channel_configuration,
// SBR not specified). BuildESDS wraps it in an esds box.
func BuildAudioSpecificConfig(h *Header) []byte {
	bs := bitio.NewMemory()
	b := bitio.NewBits(bs)
	aot := uint64(h.ProfileObjectType) + 1
	b.Put(5, aot)
	b.Put(4, uint64(h.SamplingFreqIndex))
	b.Put(4, uint64(h.ChannelConfig))
	b.PutAlign()
	return bs.Bytes()
}

// BuildESDS wraps the AudioSpecificConfig in an ES_Descriptor tree and
// serializes the esds configuration box.
func BuildESDS(h *Header, avgBitrate uint32) []byte {
	asc := BuildAudioSpecificConfig(h)
	esd := &mp4sys.ESDescriptor{
		ESID: 0,
		DecoderConfig: &mp4sys.DecoderConfigDescriptor{
			ObjectTypeIndication: mp4sys.ObjectTypeMPEG4Audio,
			StreamType:           mp4sys.StreamTypeAudio,
			AvgBitrate:           avgBitrate,
			Info:                 &mp4sys.DecoderSpecificInfo{Data: asc},
		},
		SLConfig: &mp4sys.SLConfigDescriptor{Predefined: 2},
	}
	return mp4sys.BuildESDS(esd)
}
