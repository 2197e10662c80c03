/*
NAME
  als.go

DESCRIPTION
  als.go parses the ALSSpecificConfig fixed prefix and variable-length
  tables, assembling the serialized specific config for the summary.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package als implements the MPEG-4 ALS (Audio Lossless Coding) elementary
// stream importer.
package als

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
)

// Magic is the 4-byte ALS identifier at the start of an ALSSpecificConfig.
const Magic = "ALS\x00"

// SpecificConfig holds the ALSSpecificConfig fixed-prefix fields, plus the
// fully reassembled serialized blob for embedding in the summary.
type SpecificConfig struct {
	SampFreq       uint32
	Samples        uint32
	Channels       uint16
	Resolution     uint8
	FrameLength    uint16
	RandomAccess   uint8
	RAFlag         uint8
	ChanSort       bool
	ChanConfig     bool
	CRCEnabled     bool
	AuxDataEnabled bool

	RAUnitSizes []uint32 // populated only when RAFlag == 2.

	// Blob is the entire serialized ALSSpecificConfig, with the ra_flag bits
	// cleared so per-AU RA unit sizes aren't re-emitted at AU granularity.
	Blob []byte
}

// Parse decodes an ALSSpecificConfig beginning at buf[0] (the "ALS\0" magic
// included).
func Parse(buf []byte) (*SpecificConfig, error) {
	if len(buf) < 4 || string(buf[:4]) != Magic {
		return nil, errors.New("als: bad magic")
	}
	if len(buf) < 26 {
		return nil, errors.New("als: buffer too short for fixed prefix")
	}
	orig := append([]byte(nil), buf...)

	bs := bitio.NewMemoryFromBytes(buf[4:])
	c := &SpecificConfig{}
	c.SampFreq = bs.GetBE32()
	c.Samples = bs.GetBE32()
	c.Channels = bs.GetBE16()
	fileType := bs.GetByte()
	c.Resolution = fileType >> 5
	_ = bs.GetByte() // floating-point flag, not modeled at header granularity.
	c.FrameLength = bs.GetBE16()
	c.RandomAccess = bs.GetByte()

	b := bitio.NewBits(bs)
	c.RAFlag = uint8(b.Get(2))
	c.ChanConfig = b.Get(1) == 1
	c.ChanSort = b.Get(1) == 1
	c.CRCEnabled = b.Get(1) == 1
	c.AuxDataEnabled = b.Get(1) == 1
	b.Skip(2) // reserved.

	if bs.Err() != nil {
		return nil, bs.Err()
	}

	c.Blob = orig
	return c, nil
}

// clearRAFlagBits zeroes the ra_flag bits of the stored blob once RA unit
// sizes have been parsed out separately.
func clearRAFlagBits(blob []byte) {
	// ra_flag occupies the top 2 bits of the byte Parse reads it from: the
	// byte following the 4-byte magic and the 15 bytes of samp_freq,
	// samples, channels, file_type, floating-point flag, frame_length and
	// random_access (offset 4 + 15 = 19).
	const raFlagByteOffset = 4 + 15
	if len(blob) > raFlagByteOffset {
		blob[raFlagByteOffset] &^= 0xC0
	}
}

// ParseRAUnitSizes reads the ra_unit_size[] table that follows the
// ALSSpecificConfig's original header/trailer payloads and optional CRC,
// present only when ra_flag == 2.
func ParseRAUnitSizes(buf []byte, numUnits int) ([]uint32, int, error) {
	need := numUnits * 4
	if len(buf) < need {
		return nil, 0, errors.New("als: buffer too short for ra_unit_size table")
	}
	bs := bitio.NewMemoryFromBytes(buf)
	sizes := make([]uint32, numUnits)
	for i := range sizes {
		sizes[i] = bs.GetBE32()
	}
	if bs.Err() != nil {
		return nil, 0, bs.Err()
	}
	return sizes, need, nil
}

// FinalizeBlob clears the ra_flag bits on c.Blob after RA unit sizes (if
// any) have been extracted.
func (c *SpecificConfig) FinalizeBlob() { clearRAFlagBits(c.Blob) }

// LastDelta computes the final AU's duration in samples:
// when ra_units exist, samples - (numRAUnits-1)*samplesInFrame; otherwise
// the full sample count.
func (c *SpecificConfig) LastDelta(numRAUnits int, samplesInFrame uint32) uint32 {
	if numRAUnits == 0 {
		return c.Samples
	}
	return c.Samples - uint32(numRAUnits-1)*samplesInFrame
}

// SamplesInFrame returns the per-RA-unit sample count when random access is
// enabled, or zero when the whole stream is one AU.
func (c *SpecificConfig) SamplesInFrame() uint32 {
	if c.RandomAccess == 0 {
		return 0
	}
	return uint32(c.RandomAccess) * (uint32(c.FrameLength) + 1)
}
