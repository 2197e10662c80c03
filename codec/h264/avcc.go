/*
NAME
  avcc.go

DESCRIPTION
  avcc.go builds the avcC decoder configuration record from the active
  parameter-set lists.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import (
	"github.com/ausocean/esimport/bitio"
	"github.com/ausocean/esimport/codec/h264/h264dec"
)

// highProfiles lists the AVCProfileIndication values for which avcC carries
// the chroma/bit-depth extension fields and the SPS extension list, per
// ISO/IEC 14496-15's avcC syntax.
var highProfiles = map[uint8]bool{
	100: true, 110: true, 122: true, 144: true,
}

// BuildAvcC serializes the avcC configuration box from the given parameter
// sets. lengthSize is the NAL length field size (in bytes) that will prefix
// each sample's NAL units, per ISO/IEC 14496-15's AVCDecoderConfigurationRecord
// description; it is 1, 2, or 4.
func BuildAvcC(sets *paramSets, lengthSize int) []byte {
	content := bitio.NewMemory()

	firstSPS := sets.firstSPS()
	var profile, compat, level uint8
	var chromaFormat, bitDepthLuma, bitDepthChroma uint64
	if firstSPS != nil {
		profile = firstSPS.sps.Profile
		level = firstSPS.sps.LevelIDC
		compat = profileCompatibilityByte(firstSPS.sps)
		chromaFormat = firstSPS.sps.ChromaFormatIDC
		bitDepthLuma = firstSPS.sps.BitDepthLumaMinus8
		bitDepthChroma = firstSPS.sps.BitDepthChromaMinus8
	}

	content.PutByte(1) // configurationVersion.
	content.PutByte(profile)
	content.PutByte(compat)
	content.PutByte(level)

	b := bitio.NewBits(content)
	b.Put(6, 0x3f) // reserved.
	b.Put(2, uint64(lengthSize-1))
	b.Put(3, 0x7) // reserved.

	spsList := sets.sortedSPS()
	b.Put(5, uint64(len(spsList)))
	b.PutAlign()
	for _, e := range spsList {
		content.PutBE16(uint16(len(e.raw)))
		content.PutBytes(e.raw)
	}

	ppsList := sets.sortedPPS()
	content.PutByte(byte(len(ppsList)))
	for _, e := range ppsList {
		content.PutBE16(uint16(len(e.raw)))
		content.PutBytes(e.raw)
	}

	if highProfiles[profile] {
		b.Put(6, 0x3f) // reserved.
		b.Put(2, chromaFormat)
		b.Put(5, 0x1f) // reserved.
		b.Put(3, bitDepthLuma)
		b.Put(5, 0x1f) // reserved.
		b.Put(3, bitDepthChroma)
		b.PutAlign()
		content.PutByte(0) // numOfSequenceParameterSetExt: not tracked separately.
	}

	payload := content.Bytes()

	bs := bitio.NewMemory()
	bs.PutBE32(uint32(8 + len(payload)))
	bs.PutBytes([]byte("avcC"))
	bs.PutBytes(payload)
	return bs.Bytes()
}

// profileCompatibilityByte reconstructs the profile_compatibility byte from
// the constraint flags the SPS parser decoded individually.
func profileCompatibilityByte(sps *h264dec.SPS) uint8 {
	var v uint8
	if sps.Constraint0 {
		v |= 1 << 7
	}
	if sps.Constraint1 {
		v |= 1 << 6
	}
	if sps.Constraint2 {
		v |= 1 << 5
	}
	if sps.Constraint3 {
		v |= 1 << 4
	}
	if sps.Constraint4 {
		v |= 1 << 3
	}
	if sps.Constraint5 {
		v |= 1 << 2
	}
	return v
}
