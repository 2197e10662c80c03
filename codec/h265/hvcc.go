/*
NAME
  hvcc.go

DESCRIPTION
  hvcc.go builds the hvcC decoder configuration record from the active
  VPS/SPS/PPS lists, the HEVC counterpart of codec/h264/avcc.go's avcC
  builder.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import "github.com/ausocean/esimport/bitio"

const (
	arrayVPS = 32
	arraySPS = 33
	arrayPPS = 34
)

// BuildHvcC serializes the hvcC configuration box from the given parameter
// sets, per ISO/IEC 14496-15's HEVCDecoderConfigurationRecord description.
// lengthSize is the NAL length field size (in bytes), 1, 2, or 4.
func BuildHvcC(sets *paramSets, lengthSize int) []byte {
	content := bitio.NewMemory()

	var ptl profileTierLevel
	var chromaFormat, bitDepthLuma, bitDepthChroma, maxSubLayersM1 int
	if sps := firstSPS(sets); sps != nil {
		ptl = sps.PTL
		chromaFormat = sps.ChromaFormatIDC
		bitDepthLuma = sps.BitDepthLumaM8
		bitDepthChroma = sps.BitDepthChromaM8
		maxSubLayersM1 = sps.MaxSubLayersM1
	}

	content.PutByte(1) // configurationVersion.

	b := bitio.NewBits(content)
	b.Put(2, uint64(ptl.profileSpace))
	b.Put(1, boolBit(ptl.tierFlag))
	b.Put(5, uint64(ptl.profileIDC))
	b.PutAlign()
	content.PutBE32(ptl.profileCompatibilityFlags)
	content.PutBytes(uint48Bytes(ptl.constraintIndicatorFlags))
	content.PutByte(ptl.levelIDC)

	b2 := bitio.NewBits(content)
	b2.Put(4, 0xf) // reserved, min_spatial_segmentation_idc not tracked.
	b2.Put(12, 0)
	b2.PutAlign()
	b3 := bitio.NewBits(content)
	b3.Put(6, 0x3f) // reserved.
	b3.Put(2, 0)    // parallelismType: unknown/not tracked.
	b3.PutAlign()
	b4 := bitio.NewBits(content)
	b4.Put(6, 0x3f) // reserved.
	b4.Put(2, uint64(chromaFormat))
	b4.PutAlign()
	b5 := bitio.NewBits(content)
	b5.Put(5, 0x1f) // reserved.
	b5.Put(3, uint64(bitDepthLuma))
	b5.PutAlign()
	b6 := bitio.NewBits(content)
	b6.Put(5, 0x1f) // reserved.
	b6.Put(3, uint64(bitDepthChroma))
	b6.PutAlign()

	content.PutBE16(0) // avgFrameRate: not signalled by this module.

	b7 := bitio.NewBits(content)
	b7.Put(2, 0)                        // constantFrameRate: unknown.
	b7.Put(3, uint64(maxSubLayersM1+1)) // numTemporalLayers.
	b7.Put(1, 1)                        // temporalIdNested: assumed, matching the single-sub-layer scope elsewhere in this module.
	b7.Put(2, uint64(lengthSize-1))
	b7.PutAlign()

	arrays := []struct {
		nalType byte
		raws    [][]byte
	}{
		{arrayVPS, rawsOf(sets.vpsList(), func(v *VPS) []byte { return v.raw })},
		{arraySPS, rawsOf(sets.spsList(), func(s *SPS) []byte { return s.raw })},
		{arrayPPS, rawsOf(sets.ppsList(), func(p *PPS) []byte { return p.raw })},
	}
	content.PutByte(byte(len(arrays)))
	for _, a := range arrays {
		bArr := bitio.NewBits(content)
		bArr.Put(1, 1) // array_completeness.
		bArr.Put(1, 0) // reserved.
		bArr.Put(6, uint64(a.nalType))
		bArr.PutAlign()
		content.PutBE16(uint16(len(a.raws)))
		for _, raw := range a.raws {
			content.PutBE16(uint16(len(raw)))
			content.PutBytes(raw)
		}
	}

	payload := content.Bytes()

	bs := bitio.NewMemory()
	bs.PutBE32(uint32(8 + len(payload)))
	bs.PutBytes([]byte("hvcC"))
	bs.PutBytes(payload)
	return bs.Bytes()
}

func firstSPS(sets *paramSets) *SPS {
	var best *SPS
	bestID := -1
	for id, s := range sets.sps {
		if best == nil || id < bestID {
			best, bestID = s, id
		}
	}
	return best
}

func rawsOf[T any](list []*T, raw func(*T) []byte) [][]byte {
	out := make([][]byte, len(list))
	for i, e := range list {
		out[i] = raw(e)
	}
	return out
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func uint48Bytes(v uint64) []byte {
	return []byte{
		byte(v >> 40), byte(v >> 32), byte(v >> 24),
		byte(v >> 16), byte(v >> 8), byte(v),
	}
}
