/*
NAME
  dvc1.go

DESCRIPTION
  dvc1.go serializes the dvc1 configuration box from the most recently
  observed sequence header, entry-point header, and the bframe_present/
  slice_present flags accumulated during the scan, the VC-1 counterpart of
  codec/h264/avcc.go's avcC builder and codec/h265/hvcc.go's hvcC builder.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vc1

import "github.com/ausocean/esimport/bitio"

// BuildDvc1 serializes the dvc1 configuration box.
func BuildDvc1(seq *SequenceHeader, ep *EntryPoint, bframePresent, slicePresent bool) []byte {
	content := bitio.NewMemory()

	content.PutByte(1) // configurationVersion.

	var profile, level uint8
	var horiz, vert uint16
	var aspectW, aspectH uint8
	var closedEntryPoint, brokenLink bool
	if seq != nil {
		profile = seq.Profile
		level = seq.Level
		horiz = seq.DispHorizSize
		vert = seq.DispVertSize
		aspectW = seq.AspectWidth
		aspectH = seq.AspectHeight
	}
	if ep != nil {
		closedEntryPoint = ep.ClosedEntryPoint
		brokenLink = ep.BrokenLink
	}

	content.PutByte(profile)
	content.PutByte(level)
	content.PutBE16(horiz)
	content.PutBE16(vert)
	content.PutByte(aspectW)
	content.PutByte(aspectH)

	b := bitio.NewBits(content)
	b.Put(1, boolBit(closedEntryPoint))
	b.Put(1, boolBit(brokenLink))
	b.Put(1, boolBit(bframePresent))
	b.Put(1, boolBit(slicePresent))
	b.Put(4, 0) // reserved.
	b.PutAlign()

	var seqRaw, epRaw []byte
	if seq != nil {
		seqRaw = seq.raw
	}
	if ep != nil {
		epRaw = ep.raw
	}
	content.PutBE16(uint16(len(seqRaw)))
	content.PutBytes(seqRaw)
	content.PutBE16(uint16(len(epRaw)))
	content.PutBytes(epRaw)

	payload := content.Bytes()

	bs := bitio.NewMemory()
	bs.PutBE32(uint32(8 + len(payload)))
	bs.PutBytes([]byte("dvc1"))
	bs.PutBytes(payload)
	return bs.Bytes()
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
