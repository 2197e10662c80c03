/*
NAME
  descriptor.go

DESCRIPTION
  descriptor.go implements the MPEG-4 Systems descriptor tree
  (ES_Descriptor/DecoderConfigDescriptor/DecoderSpecificInfo/
  SLConfigDescriptor, plus ObjectDescriptor/ES_ID_Inc) used to build the
  esds configuration box. Grounded on the descriptor
  tag set and tree shape of original_source/mp4sys.c.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mp4sys implements the MPEG-4 Systems descriptor tree (ISO/IEC
// 14496-1) needed to build an esds configuration box: ES_Descriptor,
// DecoderConfigDescriptor, DecoderSpecificInfo, SLConfigDescriptor, and the
// ObjectDescriptor/ES_ID_Inc pair used by multi-ES object descriptions.
package mp4sys

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
)

// Descriptor tags, per original_source/mp4sys.c's MP4SYS_DESCRIPTOR_TAG_* enum.
const (
	TagObjectDescr          = 0x01
	TagInitialObjectDescr   = 0x02
	TagESDescr              = 0x03
	TagDecoderConfigDescr   = 0x04
	TagDecSpecificInfo      = 0x05
	TagSLConfigDescr        = 0x06
	TagESIDInc              = 0x0E
	TagMP4ODTag             = 0x11
	TagMP4IODTag            = 0x10
)

// StreamType values used by DecoderConfigDescriptor.streamType.
const (
	StreamTypeVisual = 0x04
	StreamTypeAudio  = 0x05
)

// ObjectTypeIndication values relevant to the codecs in scope.
const (
	ObjectTypeMPEG4Audio        = 0x40
	ObjectTypeMPEG2AACLCAudio   = 0x67
	ObjectTypeMPEG2AudioPart3   = 0x69 // MPEG-2 Backwards Compatible Audio (MP3 Layer I-III at ID==0).
	ObjectTypeMPEG1Audio        = 0x6B // MPEG-1 Audio (Layer I-III at ID==1).
)

// header is the common (tag, length) prefix of every descriptor. The
// serialized length excludes the (tag + length-prefix)
// bytes themselves -- it covers only the descriptor's own payload plus any
// nested descriptors' full serialized sizes.
type header struct {
	tag byte
}

// putLength emits a descriptor's length using permitted fixed
// 4-byte, 28-bit encoding: 3 continuation bytes with the MSB set, then a
// final byte with the MSB clear, mirroring ISO/IEC 14496-1's expandable
// class but always spending 4 bytes.
func putLength(bs *bitio.Bs, size uint32) {
	bs.PutByte(0x80 | byte((size>>21)&0x7f))
	bs.PutByte(0x80 | byte((size>>14)&0x7f))
	bs.PutByte(0x80 | byte((size>>7)&0x7f))
	bs.PutByte(byte(size & 0x7f))
}

// getLength decodes a descriptor length in either the minimal 7-bit
// continuation form or the fixed 4-byte form, since producers besides this
// module may emit the minimal form.
func getLength(bs *bitio.Bs) (uint32, error) {
	var size uint32
	for i := 0; i < 4; i++ {
		if bs.Err() != nil {
			return 0, bs.Err()
		}
		b := bs.GetByte()
		size = size<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return size, nil
		}
	}
	return size, nil
}

// DecoderSpecificInfo carries the codec-specific bytes nested inside a
// DecoderConfigDescriptor (e.g. AudioSpecificConfig for AAC).
type DecoderSpecificInfo struct {
	Data []byte
}

func (d *DecoderSpecificInfo) size() uint32 { return uint32(len(d.Data)) }

func (d *DecoderSpecificInfo) encode(bs *bitio.Bs) {
	bs.PutByte(TagDecSpecificInfo)
	putLength(bs, d.size())
	bs.PutBytes(d.Data)
}

func decodeDecSpecificInfo(bs *bitio.Bs, size uint32) (*DecoderSpecificInfo, error) {
	d := &DecoderSpecificInfo{Data: make([]byte, size)}
	for i := range d.Data {
		d.Data[i] = bs.GetByte()
	}
	return d, bs.Err()
}

// DecoderConfigDescriptor describes the decoder type and buffer model for
// an elementary stream, wrapping an optional DecoderSpecificInfo.
type DecoderConfigDescriptor struct {
	ObjectTypeIndication byte
	StreamType           byte
	UpStream             bool
	BufferSizeDB         uint32 // 24 bits.
	MaxBitrate           uint32
	AvgBitrate           uint32
	Info                 *DecoderSpecificInfo
}

func (d *DecoderConfigDescriptor) size() uint32 {
	s := uint32(13)
	if d.Info != nil {
		s += 2 + d.Info.size()
	}
	return s
}

func (d *DecoderConfigDescriptor) encode(bs *bitio.Bs) {
	bs.PutByte(TagDecoderConfigDescr)
	putLength(bs, d.size())
	bs.PutByte(d.ObjectTypeIndication)

	bits := bitio.NewBits(bs)
	bits.Put(6, uint64(d.StreamType))
	up := uint64(0)
	if d.UpStream {
		up = 1
	}
	bits.Put(1, up)
	bits.Put(1, 1) // reserved, always 1.
	bits.PutAlign()

	bs.PutBE24(d.BufferSizeDB)
	bs.PutBE32(d.MaxBitrate)
	bs.PutBE32(d.AvgBitrate)
	if d.Info != nil {
		d.Info.encode(bs)
	}
}

func decodeDecoderConfigDescriptor(bs *bitio.Bs, size uint32) (*DecoderConfigDescriptor, error) {
	d := &DecoderConfigDescriptor{}
	d.ObjectTypeIndication = bs.GetByte()
	b := bs.GetByte()
	d.StreamType = b >> 2
	d.UpStream = b&0x02 != 0
	d.BufferSizeDB = bs.GetBE24()
	d.MaxBitrate = bs.GetBE32()
	d.AvgBitrate = bs.GetBE32()
	consumed := uint32(13)
	if consumed < size {
		if bs.Err() != nil {
			return nil, bs.Err()
		}
		tag := bs.GetByte()
		childSize, err := getLength(bs)
		if err != nil {
			return nil, err
		}
		if tag != TagDecSpecificInfo {
			return nil, errors.Errorf("unexpected descriptor tag 0x%x inside DecoderConfigDescriptor", tag)
		}
		d.Info, err = decodeDecSpecificInfo(bs, childSize)
		if err != nil {
			return nil, err
		}
	}
	return d, bs.Err()
}

// SLConfigDescriptor describes the synchronization layer configuration.
// predefined == 0x02 ("reserved for use in MP4 files") is the only
// predefined value this module ever emits, matching what every MP4 muxer
// produces for non-SL-multiplexed elementary streams.
type SLConfigDescriptor struct {
	Predefined byte
}

func (s *SLConfigDescriptor) size() uint32 { return 1 }

func (s *SLConfigDescriptor) encode(bs *bitio.Bs) {
	bs.PutByte(TagSLConfigDescr)
	putLength(bs, s.size())
	bs.PutByte(s.Predefined)
}

func decodeSLConfigDescriptor(bs *bitio.Bs, size uint32) (*SLConfigDescriptor, error) {
	s := &SLConfigDescriptor{Predefined: bs.GetByte()}
	for i := uint32(1); i < size; i++ {
		bs.GetByte() // Discard any predefined-specific fields we don't model.
	}
	return s, bs.Err()
}

// ESDescriptor is the root descriptor of an esds box.
type ESDescriptor struct {
	ESID                 uint16
	StreamDependenceFlag  bool
	URLFlag               bool
	OCRStreamFlag         bool
	StreamPriority        byte // 5 bits.
	DependsOnESID         uint16
	URL                   string
	OCRESID               uint16
	DecoderConfig         *DecoderConfigDescriptor
	SLConfig              *SLConfigDescriptor
}

func (e *ESDescriptor) size() uint32 {
	s := uint32(3)
	if e.StreamDependenceFlag {
		s += 2
	}
	if e.URLFlag {
		s += 1 + uint32(len(e.URL))
	}
	if e.OCRStreamFlag {
		s += 2
	}
	if e.DecoderConfig != nil {
		s += 2 + e.DecoderConfig.size()
	}
	if e.SLConfig != nil {
		s += 2 + e.SLConfig.size()
	}
	return s
}

// Encode serializes the full ES_Descriptor tree into bs.
func (e *ESDescriptor) Encode(bs *bitio.Bs) {
	bs.PutByte(TagESDescr)
	putLength(bs, e.size())
	bs.PutBE16(e.ESID)

	bits := bitio.NewBits(bs)
	flag := func(b bool) uint64 {
		if b {
			return 1
		}
		return 0
	}
	bits.Put(1, flag(e.StreamDependenceFlag))
	bits.Put(1, flag(e.URLFlag))
	bits.Put(1, flag(e.OCRStreamFlag))
	bits.Put(5, uint64(e.StreamPriority))
	bits.PutAlign()

	if e.StreamDependenceFlag {
		bs.PutBE16(e.DependsOnESID)
	}
	if e.URLFlag {
		bs.PutByte(byte(len(e.URL)))
		bs.PutBytes([]byte(e.URL))
	}
	if e.OCRStreamFlag {
		bs.PutBE16(e.OCRESID)
	}
	if e.DecoderConfig != nil {
		e.DecoderConfig.encode(bs)
	}
	if e.SLConfig != nil {
		e.SLConfig.encode(bs)
	}
}

// DecodeESDescriptor parses an ES_Descriptor (and its children) from bs,
// which must be positioned at the descriptor's tag byte.
func DecodeESDescriptor(bs *bitio.Bs) (*ESDescriptor, error) {
	tag := bs.GetByte()
	if tag != TagESDescr {
		return nil, errors.Errorf("expected ES_DescrTag 0x%x, got 0x%x", TagESDescr, tag)
	}
	size, err := getLength(bs)
	if err != nil {
		return nil, err
	}
	remaining := size
	e := &ESDescriptor{}
	e.ESID = bs.GetBE16()
	remaining -= 2
	b := bs.GetByte()
	remaining--
	e.StreamDependenceFlag = b&0x80 != 0
	e.URLFlag = b&0x40 != 0
	e.OCRStreamFlag = b&0x20 != 0
	e.StreamPriority = b & 0x1f

	if e.StreamDependenceFlag {
		e.DependsOnESID = bs.GetBE16()
		remaining -= 2
	}
	if e.URLFlag {
		n := bs.GetByte()
		remaining--
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = bs.GetByte()
		}
		remaining -= uint32(n)
		e.URL = string(buf)
	}
	if e.OCRStreamFlag {
		e.OCRESID = bs.GetBE16()
		remaining -= 2
	}

	for remaining > 0 {
		if bs.Err() != nil {
			return nil, bs.Err()
		}
		childTag := bs.GetByte()
		childSize, err := getLength(bs)
		if err != nil {
			return nil, err
		}
		switch childTag {
		case TagDecoderConfigDescr:
			e.DecoderConfig, err = decodeDecoderConfigDescriptor(bs, childSize)
		case TagSLConfigDescr:
			e.SLConfig, err = decodeSLConfigDescriptor(bs, childSize)
		default:
			for i := uint32(0); i < childSize; i++ {
				bs.GetByte()
			}
		}
		if err != nil {
			return nil, err
		}
		remaining -= 2 + childSize
	}
	return e, bs.Err()
}

// ESIDInc references an elementary stream by track ID from an ObjectDescriptor.
type ESIDInc struct {
	TrackID uint32
}

func (r *ESIDInc) size() uint32 { return 4 }

func (r *ESIDInc) encode(bs *bitio.Bs) {
	bs.PutByte(TagESIDInc)
	putLength(bs, r.size())
	bs.PutBE32(r.TrackID)
}

// ObjectDescriptor enumerates the elementary streams making up a presentation.
type ObjectDescriptor struct {
	ObjectDescriptorID uint16 // 10 bits.
	Includes           []ESIDInc
}

func (o *ObjectDescriptor) size() uint32 {
	s := uint32(2)
	for _, r := range o.Includes {
		s += 2 + r.size()
	}
	return s
}

// Encode serializes the ObjectDescriptor (MP4_OD_Tag variant).
func (o *ObjectDescriptor) Encode(bs *bitio.Bs) {
	bs.PutByte(TagMP4ODTag)
	putLength(bs, o.size())
	bits := bitio.NewBits(bs)
	bits.Put(10, uint64(o.ObjectDescriptorID))
	bits.Put(1, 0) // URL_Flag.
	bits.Put(5, 0x1f) // reserved.
	bits.PutAlign()
	for i := range o.Includes {
		o.Includes[i].encode(bs)
	}
}
