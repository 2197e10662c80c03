/*
NAME
  esds.go

DESCRIPTION
  esds.go assembles the esds configuration box (ISO/IEC 14496-14) from an
  ES_Descriptor tree, and parses one back.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mp4sys

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
)

// BuildESDS serializes esd as a full-box esds payload: 4-byte size, 4-char
// type "esds", 4 bytes of version+flags (always zero), then the
// ES_Descriptor tree.
func BuildESDS(esd *ESDescriptor) []byte {
	body := bitio.NewMemory()
	body.PutBE32(0) // version + flags.
	esd.Encode(body)
	payload := body.Bytes()

	out := bitio.NewMemory()
	out.PutBE32(uint32(8 + len(payload)))
	out.PutBytes([]byte("esds"))
	out.PutBytes(payload)
	return out.Bytes()
}

// ParseESDS parses a full esds box payload (including its size/type header)
// and returns the contained ES_Descriptor.
func ParseESDS(box []byte) (*ESDescriptor, error) {
	if len(box) < 12 || string(box[4:8]) != "esds" {
		return nil, errors.New("not an esds box")
	}
	bs := bitio.NewMemoryFromBytes(box[12:])
	_ = bs.GetBE32() // version + flags.
	return DecodeESDescriptor(bs)
}
