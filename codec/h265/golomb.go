/*
NAME
  golomb.go

DESCRIPTION
  golomb.go provides a minimal Exp-Golomb bit reader layered over an
  h264dec bit reader, using the same cache/shift technique as the egolomb
  type in codec/h264/sliceheader.go. It is a separate copy of that type;
  the two header-only parsers do not share the code.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/ausocean/esimport/codec/h264/h264dec/bits"
)

// egolomb is a minimal Exp-Golomb bit reader.
type egolomb struct {
	br  *bits.BitReader
	err error
}

func newEgolomb(rbsp []byte) *egolomb {
	return &egolomb{br: bits.NewBitReader(bytes.NewReader(rbsp))}
}

func (e *egolomb) u(n int) uint64 {
	if e.err != nil || n == 0 {
		return 0
	}
	v, err := e.br.ReadBits(n)
	if err != nil {
		e.err = err
	}
	return v
}

func (e *egolomb) flag() bool { return e.u(1) == 1 }

// ue reads an unsigned Exp-Golomb-coded value per section 9.2.
func (e *egolomb) ue() uint64 {
	if e.err != nil {
		return 0
	}
	leadingZeros := 0
	for {
		b := e.u(1)
		if e.err != nil {
			return 0
		}
		if b == 1 {
			break
		}
		leadingZeros++
		if leadingZeros > 32 {
			e.err = errors.New("h265: exp-golomb code too long")
			return 0
		}
	}
	if leadingZeros == 0 {
		return 0
	}
	suffix := e.u(leadingZeros)
	return (1 << uint(leadingZeros)) - 1 + suffix
}

// se reads a signed Exp-Golomb-coded value per section 9.2.
func (e *egolomb) se() int {
	v := e.ue()
	if v%2 == 0 {
		return -int(v / 2)
	}
	return int(v+1) / 2
}
