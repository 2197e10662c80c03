/*
NAME
  eac3.go

DESCRIPTION
  eac3.go parses Enhanced AC-3 (E-AC-3) independent/dependent substreams and
  accumulates them into access units, building the dec3 configuration box.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ac3

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/bitio"
)

// EAC3Syncword is shared with AC-3: E-AC-3 syncframes begin with the same
// 16-bit marker, disambiguated by bsid >= 16 once parsed.
const EAC3Syncword = Syncword

// Stream types (strmtyp).
const (
	StrmtypIndependent  = 0
	StrmtypDependent    = 1
	StrmtypIndependent2 = 2 // A second independent substream sharing the AC-3 bitstream.
)

var numBlksTable = [4]uint8{1, 2, 3, 6}

var eac3SampleRates = [4]uint32{48000, 44100, 32000, 0}
var eac3SampleRates2 = [3]uint32{24000, 22050, 16000} // fscod2, used when fscod == 3.

// IndependentSubstream is the per-substream record E-AC-3 carries for
// each independent substream block.
type IndependentSubstream struct {
	Fscod     uint8
	Fscod2    uint8
	Acmod     uint8
	LFEOn     bool
	Bsid      uint8
	Bsmod     uint8
	NumDepSub uint8
	ChanLoc   uint16
}

// Frame is the accumulated E-AC-3 parameter record for one access unit,
// spanning the "independent substream 0" plus all associated dependent and
// additional independent substreams.
type Frame struct {
	DataRate  uint16
	NumIndSub int
	Independent [8]IndependentSubstream
}

// Parser accumulates E-AC-3 syncframes into access units: one AU equals six
// audio blocks of independent substream 0 plus all associated dependent
// substreams.
type Parser struct {
	blockCount int // Accumulated audio blocks of independent substream 0.
	frame      Frame
	started    bool
	slotOf     map[uint8]int // substreamid -> index into frame.Independent.
	lastIndIdx int           // index of the most recently seen independent substream, for attaching dependents.
}

// NewParser returns a fresh E-AC-3 accumulator.
func NewParser() *Parser { return &Parser{} }

// substreamHeader is the minimal decode of one E-AC-3 syncframe's leading
// fields, used to classify it before full field extraction.
type substreamHeader struct {
	strmtyp     uint8
	substreamid uint8
	frmsiz      uint16 // words - 1.
	fscod       uint8
	fscod2      uint8
	numblkscod  uint8
	acmod       uint8
	lfeon       bool
	bsid        uint8
	bsmod       uint8
}

func parseSubstreamHeader(buf []byte) (*substreamHeader, int, error) {
	if len(buf) < 6 {
		return nil, 0, errors.New("eac3: buffer too short")
	}
	bs := bitio.NewMemoryFromBytes(buf)
	if bs.GetBE16() != EAC3Syncword {
		return nil, 0, errors.New("eac3: bad syncword")
	}
	b := bitio.NewBits(bs)
	h := &substreamHeader{}
	h.strmtyp = uint8(b.Get(2))
	if h.strmtyp == 3 {
		return nil, 0, errors.New("eac3: strmtyp 3 is reserved/unsupported")
	}
	h.substreamid = uint8(b.Get(3))
	h.frmsiz = uint16(b.Get(11))
	h.fscod = uint8(b.Get(2))
	if h.fscod == 3 {
		h.fscod2 = uint8(b.Get(2))
		h.numblkscod = 3 // fscod==3 always codes 6 blocks (numblkscod value 3).
	} else {
		h.numblkscod = uint8(b.Get(2))
	}
	h.acmod = uint8(b.Get(3))
	h.lfeon = b.Get(1) == 1
	h.bsid = uint8(b.Get(5))
	b.Skip(5) // dialnorm.
	if b.Get(1) == 1 {
		b.Skip(8) // compr.
	}
	if h.acmod == 0 {
		b.Skip(5) // dialnorm2.
		if b.Get(1) == 1 {
			b.Skip(8) // compr2.
		}
	}
	if bs.Err() != nil {
		return nil, 0, bs.Err()
	}
	frameSize := (int(h.frmsiz) + 1) * 2
	return h, frameSize, nil
}

// chanLoc derives the dec3 chan_loc field from a dependent substream's
// chanmap formula.
func chanLoc(chanmap uint16) uint16 {
	return uint16(((chanmap & 0x7F8) >> 2) | ((chanmap & 0x2) >> 1))
}

// Feed processes one E-AC-3 syncframe and returns its size in bytes. The
// complete result is always false; whether six audio blocks of independent
// substream 0 have accumulated is reported by Complete().
func (p *Parser) Feed(buf []byte) (complete bool, frameSize int, err error) {
	h, size, err := parseSubstreamHeader(buf)
	if err != nil {
		return false, 0, err
	}

	if p.slotOf == nil {
		p.slotOf = make(map[uint8]int)
	}

	switch h.strmtyp {
	case StrmtypIndependent, StrmtypIndependent2:
		if h.substreamid == 0 {
			if p.started && p.blockCount >= 6 {
				// New AU begins; caller should have already drained the
				// previous one via Frame()/Reset().
				p.Reset()
			}
			p.started = true
			blocks := numBlksTable[h.numblkscod]
			p.blockCount += int(blocks)
			if p.blockCount > 6 {
				return false, 0, errors.New("eac3: accumulated more than 6 blocks for independent substream 0")
			}
		}
		idx, seen := p.slotOf[h.substreamid]
		if !seen {
			idx = p.frame.NumIndSub
			if idx >= len(p.frame.Independent) {
				return false, 0, errors.New("eac3: too many independent substreams")
			}
			p.slotOf[h.substreamid] = idx
			p.frame.NumIndSub++
		}
		p.frame.Independent[idx] = IndependentSubstream{
			Fscod: h.fscod, Fscod2: h.fscod2, Acmod: h.acmod, LFEOn: h.lfeon,
			Bsid: h.bsid, Bsmod: h.bsmod, NumDepSub: p.frame.Independent[idx].NumDepSub,
		}
		p.lastIndIdx = idx
		p.frame.DataRate = estimateDataRate(size, h.fscod)
	case StrmtypDependent:
		if p.frame.NumIndSub == 0 {
			return false, 0, errors.New("eac3: dependent substream with no preceding independent substream")
		}
		last := &p.frame.Independent[p.lastIndIdx]
		last.NumDepSub++
	}

	// Completion is signalled to the caller once it sees the *next*
	// independent-substream-0 syncframe; here we just report the frame size
	// consumed so it can keep scanning.
	return false, size, nil
}

// Frame returns the accumulated parameter record for the AU in progress.
func (p *Parser) Frame() Frame { return p.frame }

// Complete reports whether six audio blocks of independent substream 0 have
// been accumulated, i.e. the AU is ready to be closed once the next
// independent-substream-0 syncframe arrives.
func (p *Parser) Complete() bool { return p.blockCount >= 6 }

// Reset clears accumulator state for the next access unit.
func (p *Parser) Reset() {
	p.blockCount = 0
	p.frame = Frame{}
	p.started = false
	p.slotOf = nil
	p.lastIndIdx = 0
}

// estimateDataRate approximates the dec3 data_rate field (kbps, 13 bits)
// from one substream's observed frame size, since E-AC-3 syncframes do not
// carry an explicit bit-rate field the way AC-3's frmsizecod does.
func estimateDataRate(frameSizeBytes int, fscod uint8) uint16 {
	rate := eac3SampleRates[fscod]
	if rate == 0 {
		rate = 48000
	}
	bits := uint64(frameSizeBytes) * 8
	kbps := bits * uint64(rate) / 1536 / 1000
	if kbps > 0x1FFF {
		kbps = 0x1FFF
	}
	return uint16(kbps)
}

// BuildDec3 serializes the dec3 configuration box.
func BuildDec3(f *Frame) []byte {
	body := bitio.NewMemory()
	b := bitio.NewBits(body)
	b.Put(13, uint64(f.DataRate))
	b.Put(3, uint64(f.NumIndSub-1))
	for i := 0; i < f.NumIndSub; i++ {
		sub := f.Independent[i]
		b.Put(2, uint64(sub.Fscod))
		b.Put(5, uint64(sub.Bsid))
		b.Put(5, uint64(sub.Bsmod))
		b.Put(3, uint64(sub.Acmod))
		b.Put(1, uint64(b2u8(sub.LFEOn)))
		b.Put(3, 0) // reserved.
		b.Put(4, uint64(sub.NumDepSub))
		if sub.NumDepSub > 0 {
			b.Put(9, uint64(sub.ChanLoc))
		} else {
			b.Put(1, 0) // reserved.
		}
	}
	b.PutAlign()
	payload := body.Bytes()

	out := bitio.NewMemory()
	out.PutBE32(uint32(8 + len(payload)))
	out.PutBytes([]byte("dec3"))
	out.PutBytes(payload)
	return out.Bytes()
}
