/*
NAME
  eac3_test.go

DESCRIPTION
  eac3_test.go tests E-AC-3 substream accumulation and dec3 box construction.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ac3

import (
	"testing"
)

type bitWriter struct {
	acc   uint64
	nbits int
	out   []byte
}

func (w *bitWriter) put(width int, v uint64) {
	w.acc = w.acc<<uint(width) | (v & (1<<uint(width) - 1))
	w.nbits += width
	for w.nbits >= 8 {
		w.nbits -= 8
		w.out = append(w.out, byte(w.acc>>uint(w.nbits)))
	}
}

func (w *bitWriter) bytes(frameSizeWords int) []byte {
	for w.nbits > 0 {
		w.put(1, 0)
	}
	for len(w.out) < frameSizeWords*2 {
		w.out = append(w.out, 0)
	}
	return w.out
}

// buildEAC3Frame packs a minimal independent-substream-0 E-AC-3 syncframe
// with the given field values and a frame size of frameWords 16-bit words.
func buildEAC3Frame(strmtyp uint8, substreamid uint8, frameWords int, fscod, numblkscod, acmod uint8, lfeon bool, bsid uint8) []byte {
	w := &bitWriter{}
	w.put(16, uint64(EAC3Syncword))
	w.put(2, uint64(strmtyp))
	w.put(3, uint64(substreamid))
	w.put(11, uint64(frameWords-1))
	w.put(2, uint64(fscod))
	w.put(2, uint64(numblkscod))
	w.put(3, uint64(acmod))
	lfe := uint64(0)
	if lfeon {
		lfe = 1
	}
	w.put(1, lfe)
	w.put(5, uint64(bsid))
	w.put(5, 0) // dialnorm.
	w.put(1, 0) // no compr.
	return w.bytes(frameWords)
}

func TestEAC3ParserSingleSubstream(t *testing.T) {
	// numblkscod=3 means 6 blocks: a single syncframe completes the AU.
	frame := buildEAC3Frame(StrmtypIndependent, 0, 96, 0, 3, 2, false, 16)

	p := NewParser()
	_, size, err := p.Feed(frame)
	if err != nil {
		t.Fatalf("Feed() unexpected error: %v", err)
	}
	if size != 192 {
		t.Errorf("Feed() frameSize = %d, want 192", size)
	}
	if !p.Complete() {
		t.Fatalf("Complete() = false, want true after 6 blocks")
	}

	got := p.Frame()
	if got.NumIndSub != 1 {
		t.Fatalf("NumIndSub = %d, want 1", got.NumIndSub)
	}
	sub := got.Independent[0]
	if sub.Fscod != 0 || sub.Acmod != 2 || sub.LFEOn || sub.Bsid != 16 {
		t.Errorf("Independent[0] = %+v, want {Fscod:0 Acmod:2 LFEOn:false Bsid:16}", sub)
	}
}

func TestEAC3ParserAccumulatesPartialBlocks(t *testing.T) {
	p := NewParser()

	// numblkscod=0 codes 1 block; six syncframes are needed to reach 6.
	first := buildEAC3Frame(StrmtypIndependent, 0, 64, 0, 0, 1, false, 16)
	if _, _, err := p.Feed(first); err != nil {
		t.Fatalf("Feed(first) unexpected error: %v", err)
	}
	if p.Complete() {
		t.Fatalf("Complete() = true after 1 block, want false")
	}

	second := buildEAC3Frame(StrmtypIndependent, 0, 64, 0, 0, 1, false, 16)
	if _, _, err := p.Feed(second); err != nil {
		t.Fatalf("Feed(second) unexpected error: %v", err)
	}
	if p.Complete() {
		t.Fatalf("Complete() = true after 2 blocks, want false")
	}
}

func TestEAC3ParserRejectsDependentWithoutIndependent(t *testing.T) {
	p := NewParser()
	dep := buildEAC3Frame(StrmtypDependent, 1, 64, 0, 3, 2, false, 16)
	if _, _, err := p.Feed(dep); err == nil {
		t.Fatalf("Feed(dependent) error = nil, want error (no preceding independent substream)")
	}
}

func TestBuildDec3(t *testing.T) {
	f := &Frame{
		DataRate:  192,
		NumIndSub: 1,
		Independent: [8]IndependentSubstream{
			{Fscod: 0, Bsid: 16, Bsmod: 0, Acmod: 2, LFEOn: true, NumDepSub: 0},
		},
	}
	got := BuildDec3(f)

	if len(got) < 8 || string(got[4:8]) != "dec3" {
		t.Fatalf("BuildDec3() header = %q, want type \"dec3\"", got[4:8])
	}
	size := uint32(got[0])<<24 | uint32(got[1])<<16 | uint32(got[2])<<8 | uint32(got[3])
	if int(size) != len(got) {
		t.Errorf("BuildDec3() declared size = %d, got %d bytes", size, len(got))
	}
}
