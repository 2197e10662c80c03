/*
NAME
  timing.go

DESCRIPTION
  timing.go synthesizes composition and decode timestamps for a buffered
  coded video sequence from each access unit's picture order count, the same
  rank-based timestamp synthesis algorithm codec/h264/timing.go uses.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import "sort"

// pendingPicture is one access unit awaiting timestamp assignment, held
// until its coded video sequence is flushed (on an IRAP restart or EOF).
type pendingPicture struct {
	data  []byte
	poc   int64
	props sampleProps
}

// sampleProps mirrors the sample-property fields derived for an access
// unit, decoupled from the sample package so timing.go can be tested
// without constructing a full sample.AU. disposable covers both RASL/RADL
// leading pictures and sub-layer non-reference trailing pictures, neither
// of which any later picture can reference.
type sampleProps struct {
	randomAccess bool
	independent  bool
	disposable   bool
	leading      bool
}

// timedPicture is a pendingPicture with its synthesized timestamps, in
// decode order.
type timedPicture struct {
	pendingPicture
	dts uint64
	cts uint64
}

// sequenceTimer accumulates one coded video sequence's pictures in decode
// order and assigns composition times by POC rank once the sequence is
// known to be complete.
type sequenceTimer struct {
	pics []pendingPicture
}

func (t *sequenceTimer) add(p pendingPicture) {
	t.pics = append(t.pics, p)
}

func (t *sequenceTimer) empty() bool { return len(t.pics) == 0 }

// flush assigns {dts, cts} to every buffered picture, scaled by delta and
// offset by base, exactly as codec/h264/timing.go's flush does, and reports
// whether any two consecutive pictures in decode order have decreasing POC.
func (t *sequenceTimer) flush(base, delta uint64) (out []timedPicture, reordered bool) {
	n := len(t.pics)
	if n == 0 {
		return nil, false
	}

	for i := 0; i+1 < n; i++ {
		if t.pics[i+1].poc < t.pics[i].poc {
			reordered = true
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t.pics[order[a]].poc < t.pics[order[b]].poc
	})
	rank := make([]int, n)
	for compositionIndex, decodeIndex := range order {
		rank[decodeIndex] = compositionIndex
	}

	out = make([]timedPicture, n)
	for i, p := range t.pics {
		out[i] = timedPicture{
			pendingPicture: p,
			dts:            (base + uint64(i)) * delta,
			cts:            (base + uint64(rank[i])) * delta,
		}
	}

	t.pics = nil
	return out, reordered
}
