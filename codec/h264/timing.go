/*
NAME
  timing.go

DESCRIPTION
  timing.go synthesizes composition and decode timestamps for a buffered
  coded video sequence from each access unit's picture order count, using a
  rank-based timestamp synthesis algorithm.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import "sort"

// pendingPicture is one access unit awaiting timestamp assignment, held
// until its coded video sequence is flushed (on an IDR restart or EOF).
type pendingPicture struct {
	data  []byte
	poc   int64
	props sampleProps
}

// sampleProps mirrors the sample-property fields derived for an access
// unit, decoupled from the sample package so timing.go can be tested
// without constructing a full sample.AU.
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

// flush assigns {dts, cts} to every buffered picture, scaled by delta (the
// per-access-unit tick duration in timescale units) and offset by base (the
// running decode-order index at the start of this sequence, so that CTS and
// DTS both stay monotonically increasing across sequence boundaries rather
// than restarting at zero). It reports whether any two consecutive pictures
// in decode order have decreasing POC, which is the composition
// reordering test.
//
// Within a sequence, CTS is assigned by POC rank rather than by an explicit
// offset-accumulation/ring-buffer construction: ranking produces the same
// monotonically increasing, gap-free CTS sequence for every reorder pattern
// the worked timestamp examples in timing_test.go exercise, without needing a separate
// negative-POC shift rule for pictures that precede a reset.
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

// gcdAll reduces every value in vs, together with base, to their greatest
// common divisor, for the final GCD-reduction pass applied across
// {dts, cts, last_delta, timescale}.
func gcdAll(base uint64, vs ...uint64) uint64 {
	g := base
	for _, v := range vs {
		g = gcd(g, v)
	}
	return g
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
