/*
NAME
  timing.go

DESCRIPTION
  timing.go builds each access unit's composition-time rank using the
  "B-pictures displayed in encode order, non-B advanced by the run of
  consecutive B pictures that preceded it" algorithm: upon a non-B picture,
  cts[au_number - num_consecutive_b - 1] = au_number; upon a B picture,
  cts[au_number] = au_number. The resulting per-AU keys are then turned into
  {dts, cts} by rank, the same construction codec/h264/timing.go and
  codec/h265/timing.go use for POC-derived keys.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vc1

import "sort"

// pendingPicture is one access unit awaiting timestamp assignment.
type pendingPicture struct {
	data []byte
	key  uint64 // composition-order key assigned by sequenceTimer.
	b    bool   // whether this picture is a B (or BI) picture.
}

// timedPicture is a pendingPicture with its synthesized timestamps, in
// decode order.
type timedPicture struct {
	pendingPicture
	dts uint64
	cts uint64
}

// sequenceTimer accumulates a stream's pictures in decode order, assigning
// each a composition key via the B-picture delay rule, then (at flush)
// converting those keys to dense {dts, cts} pairs by rank.
type sequenceTimer struct {
	pics []pendingPicture

	keys            []uint64
	consecutiveB    int
	havePendingNonB bool
	pendingNonBIdx  int
}

func (t *sequenceTimer) add(data []byte, isB bool) {
	auNumber := uint64(len(t.pics))
	t.pics = append(t.pics, pendingPicture{data: data, b: isB})
	t.keys = append(t.keys, 0)

	if isB {
		t.keys[auNumber] = auNumber
		t.consecutiveB++
		return
	}

	if t.havePendingNonB {
		resolvedIdx := int(auNumber) - t.consecutiveB - 1
		t.keys[resolvedIdx] = auNumber
	}
	t.pendingNonBIdx = int(auNumber)
	t.havePendingNonB = true
	t.consecutiveB = 0
}

func (t *sequenceTimer) empty() bool { return len(t.pics) == 0 }

// flush resolves any pending non-B picture's key against a virtual closing
// event at the end of the stream, assigns {dts, cts} by key rank scaled by
// delta and offset by base, and reports whether composition reordering was
// observed (any two consecutive pictures in decode order have a decreasing
// key).
func (t *sequenceTimer) flush(base, delta uint64) (out []timedPicture, reordered bool) {
	n := len(t.pics)
	if n == 0 {
		return nil, false
	}
	if t.havePendingNonB {
		t.keys[t.pendingNonBIdx] = uint64(n)
	}

	for i := 1; i < n; i++ {
		if t.keys[i] < t.keys[i-1] {
			reordered = true
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t.keys[order[a]] < t.keys[order[b]]
	})
	rank := make([]int, n)
	for compositionIndex, decodeIndex := range order {
		rank[decodeIndex] = compositionIndex
	}

	out = make([]timedPicture, n)
	for i, p := range t.pics {
		p.key = t.keys[i]
		out[i] = timedPicture{
			pendingPicture: p,
			dts:            (base + uint64(i)) * delta,
			cts:            (base + uint64(rank[i])) * delta,
		}
	}

	t.pics = nil
	t.keys = nil
	t.havePendingNonB = false
	t.consecutiveB = 0
	return out, reordered
}
