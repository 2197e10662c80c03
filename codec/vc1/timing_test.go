package vc1

import "testing"

// TestSequenceTimerIPBBP traces the canonical decode order I,P,B,B,P (an
// IPBB GOP with one bidirectional pair deferred past the following P
// picture) and checks the resulting keys and rank-derived cts order
// reproduce the expected display order I,B,B,P,P.
func TestSequenceTimerIPBBP(t *testing.T) {
	var tm sequenceTimer
	order := []bool{false, false, true, true, false} // I, P, B, B, P
	for i, isB := range order {
		tm.add([]byte{byte(i)}, isB)
	}

	out, reordered := tm.flush(0, 1)
	if !reordered {
		t.Fatal("flush: reordered = false, want true")
	}
	if len(out) != 5 {
		t.Fatalf("flush: len(out) = %d, want 5", len(out))
	}

	// The final P's key is resolved by flush, so keys are checked after it.
	wantKeys := []uint64{1, 4, 2, 3, 5}
	for i, k := range wantKeys {
		if out[i].key != k {
			t.Fatalf("out[%d].key = %d, want %d", i, out[i].key, k)
		}
	}

	wantCTS := []uint64{0, 3, 1, 2, 4}
	for i, p := range out {
		if p.dts != uint64(i) {
			t.Errorf("out[%d].dts = %d, want %d", i, p.dts, i)
		}
		if p.cts != wantCTS[i] {
			t.Errorf("out[%d].cts = %d, want %d", i, p.cts, wantCTS[i])
		}
	}

	// Display order by cts should be I,B,B,P,P.
	wantDisplay := []bool{false, true, true, false, false}
	byCTS := make([]timedPicture, len(out))
	copy(byCTS, out)
	for i := range byCTS {
		for j := i + 1; j < len(byCTS); j++ {
			if byCTS[j].cts < byCTS[i].cts {
				byCTS[i], byCTS[j] = byCTS[j], byCTS[i]
			}
		}
	}
	for i, p := range byCTS {
		if p.b != wantDisplay[i] {
			t.Errorf("display order[%d].b = %v, want %v", i, p.b, wantDisplay[i])
		}
	}
}

func TestSequenceTimerNoReorderAllI(t *testing.T) {
	var tm sequenceTimer
	tm.add([]byte{0}, false)
	tm.add([]byte{1}, false)
	tm.add([]byte{2}, false)

	out, reordered := tm.flush(0, 1)
	if reordered {
		t.Error("flush: reordered = true, want false for an all-I/P sequence")
	}
	for i, p := range out {
		if p.dts != p.cts {
			t.Errorf("out[%d]: dts=%d cts=%d, want equal", i, p.dts, p.cts)
		}
	}
}

func TestSequenceTimerEmpty(t *testing.T) {
	var tm sequenceTimer
	if !tm.empty() {
		t.Fatal("empty() = false on a fresh timer")
	}
	out, reordered := tm.flush(0, 1)
	if out != nil || reordered {
		t.Fatalf("flush on empty timer: got (%v, %v), want (nil, false)", out, reordered)
	}
}
