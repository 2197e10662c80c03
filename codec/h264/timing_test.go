package h264

import "testing"

// TestSequenceTimerIDRTwoP reproduces the "H.264 IDR + two P" worked
// example: three pictures with temporal POCs 0, 2, 4 (type 2, no B-frames)
// decode in POC order, so CTS must equal DTS for every picture.
func TestSequenceTimerIDRTwoP(t *testing.T) {
	var seq sequenceTimer
	seq.add(pendingPicture{poc: 0})
	seq.add(pendingPicture{poc: 2})
	seq.add(pendingPicture{poc: 4})

	out, reordered := seq.flush(0, 1)
	if reordered {
		t.Fatal("expected no composition reordering")
	}
	want := []struct{ dts, cts uint64 }{{0, 0}, {1, 1}, {2, 2}}
	if len(out) != len(want) {
		t.Fatalf("got %d pictures, want %d", len(out), len(want))
	}
	for i, w := range want {
		if out[i].dts != w.dts || out[i].cts != w.cts {
			t.Errorf("picture %d: got {dts=%d cts=%d}, want {dts=%d cts=%d}", i, out[i].dts, out[i].cts, w.dts, w.cts)
		}
	}
}

// TestSequenceTimerOneBReorder reproduces the "H.264 with one B reorder"
// worked example: decode order POCs {0, 4, 2, 6} for {IDR, P, B, B} must
// produce CTS {0, 2, 1, 3}, DTS {0, 1, 2, 3}, and composition_reordering
// detected.
func TestSequenceTimerOneBReorder(t *testing.T) {
	var seq sequenceTimer
	for _, poc := range []int64{0, 4, 2, 6} {
		seq.add(pendingPicture{poc: poc})
	}

	out, reordered := seq.flush(0, 1)
	if !reordered {
		t.Fatal("expected composition reordering to be detected")
	}
	wantCTS := []uint64{0, 2, 1, 3}
	wantDTS := []uint64{0, 1, 2, 3}
	if len(out) != 4 {
		t.Fatalf("got %d pictures, want 4", len(out))
	}
	for i := range out {
		if out[i].cts != wantCTS[i] {
			t.Errorf("picture %d: cts = %d, want %d", i, out[i].cts, wantCTS[i])
		}
		if out[i].dts != wantDTS[i] {
			t.Errorf("picture %d: dts = %d, want %d", i, out[i].dts, wantDTS[i])
		}
	}
}

// TestSequenceTimerCrossSequenceMonotonic verifies that a second sequence's
// timestamps continue from the first sequence's ending index rather than
// restarting at zero.
func TestSequenceTimerCrossSequenceMonotonic(t *testing.T) {
	var first sequenceTimer
	first.add(pendingPicture{poc: 0})
	first.add(pendingPicture{poc: 2})
	out1, _ := first.flush(0, 10)
	if out1[len(out1)-1].dts != 10 {
		t.Fatalf("first sequence's last dts = %d, want 10", out1[len(out1)-1].dts)
	}

	var second sequenceTimer
	second.add(pendingPicture{poc: 0})
	second.add(pendingPicture{poc: 2})
	out2, _ := second.flush(uint64(len(out1)), 10)
	if out2[0].dts != 20 {
		t.Fatalf("second sequence's first dts = %d, want 20 (continuing from the first)", out2[0].dts)
	}
}

func TestGCDAll(t *testing.T) {
	got := gcdAll(90000, 3000, 6000, 9000)
	if got != 3000 {
		t.Fatalf("gcdAll = %d, want 3000", got)
	}
}
