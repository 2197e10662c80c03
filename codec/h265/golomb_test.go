package h265

import "testing"

func TestEgolombUE(t *testing.T) {
	// Exp-Golomb codes for 0,1,2,3,4 per Table 9-1, concatenated:
	// 1 010 011 00100 00101 -> 10100110 01000010 1(0000000)
	raw := []byte{0xA6, 0x42, 0x80}
	g := newEgolomb(raw)
	want := []uint64{0, 1, 2, 3, 4}
	for i, w := range want {
		got := g.ue()
		if g.err != nil {
			t.Fatalf("unexpected error at index %d: %v", i, g.err)
		}
		if got != w {
			t.Fatalf("ue()[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestEgolombSE(t *testing.T) {
	// se(v) codeNum mapping per Table 9-3: 0->0, 1->1, 2->-1, 3->2, 4->-2,
	// using the same codeNum bitstream as TestEgolombUE.
	raw := []byte{0xA6, 0x42, 0x80}
	g := newEgolomb(raw)
	want := []int{0, 1, -1, 2, -2}
	for i, w := range want {
		got := g.se()
		if g.err != nil {
			t.Fatalf("unexpected error at index %d: %v", i, g.err)
		}
		if got != w {
			t.Fatalf("se()[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestEgolombU(t *testing.T) {
	g := newEgolomb([]byte{0xf0})
	if v := g.u(4); v != 0xf {
		t.Fatalf("u(4) = %x, want 0xf", v)
	}
	if v := g.u(4); v != 0x0 {
		t.Fatalf("u(4) = %x, want 0x0", v)
	}
}

func TestEgolombFlag(t *testing.T) {
	g := newEgolomb([]byte{0x80})
	if !g.flag() {
		t.Fatal("expected first bit to be set")
	}
	if g.flag() {
		t.Fatal("expected second bit to be clear")
	}
}
