package vc1

import "testing"

func TestParseFrameI(t *testing.T) {
	b := &bitBuilder{}
	b.flag(false) // PTYPE prefix 0 -> I
	f, err := parseFrame(b.bytes())
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if f.Type != ptypeI {
		t.Errorf("Type = %v, want ptypeI", f.Type)
	}
	if f.Disposable {
		t.Error("Disposable = true, want false for I picture")
	}
}

func TestParseFrameP(t *testing.T) {
	b := &bitBuilder{}
	b.flag(true)  // 1
	b.flag(false) // 10 -> P
	f, err := parseFrame(b.bytes())
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if f.Type != ptypeP {
		t.Errorf("Type = %v, want ptypeP", f.Type)
	}
	if f.Disposable {
		t.Error("Disposable = true, want false for P picture")
	}
}

func TestParseFrameB(t *testing.T) {
	b := &bitBuilder{}
	b.flag(true) // 1
	b.flag(true) // 11
	b.flag(false) // 110 -> B
	f, err := parseFrame(b.bytes())
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if f.Type != ptypeB {
		t.Errorf("Type = %v, want ptypeB", f.Type)
	}
	if !f.Disposable {
		t.Error("Disposable = false, want true for B picture")
	}
}

func TestParseFrameBI(t *testing.T) {
	b := &bitBuilder{}
	b.flag(true) // 1
	b.flag(true) // 11
	b.flag(true) // 111 -> BI
	f, err := parseFrame(b.bytes())
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if f.Type != ptypeBI {
		t.Errorf("Type = %v, want ptypeBI", f.Type)
	}
	if !f.Disposable {
		t.Error("Disposable = false, want true for BI picture")
	}
}
