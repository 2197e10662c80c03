package h265

import "testing"

func TestNoRaslOutputFlag(t *testing.T) {
	p := newPOCState()
	if !p.noRaslOutputFlag(typeIDRWRADL) {
		t.Fatal("IDR should always have NoRaslOutputFlag set")
	}
	if !p.noRaslOutputFlag(typeBLAWLP) {
		t.Fatal("BLA should always have NoRaslOutputFlag set")
	}
	if !p.noRaslOutputFlag(typeCRANUT) {
		t.Fatal("the first CRA in a bitstream should have NoRaslOutputFlag set")
	}

	p.update(typeCRANUT, 0, 0, 0)
	if p.noRaslOutputFlag(typeCRANUT) {
		t.Fatal("a later CRA not following EOS/EOB should not have NoRaslOutputFlag set")
	}

	p.update(typeEOS, 0, 0, 0)
	if !p.noRaslOutputFlag(typeCRANUT) {
		t.Fatal("a CRA immediately following an EOS NAL should have NoRaslOutputFlag set")
	}
}

func TestPOCDeriveIDRIsZero(t *testing.T) {
	sps := &SPS{Log2MaxPOCLsbM4: 0}
	p := newPOCState()
	poc, err := p.derive(sps, typeIDRWRADL, &sliceHeader{})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if poc != 0 {
		t.Fatalf("IDR POC = %d, want 0", poc)
	}
}

func TestPOCDeriveMonotonic(t *testing.T) {
	sps := &SPS{Log2MaxPOCLsbM4: 4} // maxLsb = 256.
	p := newPOCState()

	poc0, err := p.derive(sps, typeIDRWRADL, &sliceHeader{picOrderCntLsb: 0})
	if err != nil {
		t.Fatalf("derive poc0: %v", err)
	}
	p.update(typeIDRWRADL, 0, pocMSB(poc0, 0), 0)

	poc1, err := p.derive(sps, typeTrailR, &sliceHeader{picOrderCntLsb: 1})
	if err != nil {
		t.Fatalf("derive poc1: %v", err)
	}
	if poc1 != 1 {
		t.Fatalf("poc1 = %d, want 1", poc1)
	}
	p.update(typeTrailR, 0, pocMSB(poc1, 1), 1)

	poc2, err := p.derive(sps, typeTrailR, &sliceHeader{picOrderCntLsb: 2})
	if err != nil {
		t.Fatalf("derive poc2: %v", err)
	}
	if poc2 != 2 {
		t.Fatalf("poc2 = %d, want 2", poc2)
	}
}

func TestPOCDeriveWraparound(t *testing.T) {
	sps := &SPS{Log2MaxPOCLsbM4: 0} // maxLsb = 16, so maxLsb/2 = 8.
	p := newPOCState()
	p.prevTid0 = tid0Pic{picOrderCntMsb: 0, picOrderCntLsb: 15}
	p.havePrevTid0 = true

	// lsb wraps from 15 to 0: prevLsb-lsb (15) >= maxLsb/2, so msb advances
	// by maxLsb and POC keeps increasing across the wrap.
	poc, err := p.derive(sps, typeTrailR, &sliceHeader{picOrderCntLsb: 0})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if poc != 16 {
		t.Fatalf("poc = %d, want 16", poc)
	}
}
