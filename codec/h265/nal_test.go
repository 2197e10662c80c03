package h265

import "testing"

// buildNAL returns one complete Annex B HEVC NAL unit: a start code (4
// bytes if long, else 3) followed by the 2-byte nal_unit_header() and an
// RBSP payload terminated by the rbsp_trailing_bits stop pattern (0x80).
func buildNAL(long bool, nalType, temporalIDPlus1 uint8, payload []byte) []byte {
	var out []byte
	if long {
		out = append(out, 0, 0, 0, 1)
	} else {
		out = append(out, 0, 0, 1)
	}
	out = append(out, (nalType&0x3f)<<1, temporalIDPlus1&0x7)
	out = append(out, payload...)
	out = append(out, 0x80)
	return out
}

func TestStartCodeLen(t *testing.T) {
	if n, ok := startCodeLen([]byte{0, 0, 0, 1, 0x26, 0x01}); !ok || n != 4 {
		t.Fatalf("long start code: n=%d ok=%v, want 4 true", n, ok)
	}
	if n, ok := startCodeLen([]byte{0, 0, 1, 0x26, 0x01}); !ok || n != 3 {
		t.Fatalf("short start code: n=%d ok=%v, want 3 true", n, ok)
	}
	if _, ok := startCodeLen([]byte{1, 2, 3}); ok {
		t.Fatal("garbage prefix should not be recognized as a start code")
	}
}

func TestScanNALLongStartCodeAtBufferStart(t *testing.T) {
	buf := buildNAL(true, typeAUD, 1, []byte{0xf0})
	buf = append(buf, buildNAL(true, typeIDRWRADL, 1, []byte{0x01, 0x02})...)

	n, ok := scanNAL(buf)
	if !ok {
		t.Fatal("expected a complete NAL unit to be found")
	}
	if !n.long {
		t.Fatal("expected the long start code to be detected")
	}
	if n.nalType != typeAUD {
		t.Fatalf("nalType = %d, want %d", n.nalType, typeAUD)
	}

	rest := buf[n.size:]
	n2, ok := scanNAL(rest)
	if !ok {
		t.Fatal("expected the second NAL unit to be found")
	}
	if n2.nalType != typeIDRWRADL {
		t.Fatalf("second NAL type = %d, want %d", n2.nalType, typeIDRWRADL)
	}
}

func TestScanNALShortStartCode(t *testing.T) {
	buf := buildNAL(false, typeTrailR, 2, []byte{0x11, 0x22, 0x33})
	buf = append(buf, buildNAL(false, typePrefixSEI, 2, []byte{0x00})...)

	n, ok := scanNAL(buf)
	if !ok {
		t.Fatal("expected a complete NAL unit to be found")
	}
	if n.long {
		t.Fatal("expected a short start code")
	}
	if n.nalType != typeTrailR {
		t.Fatalf("got type=%d, want %d", n.nalType, typeTrailR)
	}
	if n.temporalID != 1 {
		t.Fatalf("temporalID = %d, want 1", n.temporalID)
	}
}

func TestScanNALIncomplete(t *testing.T) {
	buf := []byte{0, 0, 1, 0x26, 0x01, 0xf0} // no terminating start code yet.
	if _, ok := scanNAL(buf); ok {
		t.Fatal("expected scanNAL to report incomplete for a unit with no following start code")
	}
}

func TestRemoveEmulationPrevention(t *testing.T) {
	in := []byte{0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x02, 0x00, 0x00}
	want := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x02, 0x00, 0x00}
	got := removeEmulationPrevention(in)
	if len(got) != len(want) {
		t.Fatalf("len(got)=%d, want %d (%x)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d]=%x, want %x", i, got[i], want[i])
		}
	}
}

func TestNALClassification(t *testing.T) {
	if !isIDR(typeIDRWRADL) || !isIDR(typeIDRNLP) {
		t.Fatal("expected both IDR types to classify as IDR")
	}
	if !isBLA(typeBLAWLP) || !isBLA(typeBLAWRADL) || !isBLA(typeBLANLP) {
		t.Fatal("expected all three BLA types to classify as BLA")
	}
	if !isCRA(typeCRANUT) {
		t.Fatal("expected CRA_NUT to classify as CRA")
	}
	if !isIRAP(typeBLAWLP) || !isIRAP(typeCRANUT) || isIRAP(typeTrailR) {
		t.Fatal("isIRAP classification wrong")
	}
	if !isVCL(typeTrailN) || isVCL(typeVPS) {
		t.Fatal("isVCL classification wrong")
	}
	if !isSubLayerNonRef(typeTrailN) || isSubLayerNonRef(typeTrailR) {
		t.Fatal("isSubLayerNonRef classification wrong")
	}
	if !forcesNewAU(typeAUD) || !forcesNewAU(typeVPS) || forcesNewAU(typeTrailR) {
		t.Fatal("forcesNewAU classification wrong")
	}
}
