package vc1

import (
	"bytes"
	"testing"

	"github.com/ausocean/esimport/importer"
)

func buildSeqHeaderPayload() []byte {
	b := &bitBuilder{}
	b.u(2, 3)
	b.u(3, 0)
	b.u(2, 1)
	b.u(3, 0)
	b.u(5, 0)
	b.flag(false)
	b.u(12, 1279)
	b.u(12, 719)
	b.flag(false)
	b.flag(false)
	b.flag(false)
	b.flag(false)
	b.u(1, 0)
	b.flag(false)
	b.flag(false) // DISPLAY_EXT
	b.flag(false) // HRD_PARAM_FLAG
	return b.bytes()
}

func buildEntryPointPayload(closed bool) []byte {
	b := &bitBuilder{}
	b.flag(false) // BrokenLink
	b.flag(closed)
	return b.bytes()
}

func buildFramePayload(pt ptype) []byte {
	b := &bitBuilder{}
	switch pt {
	case ptypeI:
		b.flag(false)
	case ptypeP:
		b.flag(true)
		b.flag(false)
	case ptypeB:
		b.flag(true)
		b.flag(true)
		b.flag(false)
	case ptypeBI:
		b.flag(true)
		b.flag(true)
		b.flag(true)
	}
	return b.bytes()
}

func buildStream() []byte {
	var out []byte
	out = append(out, buildEBDU(typeSequence, buildSeqHeaderPayload())...)
	out = append(out, buildEBDU(typeEntryPoint, buildEntryPointPayload(true))...)
	out = append(out, buildEBDU(typeFrame, buildFramePayload(ptypeI))...)
	out = append(out, buildEBDU(typeSlice, []byte{0x11, 0x22})...)
	out = append(out, buildEBDU(typeFrame, buildFramePayload(ptypeP))...)
	out = append(out, buildEBDU(typeEndOfSequence, nil)...)
	return out
}

func TestImporterEndToEnd(t *testing.T) {
	src := bytes.NewReader(buildStream())
	imp, err := open(src)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var aus int
	buf := make([]byte, 1<<16)
	for {
		n, au, status, err := imp.GetAccessUnit(0, buf)
		if err != nil {
			t.Fatalf("GetAccessUnit: %v", err)
		}
		if status == importer.StatusEOF {
			break
		}
		if n == 0 {
			t.Fatal("GetAccessUnit: zero-length AU with non-EOF status")
		}
		aus++
		if aus == 1 && au.Props.RandomAccess == 0 {
			t.Error("first AU: RandomAccess = RANone, want RASync for an I picture")
		}
	}
	if aus != 2 {
		t.Fatalf("aus = %d, want 2", aus)
	}

	summary := imp.Summary(0)
	if summary.Width != 1280 || summary.Height != 720 {
		t.Errorf("summary dims = %dx%d, want 1280x720", summary.Width, summary.Height)
	}
	if len(summary.ConfigBlobs) != 1 || len(summary.ConfigBlobs[0]) < 8 {
		t.Fatal("summary: expected one non-trivial dvc1 config blob")
	}
}

func TestImporterOpenRejectsNonEBDU(t *testing.T) {
	src := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
	_, err := open(src)
	if err == nil {
		t.Fatal("open: expected error for a non-EBDU stream")
	}
}

func TestImporterOpenRejectsNonSequenceFirst(t *testing.T) {
	stream := buildEBDU(typeFrame, buildFramePayload(ptypeI))
	src := bytes.NewReader(stream)
	_, err := open(src)
	if err == nil {
		t.Fatal("open: expected error when stream does not begin with a sequence header")
	}
}
