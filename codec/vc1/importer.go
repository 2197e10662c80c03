/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the VC-1 Advanced Profile EBDU probe with package
  importer and implements importer.Importer: EBDU scanning, access-unit
  assembly via the delimit-table boundary rule, B-picture-aware timestamp
  synthesis, and dvc1 construction, mirroring codec/h264/importer.go's and
  codec/h265/importer.go's structure.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vc1

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

func init() {
	importer.Register("vc1", open)
}

const (
	defaultTimescale = 30000
	defaultDelta     = 1001
)

// codecImporter drives the VC-1 EBDU scan, AU assembly, and timestamp
// synthesis.
type codecImporter struct {
	buf *streambuf.Buffer

	seq *SequenceHeader
	ep  *EntryPoint

	prevBduType     byte
	haveSeenSeqHdr  bool
	multipleSeqHdrs bool

	curData         []byte
	curFrame        *Frame
	curHasSlice     bool
	bframePresent   bool
	slicePresentAny bool

	timer       sequenceTimer
	seqStartIdx uint64
	globalIdx   uint64
	ready       []timedPicture

	summary      sample.Summary
	timescale    uint32
	delta        uint64
	lastDelta    uint32
	firstEmitted bool

	eof    bool
	sticky error
}

// open probes src for a VC-1 Advanced Profile byte stream: the first EBDU
// must be a sequence header.
func open(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 256<<10)
	if err := buf.Update(8); err != nil {
		return nil, errors.Wrap(err, "vc1: reading prefix")
	}
	b := buf.Bytes()
	if len(b) < 4 || b[0] != 0 || b[1] != 0 || b[2] != 1 {
		return nil, errors.New("vc1: not an EBDU byte stream")
	}
	if b[3] != typeSequence {
		return nil, errors.New("vc1: stream does not begin with a sequence header")
	}

	ci := &codecImporter{
		buf:       buf,
		timescale: defaultTimescale,
		delta:     defaultDelta,
	}
	ci.summary = sample.Summary{
		Kind:        sample.KindVideo,
		Codec:       "vc-1",
		Timescale:   ci.timescale,
		MaxAULength: 1 << 22,
	}
	return ci, nil
}

func (ci *codecImporter) TrackCount() int                           { return 1 }
func (ci *codecImporter) Summary(track int) sample.Summary          { return ci.summary }
func (ci *codecImporter) DuplicateSummary(track int) sample.Summary { return ci.summary.Clone() }
func (ci *codecImporter) GetLastDelta(track int) uint32             { return ci.lastDelta }
func (ci *codecImporter) Close() error                              { return nil }

// GetAccessUnit delivers the next access unit, buffering pictures until the
// stream (or a sequence restart) is known complete, exactly as
// codec/h264/importer.go's GetAccessUnit does.
func (ci *codecImporter) GetAccessUnit(track int, dst []byte) (int, sample.AU, importer.Status, error) {
	if ci.sticky != nil {
		return 0, sample.AU{}, importer.StatusError, ci.sticky
	}

	for len(ci.ready) == 0 && !ci.eof {
		if err := ci.scanOne(); err != nil {
			ci.sticky = err
			return 0, sample.AU{}, importer.StatusError, err
		}
	}

	if len(ci.ready) == 0 {
		return 0, sample.AU{}, importer.StatusEOF, nil
	}

	p := ci.ready[0]
	ci.ready = ci.ready[1:]

	if len(dst) < len(p.data) {
		err := errors.New("vc1: destination buffer too small")
		ci.sticky = err
		return 0, sample.AU{}, importer.StatusError, err
	}
	n := copy(dst, p.data)

	ci.lastDelta = uint32(ci.delta)
	au := sample.AU{
		Data:     dst[:n],
		DTS:      p.dts,
		CTS:      p.cts,
		AUNumber: ci.globalIdx,
		Props: sample.Props{
			RandomAccess: randomAccessOf(p),
			Independent:  !p.b,
			Disposable:   p.b,
		},
	}

	status := importer.StatusOK
	if !ci.firstEmitted {
		status = importer.StatusChange
		ci.firstEmitted = true
	}
	return n, au, status, nil
}

func randomAccessOf(p pendingPicture) sample.RandomAccess {
	if !p.b {
		return sample.RASync
	}
	return sample.RANone
}

// scanOne reads and classifies the next EBDU, applying the delimit-table AU
// boundary rule.
func (ci *codecImporter) scanOne() error {
	const window = 1 << 20
	if err := ci.buf.Update(window); err != nil {
		return errors.Wrap(err, "vc1: reading stream")
	}
	avail := ci.buf.Bytes()

	e, ok := scanEBDU(avail)
	if !ok {
		if ci.buf.NoMoreRead() {
			ci.closeCurrentAU()
			ci.flushSequence()
			ci.eof = true
			return nil
		}
		return errors.New("vc1: EBDU exceeds scan window")
	}
	ci.buf.Advance(e.size)

	if !validBDUType(e.bduType) {
		return errUnsupportedBDU
	}

	switch e.bduType {
	case typeSequence:
		ci.closeCurrentAU()
		s, err := parseSequenceHeader(e.payload)
		if err != nil {
			return errors.Wrap(err, "vc1: parsing sequence header")
		}
		if ci.haveSeenSeqHdr {
			ci.multipleSeqHdrs = true
		}
		ci.haveSeenSeqHdr = true
		ci.seq = s
		ci.rebuildSummary()
		ci.prevBduType = e.bduType
		return nil

	case typeEntryPoint:
		ci.closeCurrentAU()
		ep, err := parseEntryPoint(e.payload)
		if err != nil {
			return errors.Wrap(err, "vc1: parsing entry-point header")
		}
		ci.ep = ep
		ci.rebuildSummary()
		ci.prevBduType = e.bduType
		return nil

	case typeFrame:
		ci.closeCurrentAU()
		f, err := parseFrame(e.payload)
		if err != nil {
			return errors.Wrap(err, "vc1: parsing frame header")
		}
		f.StartOfSequence = ci.prevBduType == typeSequence
		if ci.ep != nil {
			f.ClosedGOP = ci.ep.ClosedEntryPoint
			f.RandomAccessible = ci.ep.ClosedEntryPoint && ci.multipleSeqHdrs
		}
		ci.curFrame = f
		ci.curData = appendBDU(ci.curData, e.bduType, e.payload)
		if f.Disposable {
			ci.bframePresent = true
		}
		ci.prevBduType = e.bduType
		return nil

	case typeField:
		if ci.curFrame == nil {
			return errors.New("vc1: field EBDU with no preceding frame header")
		}
		ci.curData = appendBDU(ci.curData, e.bduType, e.payload)
		ci.prevBduType = e.bduType
		return nil

	case typeSlice:
		if ci.curFrame == nil {
			return errors.New("vc1: slice EBDU with no preceding frame header")
		}
		ci.curHasSlice = true
		ci.slicePresentAny = true
		ci.curData = appendBDU(ci.curData, e.bduType, e.payload)
		ci.prevBduType = e.bduType
		return nil

	case typeEndOfSequence:
		ci.closeCurrentAU()
		ci.flushSequence()
		ci.prevBduType = e.bduType
		return nil

	default:
		return errUnsupportedBDU
	}
}

// rebuildSummary recomputes the active sample description and dvc1 blob
// from the most recent sequence/entry-point headers. GetAccessUnit reports
// StatusChange only for the first access unit of the stream, so later
// rebuilds are not signalled.
func (ci *codecImporter) rebuildSummary() {
	if ci.seq != nil {
		ci.summary.Width = ci.seq.DispHorizSize
		ci.summary.Height = ci.seq.DispVertSize
	}
	ci.summary.ConfigBlobs = [][]byte{BuildDvc1(ci.seq, ci.ep, ci.bframePresent, ci.slicePresentAny)}
}

// closeCurrentAU finalizes the access unit under construction, if any.
func (ci *codecImporter) closeCurrentAU() {
	if ci.curFrame == nil {
		return
	}
	isB := ci.curFrame.Disposable
	ci.timer.add(ci.curData, isB)

	ci.curData = nil
	ci.curFrame = nil
	ci.curHasSlice = false
}

// flushSequence assigns timestamps to the buffered pictures and appends the
// result to ci.ready.
func (ci *codecImporter) flushSequence() {
	if ci.timer.empty() {
		return
	}
	timed, _ := ci.timer.flush(ci.seqStartIdx, ci.delta)
	ci.ready = append(ci.ready, timed...)
	ci.globalIdx += uint64(len(timed))
	ci.seqStartIdx = ci.globalIdx
}

func appendBDU(dst []byte, bduType byte, payload []byte) []byte {
	dst = append(dst, 0, 0, 1, bduType)
	return append(dst, payload...)
}
