/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the HEVC Annex B probe with package importer and
  implements importer.Importer: NAL scanning, access-unit assembly,
  parameter-set management, POC-based timestamp synthesis, and hvcC
  construction, mirroring codec/h264/importer.go's structure.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

func init() {
	importer.Register("hevc", open)
}

const lengthSize = 4

const (
	defaultTimescale = 90000
	defaultDelta     = 3000
)

// codecImporter drives the HEVC Annex B NAL scan, AU assembly, and
// timestamp synthesis.
type codecImporter struct {
	buf  *streambuf.Buffer
	sets *paramSets
	poc  *pocState
	seq  sequenceTimer

	seqStartIdx uint64
	globalIdx   uint64

	curData    []byte
	curHeader  *sliceHeader
	curNALType uint8
	curTID     uint8

	ready []timedPicture

	summary      sample.Summary
	timescale    uint32
	delta        uint64
	lastDelta    uint32
	composition  bool
	firstEmitted bool

	eof    bool
	sticky error
}

// open probes src for an Annex B HEVC stream: the first NAL unit must be
// preceded by a long start code and be an AUD, VPS, SPS, PPS, or a VCL NAL
// unit.
func open(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 256<<10)
	if err := buf.Update(8); err != nil {
		return nil, errors.Wrap(err, "h265: reading prefix")
	}
	b := buf.Bytes()
	if len(b) < 6 || b[0] != 0 || b[1] != 0 || b[2] != 0 || b[3] != 1 {
		return nil, errors.New("h265: not an Annex B byte stream")
	}
	nalType := (b[4] >> 1) & 0x3f
	switch nalType {
	case typeAUD, typeVPS, typeSPS, typePPS:
	default:
		if !isVCL(nalType) {
			return nil, errors.New("h265: unrecognized leading NAL type")
		}
	}

	ci := &codecImporter{
		buf:       buf,
		sets:      newParamSets(),
		poc:       newPOCState(),
		timescale: defaultTimescale,
		delta:     defaultDelta,
	}
	ci.summary = sample.Summary{
		Kind:        sample.KindVideo,
		Codec:       "hvc1",
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

// GetAccessUnit delivers the next access unit, buffering pictures within a
// coded video sequence until the sequence is known complete, exactly as
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
		err := errors.New("h265: destination buffer too small")
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
			RandomAccess: randomAccessOf(p.props),
			Independent:  p.props.independent,
			Disposable:   p.props.disposable,
		},
	}
	if p.props.leading {
		au.Props.Leading = sample.LeadingDecodable
	}

	status := importer.StatusOK
	if !ci.firstEmitted {
		status = importer.StatusChange
		ci.firstEmitted = true
	}
	return n, au, status, nil
}

func randomAccessOf(p sampleProps) sample.RandomAccess {
	if p.randomAccess {
		return sample.RASync
	}
	return sample.RANone
}

// scanOne reads and classifies the next NAL unit, folding it into the
// current access unit or closing it out, mirroring
// codec/h264/importer.go's scanOne.
func (ci *codecImporter) scanOne() error {
	const window = 1 << 20
	if err := ci.buf.Update(window); err != nil {
		return errors.Wrap(err, "h265: reading stream")
	}
	avail := ci.buf.Bytes()

	n, ok := scanNAL(avail)
	if !ok && ci.buf.NoMoreRead() {
		// End of stream terminates the final NAL unit.
		if sc, found := startCodeLen(avail); found && len(avail)-sc >= 2 {
			n, ok = scanNAL(append(avail[:len(avail):len(avail)], 0, 0, 1))
		}
	}
	if !ok {
		if ci.buf.NoMoreRead() {
			ci.closeCurrentAU()
			ci.flushSequence()
			ci.eof = true
			return nil
		}
		return errors.New("h265: NAL unit exceeds scan window")
	}
	scLen, _ := startCodeLen(avail)
	nalBytes := avail[scLen:n.size]
	ci.buf.Advance(n.size)

	switch n.nalType {
	case typeVPS, typeSPS, typePPS, typeAUD:
		if !n.long {
			return errNoLongStartCode
		}
	}

	switch n.nalType {
	case typeVPS:
		ci.closeCurrentAU()
		v, err := parseVPS(n.rbsp)
		if err != nil {
			return errors.Wrap(err, "h265: parsing VPS")
		}
		ci.sets.addVPS(v)
		return nil

	case typeSPS:
		ci.closeCurrentAU()
		s, err := parseSPS(n.rbsp)
		if err != nil {
			return errors.Wrap(err, "h265: parsing SPS")
		}
		ci.sets.addSPS(s)
		ci.rebuildSummary()
		return nil

	case typePPS:
		ci.closeCurrentAU()
		p, err := parsePPS(n.rbsp)
		if err != nil {
			return errors.Wrap(err, "h265: parsing PPS")
		}
		ci.sets.addPPS(p)
		ci.rebuildSummary()
		return nil

	case typeEOS, typeEOB:
		ci.closeCurrentAU()
		ci.poc.update(n.nalType, 0, 0, 0)
		return nil

	default:
		if isVCL(n.nalType) {
			return ci.handleSlice(nalBytes, n)
		}
		if forcesNewAU(n.nalType) {
			ci.closeCurrentAU()
		}
		return nil
	}
}

// rebuildSummary recomputes the active sample description from the current
// parameter-set lists, including the hvcC configuration blob. scanOne calls
// it after every SPS and PPS; GetAccessUnit reports StatusChange only for
// the first access unit of the stream, so later rebuilds are not signalled.
func (ci *codecImporter) rebuildSummary() {
	first := firstSPS(ci.sets)
	if first == nil {
		return
	}
	ci.summary.Width = uint16(first.Width)
	ci.summary.Height = uint16(first.Height)
	ci.summary.ConfigBlobs = [][]byte{BuildHvcC(ci.sets, lengthSize)}
}

// handleSlice parses a VCL NAL's slice header, starts a new AU when
// first_slice_segment_in_pic_flag indicates one, and appends nalBytes
// (length-prefixed) to the current AU's payload.
func (ci *codecImporter) handleSlice(nalBytes []byte, n nalUnit) error {
	h, err := parseSliceHeader(n.nalType, n.rbsp, ci.sets)
	if err != nil {
		return errors.Wrap(err, "h265: parsing slice header")
	}

	if h.firstSliceSegmentInPic {
		ci.closeCurrentAU()
		ci.curHeader = h
		ci.curNALType = n.nalType
		ci.curTID = n.temporalID
	} else if ci.curHeader == nil {
		return errors.New("h265: dependent slice segment with no preceding first segment")
	}

	ci.curData = appendLengthPrefixed(ci.curData, nalBytes)
	return nil
}

// closeCurrentAU finalizes the access unit under construction, if any,
// computing its POC and appending it to the current sequence, starting a
// new sequence (flushing the previous one) on an IRAP with
// NoRaslOutputFlag set.
func (ci *codecImporter) closeCurrentAU() {
	if ci.curHeader == nil {
		return
	}
	h := ci.curHeader
	nalType := ci.curNALType

	pps := ci.sets.pps[h.ppsID]
	sps := ci.sets.sps[pps.SPSID]

	newSequence := isIRAP(nalType) && ci.poc.noRaslOutputFlag(nalType)
	if newSequence && !ci.seq.empty() {
		ci.flushSequence()
	}

	poc, err := ci.poc.derive(sps, nalType, h)
	if err != nil {
		poc = int64(len(ci.seq.pics))
	}
	ci.poc.update(nalType, ci.curTID, pocMSB(poc, int64(h.picOrderCntLsb)), int64(h.picOrderCntLsb))

	ci.seq.add(pendingPicture{
		data: ci.curData,
		poc:  poc,
		props: sampleProps{
			randomAccess: isIRAP(nalType),
			independent:  isIDR(nalType) || isBLA(nalType),
			disposable:   isSubLayerNonRef(nalType) || isRASL(nalType) || isRADL(nalType),
			leading:      isRADL(nalType),
		},
	})

	ci.curData = nil
	ci.curHeader = nil
}

// flushSequence assigns timestamps to the buffered sequence and appends the
// result to ci.ready.
func (ci *codecImporter) flushSequence() {
	if ci.seq.empty() {
		return
	}
	timed, reordered := ci.seq.flush(ci.seqStartIdx, ci.delta)
	if reordered {
		ci.composition = true
	}
	ci.ready = append(ci.ready, timed...)
	ci.globalIdx += uint64(len(timed))
	ci.seqStartIdx = ci.globalIdx
}

func appendLengthPrefixed(dst, nal []byte) []byte {
	var lp [lengthSize]byte
	l := uint32(len(nal))
	lp[0] = byte(l >> 24)
	lp[1] = byte(l >> 16)
	lp[2] = byte(l >> 8)
	lp[3] = byte(l)
	dst = append(dst, lp[:]...)
	return append(dst, nal...)
}
