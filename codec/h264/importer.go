/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the H.264/AVC Annex B probe with package importer
  and implements importer.Importer: NAL scanning, access-unit assembly,
  parameter-set management, POC-based timestamp synthesis, and avcC
  construction.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/ausocean/esimport/codec/h264/h264dec"
	"github.com/ausocean/esimport/codec/h264/h264dec/bits"
	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

func init() {
	importer.Register("h264", open)
}

// lengthSize is the NAL length field width this module writes ahead of each
// NAL unit in a delivered access unit, matching the AVCDecoderConfigurationRecord
// convention that consuming samples already use.
const lengthSize = 4

// defaultDelta is the per-access-unit tick duration. VUI timing
// (time_scale/num_units_in_tick) is not read, so it is used for every
// access unit of every stream; 90kHz/3000 matches the
// conventional 30fps assumption other importers in this module default to
// for unspecified timing.
const (
	defaultTimescale = 90000
	defaultDelta     = 3000
)

// codecImporter drives the H.264 Annex B NAL scan, AU assembly, and
// timestamp synthesis.
type codecImporter struct {
	buf  *streambuf.Buffer
	sets *paramSets
	poc  pocState
	seq  sequenceTimer

	seqStartIdx uint64 // global decode-order index where the current sequence began.
	globalIdx   uint64 // total pictures scanned so far.

	curData   []byte
	curHeader *sliceHeader

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

// open probes src for an Annex B H.264 stream: the first NAL unit must be
// preceded by a long start code and be an AUD, SPS, PPS, or a non-IDR or
// IDR coded slice.
func open(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 256<<10)
	if err := buf.Update(8); err != nil {
		return nil, errors.Wrap(err, "h264: reading prefix")
	}
	b := buf.Bytes()
	if len(b) < 5 || b[0] != 0 || b[1] != 0 || b[2] != 0 || b[3] != 1 {
		return nil, errors.New("h264: not an Annex B byte stream")
	}
	switch b[4] & 0x1f {
	case nalTypeAUD, nalTypeSPS, nalTypePPS, nalTypeNonIDRSlice, nalTypeIDRSlice:
	default:
		return nil, errors.New("h264: unrecognized leading NAL type")
	}

	ci := &codecImporter{
		buf:       buf,
		sets:      newParamSets(),
		timescale: defaultTimescale,
		delta:     defaultDelta,
	}
	ci.summary = sample.Summary{
		Kind:        sample.KindVideo,
		Codec:       "avc1",
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

// GetAccessUnit delivers the next access unit. Pictures are held internally
// until the coded video sequence they belong to is known to be complete (an
// IDR restart or end of stream), so that composition times can be assigned
// by POC rank.
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
		err := errors.New("h264: destination buffer too small")
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
// current access unit or closing it out, and flushes a completed sequence's
// pictures into ci.ready once its final picture is known.
func (ci *codecImporter) scanOne() error {
	const window = 1 << 20
	if err := ci.buf.Update(window); err != nil {
		return errors.Wrap(err, "h264: reading stream")
	}
	avail := ci.buf.Bytes()

	n, ok := scanNAL(avail)
	if !ok {
		if ci.buf.NoMoreRead() {
			ci.closeCurrentAU()
			ci.flushSequence()
			ci.eof = true
			return nil
		}
		return errors.New("h264: NAL unit exceeds scan window")
	}
	scLen, _ := startCodeLen(avail)
	nalBytes := avail[scLen:n.size] // the NAL unit's own bytes, start code excluded.
	ci.buf.Advance(n.size)

	switch n.nalType {
	case nalTypeSPS, nalTypePPS, nalTypeAUD:
		if !n.long {
			return errNoLongStartCode
		}
	}

	switch n.nalType {
	case nalTypeSPS:
		ci.closeCurrentAU()
		sps, err := h264dec.NewSPS(n.rbsp, false)
		if err != nil {
			return errors.Wrap(err, "h264: parsing SPS")
		}
		if _, err := ci.sets.addSPS(int(sps.SPSID), nalBytes, sps); err != nil {
			return err
		}
		ci.sets.promote()
		ci.rebuildSummary()
		return nil

	case nalTypePPS:
		ci.closeCurrentAU()
		sps := ci.firstActiveSPS()
		if sps == nil {
			return errors.New("h264: PPS references no active SPS")
		}
		pps, err := h264dec.NewPPS(bitsReader(n.rbsp), int(sps.ChromaFormatIDC))
		if err != nil {
			return errors.Wrap(err, "h264: parsing PPS")
		}
		if _, err := ci.sets.addPPS(pps.ID, nalBytes, pps); err != nil {
			return err
		}
		ci.sets.promote()
		ci.rebuildSummary()
		return nil

	case nalTypeNonIDRSlice, nalTypeIDRSlice:
		return ci.handleSlice(nalBytes, n)

	default:
		if isVCL(n.nalType) {
			return nil
		}
		if forcesNewAU(n.nalType) {
			ci.closeCurrentAU()
		}
		return nil
	}
}

// rebuildSummary recomputes the active sample description from the current
// parameter-set lists, including the avcC configuration blob. scanOne calls
// it after every SPS and PPS whatever change level addSPS or addPPS
// reported; those levels are not consulted, and GetAccessUnit reports
// StatusChange only for the first access unit of the stream.
func (ci *codecImporter) rebuildSummary() {
	first := ci.sets.firstSPS()
	if first == nil {
		return
	}
	ci.summary.Width = uint16(croppedWidth(first.sps))
	ci.summary.Height = uint16(croppedHeight(first.sps))
	ci.summary.ConfigBlobs = [][]byte{BuildAvcC(ci.sets, lengthSize)}
}

func (ci *codecImporter) firstActiveSPS() *h264dec.SPS {
	if e := ci.sets.firstSPS(); e != nil {
		return e.sps
	}
	return nil
}

// handleSlice parses a VCL NAL's slice header, starts a new AU when the
// header indicates one (or this is the stream's first slice), and appends
// nalBytes (length-prefixed) to the current AU's payload.
func (ci *codecImporter) handleSlice(nalBytes []byte, n nalUnit) error {
	pps := ci.sets.activePPS(slicePPSID(n.rbsp))
	sps := ci.spsForPPS(pps)
	if sps == nil || pps == nil {
		return errors.New("h264: slice references unknown parameter set")
	}

	h, err := parseSliceHeader(n.rbsp, sps, pps, n.refIdc, n.nalType)
	if err != nil {
		return errors.Wrap(err, "h264: parsing slice header")
	}

	newAU := ci.curHeader == nil || !sameAU(sps, ci.curHeader, h)
	if newAU {
		ci.closeCurrentAU()
		ci.curHeader = h
	}

	ci.curData = appendLengthPrefixed(ci.curData, nalBytes)
	return nil
}

// spsForPPS resolves a PPS's referenced SPS via the active parameter-set
// lists.
func (ci *codecImporter) spsForPPS(pps *h264dec.PPS) *h264dec.SPS {
	if pps == nil {
		return nil
	}
	return ci.sets.activeSPS(pps.SPSID)
}

// closeCurrentAU finalizes the access unit under construction, if any,
// computing its POC and appending it to the current sequence, starting a
// new sequence (flushing the previous one) on an IDR.
func (ci *codecImporter) closeCurrentAU() {
	if ci.curHeader == nil {
		return
	}
	h := ci.curHeader
	sps := ci.spsForPPS(ci.sets.activePPS(h.PPSID))

	if h.IDRPicFlag && !ci.seq.empty() {
		ci.flushSequence()
	}
	if h.IDRPicFlag {
		ci.poc.reset()
	}

	poc, err := ci.poc.derive(sps, h)
	if err != nil {
		// An overflowed POC cannot order this picture meaningfully; fall
		// back to decode order within the sequence rather than aborting
		// the whole stream.
		poc = int64(len(ci.seq.pics))
	}

	ci.seq.add(pendingPicture{
		data: ci.curData,
		poc:  poc,
		props: sampleProps{
			randomAccess: h.IDRPicFlag,
			independent:  h.IDRPicFlag,
			disposable:   h.RefIdc == 0,
		},
	})

	ci.curData = nil
	ci.curHeader = nil
}

// flushSequence assigns timestamps to the buffered sequence and appends the
// result to ci.ready, advancing the global decode-order counter and
// updating the composition-reordering flag.
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

// slicePPSID peeks the pic_parameter_set_id out of a slice header's leading
// Exp-Golomb fields without needing the referenced PPS/SPS; this is the
// bootstrap step that lets handleSlice then look up the PPS it needs to
// fully parse the header.
func slicePPSID(rbsp []byte) int {
	br := bitsReader(rbsp)
	e := &egolomb{br: br}
	e.ue() // first_mb_in_slice.
	e.ue() // slice_type.
	return int(e.ue())
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

func bitsReader(b []byte) *bits.BitReader {
	return bits.NewBitReader(bytes.NewReader(b))
}
