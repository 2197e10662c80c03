/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the MP3 probe with package importer and implements
  importer.Importer, including Xing/VBRI side-info consumption and Layer III
  bit-reservoir pre-roll computation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mp3

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/mp4sys"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

func init() {
	importer.Register("mp3", open)
}

type codecImporter struct {
	buf       *streambuf.Buffer
	summary   sample.Summary
	lastHdr   *Header
	reservoir *ReservoirTracker

	au        uint64
	lastDelta uint32
	eof       bool
	sticky    error
}

func summaryFromHeader(h *Header) sample.Summary {
	esd := &mp4sys.ESDescriptor{
		DecoderConfig: &mp4sys.DecoderConfigDescriptor{
			ObjectTypeIndication: h.ObjectTypeIndication(),
			StreamType:           mp4sys.StreamTypeAudio,
		},
		SLConfig: &mp4sys.SLConfigDescriptor{Predefined: 2},
	}
	return sample.Summary{
		Kind:           sample.KindAudio,
		Codec:          "mp4a",
		Frequency:      h.SampleRate(),
		Channels:       channelCount(h.Mode),
		SampleSize:     16,
		SamplesInFrame: h.SamplesPerFrame(),
		MaxAULength:    4096,
		ConfigBlobs:    [][]byte{mp4sys.BuildESDS(esd)},
	}
}

func channelCount(mode uint8) uint16 {
	if mode == 3 {
		return 1
	}
	return 2
}

func open(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 64<<10)
	if err := buf.Update(4); err != nil {
		return nil, errors.Wrap(err, "mp3: reading initial header")
	}
	h, err := ParseHeader(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "mp3: not an MP3 stream")
	}
	ci := &codecImporter{buf: buf, summary: summaryFromHeader(h), lastHdr: h, reservoir: NewReservoirTracker()}

	// Consume a Xing/Info/VBRI side-info frame, if this first frame is one,
	// as non-audio metadata rather than the first access unit.
	size := h.FrameSize()
	if err := ci.buf.Update(size); err == nil && ci.buf.End()-ci.buf.Pos() >= size {
		if _, ok := DetectVBRHeader(h, ci.buf.Bytes()[:size]); ok {
			ci.buf.Advance(size)
		}
	}
	return ci, nil
}

func (ci *codecImporter) TrackCount() int                           { return 1 }
func (ci *codecImporter) Summary(track int) sample.Summary          { return ci.summary }
func (ci *codecImporter) DuplicateSummary(track int) sample.Summary { return ci.summary.Clone() }
func (ci *codecImporter) GetLastDelta(track int) uint32              { return ci.lastDelta }
func (ci *codecImporter) Close() error                               { return nil }

func (ci *codecImporter) GetAccessUnit(track int, dst []byte) (int, sample.AU, importer.Status, error) {
	if ci.sticky != nil {
		return 0, sample.AU{}, importer.StatusError, ci.sticky
	}
	if ci.eof {
		return 0, sample.AU{}, importer.StatusEOF, nil
	}

	if err := ci.buf.Update(4); err != nil {
		ci.sticky = err
		return 0, sample.AU{}, importer.StatusError, err
	}
	if ci.buf.End()-ci.buf.Pos() < 4 {
		ci.eof = true
		return 0, sample.AU{}, importer.StatusEOF, nil
	}

	h, err := ParseHeader(ci.buf.Bytes())
	if err != nil {
		ci.sticky = err
		return 0, sample.AU{}, importer.StatusError, err
	}
	if !SameSampleDescription(h, ci.lastHdr) {
		ci.sticky = errors.New("mp3: fatal change of layer/sampling_frequency")
		return 0, sample.AU{}, importer.StatusError, ci.sticky
	}

	size := h.FrameSize()
	if err := ci.buf.Update(size); err != nil {
		ci.sticky = err
		return 0, sample.AU{}, importer.StatusError, err
	}
	avail := ci.buf.End() - ci.buf.Pos()
	if avail < size {
		ci.eof = true
		return 0, sample.AU{}, importer.StatusEOF, nil
	}
	if len(dst) < size {
		return 0, sample.AU{}, importer.StatusError, errors.New("mp3: destination buffer too small")
	}
	frame := ci.buf.Bytes()[:size]
	n := copy(dst, frame)

	status := importer.StatusOK
	if h.Mode != ci.lastHdr.Mode && (h.Mode == 3) != (ci.lastHdr.Mode == 3) {
		status = importer.StatusChange
		ci.summary = summaryFromHeader(h)
	}
	ci.lastHdr = h
	ci.buf.Advance(size)

	var preRoll uint16
	if h.Layer == 3 {
		if begin, err := h.MainDataBegin(frame); err == nil {
			preRoll = ci.reservoir.PreRollDistance(begin)
		}
		// Only main_data counts toward the reservoir: the 4-byte header, the
		// CRC when present and the side information are left out.
		mainData := size - 4 - (h.SideInfoOffset() - 6)
		if h.ProtectionBit == 0 {
			mainData -= 2
		}
		ci.reservoir.Push(mainData)
	}

	dts := ci.au * uint64(h.SamplesPerFrame())
	ci.au++
	ci.lastDelta = h.SamplesPerFrame()
	au := sample.AU{
		Data:     dst[:n],
		DTS:      dts,
		CTS:      dts,
		AUNumber: ci.au,
		Props: sample.Props{
			RandomAccess: sample.RASync,
			Independent:  true,
			PreRollDist:  preRoll,
		},
	}
	return n, au, status, nil
}
