/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the AC-3 and E-AC-3 probes with package importer and
  implements importer.Importer for both, driving Parse/eac3.Parser over a
  streambuf.Buffer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ac3

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

func init() {
	importer.Register("ac3", openAC3)
	importer.Register("eac3", openEAC3)
}

// ticksPerSample is the AC-3 media timebase: one tick per audio sample,
// matching the convention elsewhere in this module of timebase == sample rate.
const ticksPerSample = 1

type codecImporter struct {
	buf     *streambuf.Buffer
	eac3    bool
	summary sample.Summary

	// pending holds the first syncframe already parsed while probing, so
	// that the first GetAccessUnit call doesn't re-read it.
	pendingAC3  *SyncFrame
	pendingSize int

	// lastAC3 is the most recently delivered AC-3 syncframe's header,
	// retained so the next GetAccessUnit call can detect a CHANGE.
	lastAC3 *SyncFrame

	eacParser *Parser
	au        uint64
	lastDelta uint32
	eof       bool
	sticky    error
}

func summaryFromAC3(f *SyncFrame) sample.Summary {
	rate := []uint32{48000, 44100, 32000}[f.Fscod]
	return sample.Summary{
		Kind:           sample.KindAudio,
		Codec:          "ac-3",
		Frequency:      rate,
		Channels:       channelCount(f.Acmod, f.LFEOn),
		SampleSize:     16,
		SamplesInFrame: SamplesPerFrame,
		MaxAULength:    3840,
		ConfigBlobs:    [][]byte{BuildDac3(f)},
	}
}

func channelCount(acmod uint8, lfe bool) uint16 {
	counts := []uint16{2, 1, 2, 3, 3, 4, 4, 5}
	n := counts[acmod]
	if lfe {
		n++
	}
	return n
}

func openAC3(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 64<<10)
	if err := buf.Update(6); err != nil {
		return nil, errors.Wrap(err, "ac3: reading initial syncframe")
	}
	f, err := Parse(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "ac3: not an AC-3 stream")
	}
	if f.Bsid >= 10 {
		return nil, errors.New("ac3: bsid indicates E-AC-3, not AC-3")
	}
	return &codecImporter{
		buf:         buf,
		summary:     summaryFromAC3(f),
		pendingAC3:  f,
		pendingSize: f.FrameSize,
		lastAC3:     f,
	}, nil
}

func openEAC3(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 64<<10)
	if err := buf.Update(6); err != nil {
		return nil, errors.Wrap(err, "eac3: reading initial syncframe")
	}
	p := NewParser()
	_, size, err := p.Feed(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "eac3: not an E-AC-3 stream")
	}
	ci := &codecImporter{buf: buf, eac3: true, eacParser: p}
	ci.pendingSize = size
	ci.advanceEAC3Until6Blocks()
	return ci, nil
}

// advanceEAC3Until6Blocks feeds syncframes into eacParser until six audio
// blocks of independent substream 0 have been accumulated, building the
// initial sample description from the resulting Frame.
func (ci *codecImporter) advanceEAC3Until6Blocks() {
	for !ci.eacParser.Complete() {
		if err := ci.buf.Update(ci.pendingSize + 6); err != nil || ci.buf.NoMoreRead() && ci.buf.End()-ci.buf.Pos() < ci.pendingSize {
			break
		}
		ci.buf.Advance(ci.pendingSize)
		if ci.buf.End()-ci.buf.Pos() < 6 {
			break
		}
		_, size, err := ci.eacParser.Feed(ci.buf.Bytes())
		if err != nil {
			break
		}
		ci.pendingSize = size
	}
	f := ci.eacParser.Frame()
	ci.summary = summaryFromEAC3(&f)
}

func summaryFromEAC3(f *Frame) sample.Summary {
	if f.NumIndSub == 0 {
		return sample.Summary{Kind: sample.KindAudio, Codec: "ec-3"}
	}
	first := f.Independent[0]
	rate := eac3SampleRates[first.Fscod]
	if first.Fscod == 3 {
		rate = eac3SampleRates2[first.Fscod2]
	}
	return sample.Summary{
		Kind:           sample.KindAudio,
		Codec:          "ec-3",
		Frequency:      rate,
		Channels:       channelCount(first.Acmod, first.LFEOn),
		SampleSize:     16,
		SamplesInFrame: SamplesPerFrame,
		MaxAULength:    4096,
		ConfigBlobs:    [][]byte{BuildDec3(f)},
	}
}

func (ci *codecImporter) TrackCount() int { return 1 }

func (ci *codecImporter) Summary(track int) sample.Summary { return ci.summary }

func (ci *codecImporter) DuplicateSummary(track int) sample.Summary { return ci.summary.Clone() }

func (ci *codecImporter) GetLastDelta(track int) uint32 { return ci.lastDelta }

func (ci *codecImporter) Close() error { return nil }

func (ci *codecImporter) GetAccessUnit(track int, dst []byte) (int, sample.AU, importer.Status, error) {
	if ci.sticky != nil {
		return 0, sample.AU{}, importer.StatusError, ci.sticky
	}
	if ci.eof {
		return 0, sample.AU{}, importer.StatusEOF, nil
	}
	if ci.eac3 {
		return ci.getAccessUnitEAC3(dst)
	}
	return ci.getAccessUnitAC3(dst)
}

func (ci *codecImporter) getAccessUnitAC3(dst []byte) (int, sample.AU, importer.Status, error) {
	f := ci.pendingAC3
	size := ci.pendingSize
	if f == nil {
		if err := ci.buf.Update(6); err != nil {
			ci.sticky = err
			return 0, sample.AU{}, importer.StatusError, err
		}
		if ci.buf.End()-ci.buf.Pos() < 6 {
			ci.eof = true
			return 0, sample.AU{}, importer.StatusEOF, nil
		}
		var err error
		f, err = Parse(ci.buf.Bytes())
		if err != nil {
			ci.sticky = err
			return 0, sample.AU{}, importer.StatusError, err
		}
		size = f.FrameSize
	}

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
		return 0, sample.AU{}, importer.StatusError, errors.New("ac3: destination buffer too small")
	}
	n := copy(dst, ci.buf.Bytes()[:size])
	ci.buf.Advance(size)

	status := importer.StatusOK
	if ci.pendingAC3 != nil {
		// The frame just delivered is the one from probing; it already
		// seeded ci.summary and ci.lastAC3, so no comparison is needed.
		ci.pendingAC3 = nil
	} else if !SameSampleDescription(f, ci.lastAC3) {
		status = importer.StatusChange
		ci.summary = summaryFromAC3(f)
		ci.lastAC3 = f
	}

	dts := ci.au * SamplesPerFrame * ticksPerSample
	ci.au++
	ci.lastDelta = SamplesPerFrame
	au := sample.AU{
		Data:     dst[:n],
		DTS:      dts,
		CTS:      dts,
		AUNumber: ci.au,
		Props:    sample.Props{RandomAccess: sample.RASync, Independent: true},
	}
	return n, au, status, nil
}

func (ci *codecImporter) getAccessUnitEAC3(dst []byte) (int, sample.AU, importer.Status, error) {
	// Accumulate syncframes for the next access unit: the parser is reset
	// here, at the start of the call, once the previous AU is complete.
	if ci.eacParser.Complete() {
		ci.eacParser.Reset()
	}
	var payload []byte
	for {
		if err := ci.buf.Update(ci.pendingSize + 6); err != nil {
			ci.sticky = err
			return 0, sample.AU{}, importer.StatusError, err
		}
		avail := ci.buf.End() - ci.buf.Pos()
		if avail < ci.pendingSize {
			if ci.buf.NoMoreRead() {
				ci.eof = true
				if len(payload) == 0 {
					return 0, sample.AU{}, importer.StatusEOF, nil
				}
				break
			}
			continue
		}
		frame := ci.buf.Bytes()[:ci.pendingSize]
		payload = append(payload, frame...)
		ci.buf.Advance(ci.pendingSize)

		if ci.buf.End()-ci.buf.Pos() < 6 {
			if ci.buf.NoMoreRead() {
				break
			}
			if err := ci.buf.Update(6); err != nil {
				ci.sticky = err
				return 0, sample.AU{}, importer.StatusError, err
			}
			if ci.buf.End()-ci.buf.Pos() < 6 {
				break
			}
		}

		_, size, err := ci.eacParser.Feed(ci.buf.Bytes())
		if err != nil {
			ci.sticky = err
			return 0, sample.AU{}, importer.StatusError, err
		}
		ci.pendingSize = size
		if ci.eacParser.Complete() {
			break
		}
	}

	if len(dst) < len(payload) {
		return 0, sample.AU{}, importer.StatusError, errors.New("eac3: destination buffer too small")
	}
	n := copy(dst, payload)

	dts := ci.au * SamplesPerFrame * ticksPerSample
	ci.au++
	ci.lastDelta = SamplesPerFrame
	au := sample.AU{
		Data:     dst[:n],
		DTS:      dts,
		CTS:      dts,
		AUNumber: ci.au,
		Props:    sample.Props{RandomAccess: sample.RASync, Independent: true},
	}
	return n, au, importer.StatusOK, nil
}
