/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the DTS probe with package importer and implements
  importer.Importer, walking substream syncwords into access units.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dts

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

// maxExtensionSize bounds how far the buffer looks ahead when locating a
// frame's size and embedded sub-payloads, matching DTS_MAX_EXTENSION_SIZE.
const maxExtensionSize = 32768

func init() {
	importer.Register("dts", open)
}

type codecImporter struct {
	buf     *streambuf.Buffer
	parser  Parser
	summary sample.Summary

	au        uint64
	lastDelta uint32
	eof       bool
	sticky    error
}

func open(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, maxExtensionSize*2)
	if err := buf.Update(maxExtensionSize); err != nil {
		return nil, errors.Wrap(err, "dts: reading first frame")
	}
	if len(buf.Bytes()) < 4 || be32(buf.Bytes()) != SyncwordCore {
		return nil, errors.New("dts: not a DTS stream")
	}

	ci := &codecImporter{buf: buf}
	if err := ci.walkAU(); err != nil {
		return nil, err
	}
	ci.summary = ci.buildSummary()
	return ci, nil
}

func channelCountFromState(p *Parser) uint16 {
	layout := p.Core().ChannelLayout | p.Extension().ChannelLayout | p.LBR().ChannelLayout | p.Lossless().ChannelLayout
	return uint16(ChannelCount(layout))
}

func (ci *codecImporter) buildSummary() sample.Summary {
	flags := ci.parser.Flags()
	core := ci.parser.Core()
	ext := ci.parser.Extension()
	lbr := ci.parser.LBR()
	lossless := ci.parser.Lossless()

	sampFreq := core.SamplingFrequency
	frameDuration := core.FrameDuration
	if flags&FlagCore == 0 {
		sampFreq = ext.SamplingFrequency
		frameDuration = ext.FrameDuration
	}
	if sampFreq <= lbr.SamplingFrequency {
		sampFreq = lbr.SamplingFrequency
		frameDuration = lbr.FrameDuration
	}
	if sampFreq <= lossless.SamplingFrequency {
		sampFreq = lossless.SamplingFrequency
		frameDuration = lossless.FrameDuration
	}

	streamConstruction := StreamConstruction(flags)
	codingName := CodingName(streamConstruction, ext.NumberOfAssets > 1)

	return sample.Summary{
		Kind:           sample.KindAudio,
		Codec:          codingName,
		Frequency:      sampFreq,
		Channels:       channelCountFromState(&ci.parser),
		SampleSize:     16,
		SamplesInFrame: frameDuration,
		MaxAULength:    maxExtensionSize,
		ConfigBlobs:    [][]byte{BuildDdts(flags, core, ext, lbr, lossless)},
	}
}

// walkAU folds substream frames from ci.buf into ci.parser until it
// observes the next access unit's boundary frame (left unconsumed) or
// runs out of buffered data, appending consumed bytes to payload if
// non-nil. It returns the first error from the buffer or the parser.
func (ci *codecImporter) walkAU(payload ...*[]byte) error {
	for {
		if err := ci.buf.Update(maxExtensionSize); err != nil {
			return err
		}
		avail := ci.buf.Bytes()
		if len(avail) < 4 {
			break
		}
		size, newAU, err := ci.parser.Feed(avail)
		if err != nil {
			return err
		}
		if newAU {
			break
		}
		if len(payload) == 1 && payload[0] != nil {
			*payload[0] = append(*payload[0], avail[:size]...)
		}
		ci.buf.Advance(size)
		if !ci.parser.Started() {
			break
		}
	}
	return nil
}

func (ci *codecImporter) TrackCount() int                           { return 1 }
func (ci *codecImporter) Summary(track int) sample.Summary          { return ci.summary }
func (ci *codecImporter) DuplicateSummary(track int) sample.Summary { return ci.summary.Clone() }
func (ci *codecImporter) GetLastDelta(track int) uint32             { return ci.lastDelta }
func (ci *codecImporter) Close() error                              { return nil }

func (ci *codecImporter) GetAccessUnit(track int, dst []byte) (int, sample.AU, importer.Status, error) {
	if ci.sticky != nil {
		return 0, sample.AU{}, importer.StatusError, ci.sticky
	}
	if ci.eof {
		return 0, sample.AU{}, importer.StatusEOF, nil
	}
	if len(ci.buf.Bytes()) < 4 {
		if err := ci.buf.Update(4); err != nil {
			ci.sticky = err
			return 0, sample.AU{}, importer.StatusError, err
		}
		if len(ci.buf.Bytes()) < 4 {
			ci.eof = true
			return 0, sample.AU{}, importer.StatusEOF, nil
		}
	}

	var payload []byte
	ci.parser.Reset()
	if err := ci.walkAU(&payload); err != nil {
		ci.sticky = err
		return 0, sample.AU{}, importer.StatusError, err
	}
	if len(payload) == 0 {
		ci.eof = true
		return 0, sample.AU{}, importer.StatusEOF, nil
	}
	if len(dst) < len(payload) {
		ci.sticky = errors.New("dts: destination buffer too small")
		return 0, sample.AU{}, importer.StatusError, ci.sticky
	}
	n := copy(dst, payload)

	status := importer.StatusOK
	newSummary := ci.buildSummary()
	if newSummary.Frequency != ci.summary.Frequency || newSummary.Channels != ci.summary.Channels || newSummary.Codec != ci.summary.Codec {
		status = importer.StatusChange
	}
	ci.summary = newSummary

	spf := ci.summary.SamplesInFrame
	dts := ci.au * uint64(spf)
	ci.au++
	ci.lastDelta = spf

	au := sample.AU{
		Data:     dst[:n],
		DTS:      dts,
		CTS:      dts,
		AUNumber: ci.au,
		Props:    sample.Props{RandomAccess: sample.RASync, Independent: true},
	}
	return n, au, status, nil
}
