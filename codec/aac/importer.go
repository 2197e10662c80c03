/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the ADTS probe with package importer and implements
  importer.Importer, splitting each ADTS frame into one or more raw
  raw_data_block access units.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package aac

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

func init() {
	importer.Register("adts", open)
}

type codecImporter struct {
	buf     *streambuf.Buffer
	summary sample.Summary
	lastHdr *Header

	pendingBlocks [][]byte // raw_data_block payloads still to deliver for the current frame.
	pendingStatus importer.Status
	au            uint64
	lastDelta     uint32
	eof           bool
	sticky        error
}

func summaryFromHeader(h *Header) sample.Summary {
	return sample.Summary{
		Kind:           sample.KindAudio,
		Codec:          "mp4a",
		Frequency:      sampleRates[h.SamplingFreqIndex],
		Channels:       uint16(h.ChannelConfig),
		SampleSize:     16,
		SamplesInFrame: SamplesInFrame,
		MaxAULength:    8192,
		ConfigBlobs:    [][]byte{BuildESDS(h, 0)},
	}
}

func open(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 64<<10)
	if err := buf.Update(9); err != nil {
		return nil, errors.Wrap(err, "aac: reading initial header")
	}
	h, err := ParseHeader(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "aac: not an ADTS stream")
	}
	ci := &codecImporter{buf: buf, summary: summaryFromHeader(h), lastHdr: h}
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

	if len(ci.pendingBlocks) == 0 {
		status, err := ci.readNextFrame()
		if err != nil {
			ci.sticky = err
			return 0, sample.AU{}, importer.StatusError, err
		}
		if status == importer.StatusEOF {
			ci.eof = true
			return 0, sample.AU{}, importer.StatusEOF, nil
		}
		ci.pendingStatus = status
	}

	block := ci.pendingBlocks[0]
	ci.pendingBlocks = ci.pendingBlocks[1:]
	if len(dst) < len(block) {
		return 0, sample.AU{}, importer.StatusError, errors.New("aac: destination buffer too small")
	}
	n := copy(dst, block)

	status := ci.pendingStatus
	ci.pendingStatus = importer.StatusOK // Only the first AU of a frame carries CHANGE.

	dts := ci.au * SamplesInFrame
	ci.au++
	ci.lastDelta = SamplesInFrame
	au := sample.AU{
		Data:     dst[:n],
		DTS:      dts,
		CTS:      dts,
		AUNumber: ci.au,
		Props:    sample.Props{RandomAccess: sample.RASync, Independent: true},
	}
	return n, au, status, nil
}

// readNextFrame reads one ADTS frame from the buffer, splits it into its
// raw_data_block payloads and queues them in pendingBlocks, checking for a
// CHANGE in channel_configuration along the way.
func (ci *codecImporter) readNextFrame() (importer.Status, error) {
	if err := ci.buf.Update(9); err != nil {
		return importer.StatusError, err
	}
	if ci.buf.End()-ci.buf.Pos() < 7 {
		return importer.StatusEOF, nil
	}

	h, err := ParseHeader(ci.buf.Bytes())
	if err != nil {
		return importer.StatusError, err
	}
	if !SameSampleDescription(h, ci.lastHdr) {
		return importer.StatusError, errors.New("aac: fatal change of profile_ObjectType/ID/sampling_frequency_index")
	}

	if err := ci.buf.Update(int(h.FrameLength) + 2); err != nil {
		return importer.StatusError, err
	}
	avail := ci.buf.End() - ci.buf.Pos()
	if avail < int(h.FrameLength) {
		return importer.StatusEOF, nil
	}

	frame := ci.buf.Bytes()[:h.FrameLength]
	headerSize := h.HeaderSize()
	status := importer.StatusOK
	if h.ChannelConfig != ci.lastHdr.ChannelConfig {
		status = importer.StatusChange
	}
	ci.lastHdr = h

	if h.RawDataBlocksMinus1 == 0 {
		if h.FrameLength < uint16(headerSize) {
			return importer.StatusError, errors.New("aac: frame_length shorter than header")
		}
		payload := frame[headerSize:]
		ci.pendingBlocks = [][]byte{append([]byte(nil), payload...)}
	} else {
		if h.ProtectionAbsent {
			return importer.StatusError, errors.New("aac: multiple raw_data_blocks without CRC is unsupported")
		}
		// The CRC of a multi-block frame trails the position table, which
		// follows the 7-byte fixed+variable header directly.
		const fixedHeaderSize = 7
		numBlocks := int(h.RawDataBlocksMinus1) + 1
		positions, err := ParseBlockPositions(frame[fixedHeaderSize:], numBlocks-1)
		if err != nil {
			return importer.StatusError, err
		}
		tableSize := (numBlocks-1)*2 + 2
		body := frame[fixedHeaderSize+tableSize:]
		offset := 0
		blocks := make([][]byte, 0, numBlocks)
		for i := 0; i < numBlocks-1; i++ {
			end := offset + int(positions[i])
			if end > len(body) {
				return importer.StatusError, errors.New("aac: raw_data_block position out of range")
			}
			blocks = append(blocks, append([]byte(nil), body[offset:end]...))
			offset = end
		}
		blocks = append(blocks, append([]byte(nil), body[offset:]...))
		ci.pendingBlocks = blocks
	}

	if status == importer.StatusChange {
		ci.summary = summaryFromHeader(h)
	}
	ci.buf.Advance(int(h.FrameLength))
	return status, nil
}
