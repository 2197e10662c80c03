/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the AMR-NB/WB probe with package importer and
  implements importer.Importer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package amr

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

func init() {
	importer.Register("amr", open)
}

type codecImporter struct {
	buf     *streambuf.Buffer
	variant Variant
	summary sample.Summary

	au        uint64
	lastDelta uint32
	eof       bool
	sticky    error
}

func open(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 64<<10)
	if err := buf.Update(len(MagicWB)); err != nil {
		return nil, errors.Wrap(err, "amr: reading magic")
	}
	variant, n, ok := DetectMagic(buf.Bytes())
	if !ok {
		return nil, ErrUnrecognizedMagic
	}
	buf.Advance(n)

	return &codecImporter{
		buf:     buf,
		variant: variant,
		summary: sample.Summary{
			Kind:           sample.KindAudio,
			Codec:          "samr",
			Frequency:      variant.Frequency(),
			Channels:       1,
			SampleSize:     16,
			SamplesInFrame: variant.SamplesPerFrame(),
			MaxAULength:    64,
			ConfigBlobs:    [][]byte{BuildDamr()},
		},
	}, nil
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

	if err := ci.buf.Update(1); err != nil {
		ci.sticky = err
		return 0, sample.AU{}, importer.StatusError, err
	}
	if ci.buf.End()-ci.buf.Pos() < 1 {
		ci.eof = true
		return 0, sample.AU{}, importer.StatusEOF, nil
	}

	toc := ParseTOC(ci.buf.Bytes()[0])
	payloadLen := FrameLength(ci.variant, toc.FT)
	if payloadLen < 0 {
		ci.sticky = errors.Errorf("amr: invalid frame type %d", toc.FT)
		return 0, sample.AU{}, importer.StatusError, ci.sticky
	}
	total := 1 + payloadLen
	if err := ci.buf.Update(total); err != nil {
		ci.sticky = err
		return 0, sample.AU{}, importer.StatusError, err
	}
	avail := ci.buf.End() - ci.buf.Pos()
	if avail < total {
		ci.eof = true
		return 0, sample.AU{}, importer.StatusEOF, nil
	}
	if len(dst) < total {
		return 0, sample.AU{}, importer.StatusError, errors.New("amr: destination buffer too small")
	}
	n := copy(dst, ci.buf.Bytes()[:total])
	ci.buf.Advance(total)

	spf := ci.variant.SamplesPerFrame()
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
	return n, au, importer.StatusOK, nil
}
