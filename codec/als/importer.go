/*
NAME
  importer.go

DESCRIPTION
  importer.go registers the MPEG-4 ALS probe with package importer and
  implements importer.Importer, emitting one AU per random-access unit when
  random_access != 0, or the entire stream as a single AU otherwise.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package als

import (
	"github.com/pkg/errors"

	"github.com/ausocean/esimport/importer"
	"github.com/ausocean/esimport/sample"
	"github.com/ausocean/esimport/streambuf"
)

func init() {
	importer.Register("als", open)
}

type codecImporter struct {
	buf     *streambuf.Buffer
	cfg     *SpecificConfig
	summary sample.Summary

	raUnitIdx int
	au        uint64
	lastDelta uint32
	eof       bool
	sticky    error
	single    bool // entire stream is one AU (random_access == 0).
}

func open(src importer.Source) (importer.Importer, error) {
	buf := streambuf.New(src, 64<<10)
	if err := buf.Update(26); err != nil {
		return nil, errors.Wrap(err, "als: reading fixed prefix")
	}
	cfg, err := Parse(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "als: not an ALS stream")
	}
	buf.Advance(26)
	consumed := 26

	if cfg.ChanConfig {
		if err := buf.Update(2); err != nil {
			return nil, errors.Wrap(err, "als: reading chan_config_info")
		}
		buf.Advance(2)
		consumed += 2
	}
	if cfg.ChanSort {
		width := bitWidth(int(cfg.Channels) + 1)
		total := (width*int(cfg.Channels) + 7) / 8
		if err := buf.Update(total); err != nil {
			return nil, errors.Wrap(err, "als: reading chan_pos_info")
		}
		buf.Advance(total)
		consumed += total
	}

	if err := buf.Update(8); err != nil {
		return nil, errors.Wrap(err, "als: reading header/trailer sizes")
	}
	headerSize := be32(buf.Bytes()[0:4])
	trailerSize := be32(buf.Bytes()[4:8])
	buf.Advance(8)
	consumed += 8

	skip := int(headerSize) + int(trailerSize)
	if headerSize == 0xFFFFFFFF {
		skip -= int(headerSize)
	}
	if trailerSize == 0xFFFFFFFF {
		skip -= int(trailerSize)
	}
	if skip > 0 {
		if err := buf.Update(skip); err != nil {
			return nil, errors.Wrap(err, "als: reading original header/trailer payloads")
		}
		buf.Advance(skip)
		consumed += skip
	}
	if cfg.CRCEnabled {
		if err := buf.Update(4); err != nil {
			return nil, errors.Wrap(err, "als: reading CRC")
		}
		buf.Advance(4)
		consumed += 4
	}

	numRAUnits := 0
	if cfg.RAFlag == 2 && cfg.RandomAccess != 0 {
		numRAUnits = int((cfg.Samples + cfg.SamplesInFrame() - 1) / cfg.SamplesInFrame())
		if err := buf.Update(numRAUnits * 4); err != nil {
			return nil, errors.Wrap(err, "als: reading ra_unit_size table")
		}
		sizes, n, err := ParseRAUnitSizes(buf.Bytes(), numRAUnits)
		if err != nil {
			return nil, err
		}
		cfg.RAUnitSizes = sizes
		buf.Advance(n)
		consumed += n
	}
	if consumed < len(cfg.Blob) {
		cfg.Blob = cfg.Blob[:consumed]
	}
	cfg.FinalizeBlob()

	ci := &codecImporter{buf: buf, cfg: cfg, single: cfg.RandomAccess == 0}
	ci.summary = sample.Summary{
		Kind:           sample.KindAudio,
		Codec:          "als",
		Frequency:      cfg.SampFreq,
		Channels:       cfg.Channels,
		SampleSize:     uint16(cfg.Resolution) + 8,
		SamplesInFrame: cfg.SamplesInFrame(),
		MaxAULength:    1 << 20,
		ConfigBlobs:    [][]byte{cfg.Blob},
	}
	return ci, nil
}

func bitWidth(n int) int {
	w := 0
	for (1 << uint(w)) < n {
		w++
	}
	return w
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
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

	if ci.single {
		ci.eof = true
		n, err := readAll(ci.buf, dst)
		if err != nil {
			ci.sticky = err
			return 0, sample.AU{}, importer.StatusError, err
		}
		ci.lastDelta = ci.cfg.LastDelta(0, 0)
		au := sample.AU{
			Data:     dst[:n],
			AUNumber: 1,
			Props:    sample.Props{RandomAccess: sample.RASync, Independent: true},
		}
		return n, au, importer.StatusOK, nil
	}

	if ci.raUnitIdx >= len(ci.cfg.RAUnitSizes) {
		ci.eof = true
		return 0, sample.AU{}, importer.StatusEOF, nil
	}
	size := int(ci.cfg.RAUnitSizes[ci.raUnitIdx])
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
		return 0, sample.AU{}, importer.StatusError, errors.New("als: destination buffer too small")
	}
	n := copy(dst, ci.buf.Bytes()[:size])
	ci.buf.Advance(size)
	ci.raUnitIdx++

	spf := ci.cfg.SamplesInFrame()
	dts := ci.au * uint64(spf)
	ci.au++
	last := ci.raUnitIdx == len(ci.cfg.RAUnitSizes)
	if last {
		ci.lastDelta = ci.cfg.LastDelta(len(ci.cfg.RAUnitSizes), spf)
	} else {
		ci.lastDelta = spf
	}
	au := sample.AU{
		Data:     dst[:n],
		DTS:      dts,
		CTS:      dts,
		AUNumber: ci.au,
		Props:    sample.Props{RandomAccess: sample.RASync, Independent: true},
	}
	return n, au, importer.StatusOK, nil
}

func readAll(buf *streambuf.Buffer, dst []byte) (int, error) {
	total := 0
	for {
		if err := buf.Update(1 << 16); err != nil {
			return total, err
		}
		avail := buf.End() - buf.Pos()
		if avail == 0 {
			if buf.NoMoreRead() {
				return total, nil
			}
			continue
		}
		if total+avail > len(dst) {
			return total, errors.New("als: destination buffer too small")
		}
		n := copy(dst[total:], buf.Bytes())
		buf.Advance(n)
		total += n
		if buf.NoMoreRead() && buf.End()-buf.Pos() == 0 {
			return total, nil
		}
	}
}
