/*
NAME
  paramsets.go

DESCRIPTION
  paramsets.go tracks the active and pending SPS/PPS lists and the
  NEW_DCR_REQUIRED / NEW_SAMPLE_ENTRY_REQUIRED activation policy that
  governs when a change to the parameter sets forces a new decoder
  config or sample entry.

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
	"sort"

	"github.com/pkg/errors"

	"github.com/ausocean/esimport/codec/h264/h264dec"
)

const (
	maxSPSCount = 31
	maxPPSCount = 255
)

var errTooManyParamSets = errors.New("h264: too many parameter sets")

// changeLevel ranks the severity of a parameter-set activation, so that
// folding several activations (e.g. an SPS and a PPS in the same AU) keeps
// the strongest one.
type changeLevel int

const (
	noChange changeLevel = iota
	newSampleEntryRequired
	newDCRRequired
)

func (a changeLevel) max(b changeLevel) changeLevel {
	if b > a {
		return b
	}
	return a
}

type spsEntry struct {
	raw    []byte
	sps    *h264dec.SPS
	unused bool
}

type ppsEntry struct {
	raw    []byte
	pps    *h264dec.PPS
	unused bool
}

// paramSets holds the active parameter-set lists and the pending
// replacements accumulated since the last promotion, per
// lsmash_append_h264_parameter_set's insert/mark-unused/reactivate policy.
type paramSets struct {
	sps map[int]*spsEntry
	pps map[int]*ppsEntry

	pendingSPS map[int]*spsEntry
	pendingPPS map[int]*ppsEntry

	spsExtCount int
}

func newParamSets() *paramSets {
	return &paramSets{
		sps:        map[int]*spsEntry{},
		pps:        map[int]*ppsEntry{},
		pendingSPS: map[int]*spsEntry{},
		pendingPPS: map[int]*ppsEntry{},
	}
}

// firstSPS returns the lowest-id active SPS, the "first SPS of the list"
// that later cropped-dimension comparisons are made against.
func (p *paramSets) firstSPS() *spsEntry {
	var best *spsEntry
	bestID := -1
	for id, e := range p.sps {
		if e.unused {
			continue
		}
		if best == nil || id < bestID {
			best, bestID = e, id
		}
	}
	return best
}

// addSPS records a parsed SPS as pending and returns the activation policy
// change it triggers.
func (p *paramSets) addSPS(id int, raw []byte, sps *h264dec.SPS) (changeLevel, error) {
	change := noChange

	if existing, ok := p.sps[id]; ok {
		if !existing.unused && !bytes.Equal(existing.raw, raw) {
			change = newDCRRequired
		}
	} else if len(p.sps) >= maxSPSCount {
		return noChange, errTooManyParamSets
	}

	if first := p.firstSPS(); first != nil && first.sps.SPSID != uint64(id) {
		if first.sps.Profile != sps.Profile ||
			first.sps.ChromaFormatIDC != sps.ChromaFormatIDC ||
			first.sps.BitDepthLumaMinus8 != sps.BitDepthLumaMinus8 ||
			first.sps.BitDepthChromaMinus8 != sps.BitDepthChromaMinus8 {
			change = change.max(newDCRRequired)
		}
		if croppedWidth(first.sps) != croppedWidth(sps) || croppedHeight(first.sps) != croppedHeight(sps) {
			change = change.max(newSampleEntryRequired)
		}
	}

	p.pendingSPS[id] = &spsEntry{raw: append([]byte(nil), raw...), sps: sps}
	return change, nil
}

// addPPS records a parsed PPS as pending and returns the activation policy
// change it triggers.
func (p *paramSets) addPPS(id int, raw []byte, pps *h264dec.PPS) (changeLevel, error) {
	change := noChange

	if existing, ok := p.pps[id]; ok {
		if !existing.unused && !bytes.Equal(existing.raw, raw) {
			change = newDCRRequired
		}
	} else if len(p.pps) >= maxPPSCount {
		return noChange, errTooManyParamSets
	}

	p.pendingPPS[id] = &ppsEntry{raw: append([]byte(nil), raw...), pps: pps}
	return change, nil
}

// promote moves every pending parameter set into the active lists, marking
// any superseded active entry unused first. The importer calls it right
// after each SPS or PPS is added, once the access unit in progress has been
// closed.
func (p *paramSets) promote() {
	for id, e := range p.pendingSPS {
		if old, ok := p.sps[id]; ok {
			old.unused = true
		}
		p.sps[id] = e
	}
	for id, e := range p.pendingPPS {
		if old, ok := p.pps[id]; ok {
			old.unused = true
		}
		p.pps[id] = e
	}
	p.pendingSPS = map[int]*spsEntry{}
	p.pendingPPS = map[int]*ppsEntry{}
}

func (p *paramSets) hasPending() bool {
	return len(p.pendingSPS) > 0 || len(p.pendingPPS) > 0
}

// activeSPS and activePPS look up by id, preferring a pending replacement
// (a slice referencing a just-parsed parameter set before the next
// promotion) over the currently active entry.
func (p *paramSets) activeSPS(id int) *h264dec.SPS {
	if e, ok := p.pendingSPS[id]; ok {
		return e.sps
	}
	if e, ok := p.sps[id]; ok && !e.unused {
		return e.sps
	}
	if e, ok := p.sps[id]; ok {
		return e.sps
	}
	return nil
}

func (p *paramSets) activePPS(id int) *h264dec.PPS {
	if e, ok := p.pendingPPS[id]; ok {
		return e.pps
	}
	if e, ok := p.pps[id]; ok {
		return e.pps
	}
	return nil
}

// sortedSPS and sortedPPS return the active, non-unused entries ordered
// ascending by id, for avcC serialization.
func (p *paramSets) sortedSPS() []*spsEntry {
	var ids []int
	for id, e := range p.sps {
		if !e.unused {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]*spsEntry, len(ids))
	for i, id := range ids {
		out[i] = p.sps[id]
	}
	return out
}

func (p *paramSets) sortedPPS() []*ppsEntry {
	var ids []int
	for id, e := range p.pps {
		if !e.unused {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]*ppsEntry, len(ids))
	for i, id := range ids {
		out[i] = p.pps[id]
	}
	return out
}

// croppedWidth and croppedHeight derive the cropped picture dimensions from
// an SPS, per clause 7.4.2.1.1's crop-offset equations (luma 4:2:0 chroma
// array type assumed, matching the other parsers' scope in this module).
func croppedWidth(sps *h264dec.SPS) int {
	w := int(sps.PicWidthInMBSMinus1+1) * 16
	if sps.FrameCroppingFlag {
		w -= int(sps.FrameCropLeftOffset+sps.FrameCropRightOffset) * 2
	}
	return w
}

func croppedHeight(sps *h264dec.SPS) int {
	frameMbsOnly := 1
	if !sps.FrameMBSOnlyFlag {
		frameMbsOnly = 2
	}
	h := int(sps.PicHeightInMapUnitsMinus1+1) * 16 / frameMbsOnly * frameMbsOnly
	if sps.FrameCroppingFlag {
		cropUnitY := 2
		if !sps.FrameMBSOnlyFlag {
			cropUnitY = 4
		}
		h -= int(sps.FrameCropTopOffset+sps.FrameCropBottomOffset) * cropUnitY
	}
	return h
}
