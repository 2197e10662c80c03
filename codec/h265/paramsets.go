/*
NAME
  paramsets.go

DESCRIPTION
  paramsets.go parses the minimal subset of vps(), seq_parameter_set_rbsp()
  and pic_parameter_set_rbsp() that an hvcC box and POC derivation need, and
  keeps the latest VPS, SPS and PPS for each id. Unlike
  codec/h264/paramsets.go it has no pending lists, no unused marking and no
  promotion step: a new set replaces the stored one with the same id at once.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h265

import (
	"bytes"
)

// profileTierLevel holds the general_profile_tier_level() fields an hvcC
// box's configuration record embeds verbatim.
type profileTierLevel struct {
	profileSpace              uint8
	tierFlag                  bool
	profileIDC                uint8
	profileCompatibilityFlags uint32
	constraintIndicatorFlags  uint64 // 48 bits, stored in the low 48.
	levelIDC                  uint8
}

func parseProfileTierLevel(g *egolomb) profileTierLevel {
	var p profileTierLevel
	p.profileSpace = uint8(g.u(2))
	p.tierFlag = g.flag()
	p.profileIDC = uint8(g.u(5))
	p.profileCompatibilityFlags = uint32(g.u(32))
	p.constraintIndicatorFlags = g.u(48)
	p.levelIDC = uint8(g.u(8))
	return p
}

// VPS holds the fields of vps() this module tracks: just enough to validate
// an SPS's vps_id reference and to serialize the hvcC's VPS array.
type VPS struct {
	ID  int
	raw []byte
}

func parseVPS(rbsp []byte) (*VPS, error) {
	g := newEgolomb(rbsp)
	id := g.u(4)
	if g.err != nil {
		return nil, g.err
	}
	return &VPS{ID: int(id), raw: append([]byte(nil), rbsp...)}, nil
}

// SPS holds the seq_parameter_set_rbsp() fields needed for hvcC's profile/
// tier/level/chroma/bit-depth fields, POC derivation (log2_max_pic_order_
// cnt_lsb_minus4), and the cropped picture dimensions.
type SPS struct {
	ID               int
	VPSID            int
	MaxSubLayersM1   int
	PTL              profileTierLevel
	ChromaFormatIDC  int
	Width, Height    int // cropped dimensions, in luma samples.
	BitDepthLumaM8   int
	BitDepthChromaM8 int
	Log2MaxPOCLsbM4  int

	raw []byte
}

func parseSPS(rbsp []byte) (*SPS, error) {
	g := newEgolomb(rbsp)
	s := &SPS{raw: append([]byte(nil), rbsp...)}

	s.VPSID = int(g.u(4))
	s.MaxSubLayersM1 = int(g.u(3))
	_ = g.flag() // sps_temporal_id_nesting_flag

	s.PTL = parseProfileTierLevel(g)
	for i := 0; i < s.MaxSubLayersM1; i++ {
		_ = g.flag() // sub_layer_profile_present_flag[i]
		_ = g.flag() // sub_layer_level_present_flag[i]
	}
	if s.MaxSubLayersM1 > 0 {
		for i := s.MaxSubLayersM1; i < 8; i++ {
			_ = g.u(2) // reserved_zero_2bits
		}
	}
	// sub-layer profile/level blocks are not parsed: this module never reads
	// past them for fields of its own, and ue()-based fields resume at
	// sps_seq_parameter_set_id which follows the fixed-size PTL structure
	// only once any present sub-layer blocks have been skipped. Since this
	// module does not populate sub_layer_*_present_flag-gated sub-layer PTL
	// parsing, streams exercising more than one sub-layer are out of scope.

	s.ID = int(g.ue())
	s.ChromaFormatIDC = int(g.ue())
	separateColourPlane := false
	if s.ChromaFormatIDC == 3 {
		separateColourPlane = g.flag()
	}
	width := int(g.ue())
	height := int(g.ue())
	s.Width, s.Height = width, height

	if g.flag() { // conformance_window_flag
		left := g.ue()
		right := g.ue()
		top := g.ue()
		bottom := g.ue()
		subWidthC, subHeightC := chromaSubsampling(s.ChromaFormatIDC, separateColourPlane)
		s.Width -= int(left+right) * subWidthC
		s.Height -= int(top+bottom) * subHeightC
	}

	s.BitDepthLumaM8 = int(g.ue())
	s.BitDepthChromaM8 = int(g.ue())
	s.Log2MaxPOCLsbM4 = int(g.ue())

	return s, g.err
}

// chromaSubsampling reports the SubWidthC/SubHeightC conformance-window
// scale factors of Table 6-1.
func chromaSubsampling(chromaFormatIDC int, separateColourPlane bool) (int, int) {
	if separateColourPlane {
		return 1, 1
	}
	switch chromaFormatIDC {
	case 1: // 4:2:0
		return 2, 2
	case 2: // 4:2:2
		return 2, 1
	default: // 0 (monochrome) or 3 (4:4:4)
		return 1, 1
	}
}

// PPS holds the pic_parameter_set_rbsp() fields slice_segment_header()
// parsing needs.
type PPS struct {
	ID                            int
	SPSID                         int
	DependentSliceSegmentsEnabled bool
	OutputFlagPresent             bool
	NumExtraSliceHeaderBits       int

	raw []byte
}

func parsePPS(rbsp []byte) (*PPS, error) {
	g := newEgolomb(rbsp)
	p := &PPS{raw: append([]byte(nil), rbsp...)}
	p.ID = int(g.ue())
	p.SPSID = int(g.ue())
	p.DependentSliceSegmentsEnabled = g.flag()
	p.OutputFlagPresent = g.flag()
	p.NumExtraSliceHeaderBits = int(g.u(3))
	return p, g.err
}

// paramSets holds the latest VPS, SPS and PPS seen for each id. Adding a set
// overwrites the stored set with the same id immediately; superseded sets
// are not kept and nothing is held pending.
type paramSets struct {
	vps map[int]*VPS
	sps map[int]*SPS
	pps map[int]*PPS
}

func newParamSets() *paramSets {
	return &paramSets{
		vps: map[int]*VPS{},
		sps: map[int]*SPS{},
		pps: map[int]*PPS{},
	}
}

// addVPS, addSPS and addPPS store the incoming parameter set under its id and
// report whether it is new or differs from the entry it replaces. The
// importer does not use the result: it rebuilds the hvcC box after every SPS
// and PPS, and not after a VPS.
func (p *paramSets) addVPS(v *VPS) bool {
	changed := parametersChanged(p.vps[v.ID], v, func(e *VPS) []byte { return e.raw })
	p.vps[v.ID] = v
	return changed
}

func (p *paramSets) addSPS(s *SPS) bool {
	changed := parametersChanged(p.sps[s.ID], s, func(e *SPS) []byte { return e.raw })
	p.sps[s.ID] = s
	return changed
}

func (p *paramSets) addPPS(pp *PPS) bool {
	changed := parametersChanged(p.pps[pp.ID], pp, func(e *PPS) []byte { return e.raw })
	p.pps[pp.ID] = pp
	return changed
}

func parametersChanged[T any](existing *T, incoming *T, raw func(*T) []byte) bool {
	if existing == nil {
		return true
	}
	return !bytes.Equal(raw(existing), raw(incoming))
}

func (p *paramSets) vpsList() []*VPS {
	out := make([]*VPS, 0, len(p.vps))
	for _, v := range p.vps {
		out = append(out, v)
	}
	return out
}

func (p *paramSets) spsList() []*SPS {
	out := make([]*SPS, 0, len(p.sps))
	for _, s := range p.sps {
		out = append(out, s)
	}
	return out
}

func (p *paramSets) ppsList() []*PPS {
	out := make([]*PPS, 0, len(p.pps))
	for _, pp := range p.pps {
		out = append(out, pp)
	}
	return out
}
