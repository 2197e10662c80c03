/*
NAME
  parser.go

DESCRIPTION
  parser.go walks core/extension substream syncwords into one access unit,
  terminating rule: a core substream after any substream,
  or an extension substream whose exss_index does not strictly increase.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dts

type substreamKind int

const (
	kindNone substreamKind = iota
	kindCore
	kindExtension
)

// Parser accumulates one DTS access unit's worth of core/extension
// substream state, per the loop `dts_get_substream_type` /
// `dts_parse_core_substream` / `dts_parse_extension_substream` drive in
// the original.
type Parser struct {
	flags     Flags
	core      CoreInfo
	extension ExtensionInfo
	lbr       LBRInfo
	lossless  LosslessInfo

	prevKind     substreamKind
	prevExtIndex int
}

// Reset clears accumulated state for a new access unit.
func (p *Parser) Reset() {
	*p = Parser{}
}

// Flags reports the substream/sub-payload combination accumulated so far.
func (p *Parser) Flags() Flags { return p.flags }

// Core, Extension, LBR, and Lossless expose the accumulated per-kind
// fields for BuildDdts.
func (p *Parser) Core() CoreInfo           { return p.core }
func (p *Parser) Extension() ExtensionInfo { return p.extension }
func (p *Parser) LBR() LBRInfo             { return p.lbr }
func (p *Parser) Lossless() LosslessInfo   { return p.lossless }

// Feed parses the substream frame at buf[0] and folds it into the access
// unit under construction. If the frame instead begins the next access
// unit (per the boundary rule above), Feed consumes nothing and returns
// newAU == true; the caller should finalize the current AU, call Reset,
// and Feed the same buffer again.
func (p *Parser) Feed(buf []byte) (frameSize int, newAU bool, err error) {
	if len(buf) < 4 {
		return 0, false, errShortCoreHeader
	}
	switch be32(buf) {
	case SyncwordCore:
		if p.prevKind != kindNone {
			return 0, true, nil
		}
		size, info, extra, err := parseCoreSubstream(buf)
		if err != nil {
			return 0, false, err
		}
		p.flags |= FlagCore | extra
		p.core = info
		p.prevKind = kindCore
		return size, false, nil

	case SyncwordExtension:
		if len(buf) < 6 {
			return 0, false, errShortExtHeader
		}
		peekIndex := int(buf[5] >> 6)
		if p.prevKind == kindExtension && peekIndex <= p.prevExtIndex {
			return 0, true, nil
		}
		size, extIndex, ext, lbr, lossless, extra, err := parseExtensionSubstream(buf)
		if err != nil {
			return 0, false, err
		}
		p.flags |= extra
		if ext.NumberOfAssets > 0 {
			p.extension = ext
		}
		if extra&FlagExtLBR != 0 {
			p.lbr = lbr
		}
		if extra&FlagExtXLL != 0 {
			p.lossless = lossless
		}
		p.prevKind = kindExtension
		p.prevExtIndex = extIndex
		return size, false, nil

	default:
		return 0, false, errUnrecognizedSync
	}
}

// Started reports whether any substream has been fed into the current AU.
func (p *Parser) Started() bool { return p.prevKind != kindNone }
