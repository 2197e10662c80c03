/*
NAME
  frame.go

DESCRIPTION
  frame.go parses the Advanced Profile picture-layer fields this module
  tracks: picture type, disposability, and the GOP/sequence-boundary flags
  an entry-point or sequence header arriving just ahead of this frame
  attaches to it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vc1

// ptype enumerates the VC-1 picture coding types (PTYPE field), FLC Table 13.
type ptype int

const (
	ptypeI ptype = iota
	ptypeP
	ptypeB
	ptypeBI
	ptypeSkip
)

// Frame holds the picture-layer fields this module tracks for a frame
// (progressive) or frame-interlaced EBDU.
type Frame struct {
	Type             ptype
	Disposable       bool // B or BI pictures: not referenced by any other picture.
	NonBipredictive  bool
	StartOfSequence  bool // set when a sequence header immediately preceded this frame.
	ClosedGOP        bool // carried from the preceding entry-point header, if any.
	RandomAccessible bool // carried from the preceding entry-point header, if any.
}

// parseFrame parses PTYPE from the front of a frame-header payload. Only
// the picture-type field is decoded: the remaining picture-layer syntax
// (MV modes, quantizer, in-loop deblocking flags) has no bearing on access-
// unit boundaries, disposability, or timing, which is the extent of this
// module's scope for the picture layer.
func parseFrame(payload []byte) (*Frame, error) {
	r := newBitReader(payload)

	f := &Frame{}
	// PTYPE is a variable-length code (FLC Table 13); this module decodes
	// just the prefix bits needed to distinguish I/P/B/BI (a skipped
	// picture is not told apart from these), which is
	// always present at the start of the progressive picture layer's
	// PTYPE field for Advanced Profile.
	switch {
	case r.flag(): // 1
		switch {
		case r.flag(): // 11
			f.Type = ptypeB
			if r.flag() { // 111
				f.Type = ptypeBI
			}
		default: // 10
			f.Type = ptypeP
		}
	default: // 0
		f.Type = ptypeI
	}

	f.Disposable = f.Type == ptypeB || f.Type == ptypeBI
	return f, r.err
}
