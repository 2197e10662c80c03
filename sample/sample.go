/*
NAME
  sample.go

DESCRIPTION
  sample.go defines the access-unit and sample-property types shared by
  every codec parser and by the importer framework.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sample holds the access-unit, sample-property and summary types
// that every codec-specific parser produces and the importer framework
// delivers to callers.
package sample

// RandomAccess classifies the random-access property of an access unit, the
// ra_flags bit field of a sample-property flag set.
type RandomAccess uint8

const (
	RANone RandomAccess = iota
	RASync
	RARAP
	RAPostRollStart
	RAClosedRAP
	RAPartialSync
)

// Leading classifies whether a picture is a leading picture relative to its
// most recent random-access point.
type Leading uint8

const (
	LeadingNone Leading = iota
	LeadingDecodable
	LeadingUndecodable
)

// PostRoll carries the post_roll.{identifier, complete} pair attached to
// pictures following a POST_ROLL_START random-access point.
type PostRoll struct {
	Identifier uint32
	Complete   uint32
}

// Props is the per-sample property flag set attached to an access unit.
type Props struct {
	RandomAccess  RandomAccess
	Independent   bool
	Disposable    bool
	Redundant     bool
	Leading       Leading
	AllowEarlier  bool
	PreRollDist   uint16
	PostRoll      PostRoll
}

// AU is one emitted access unit: a contiguous byte payload tagged with
// timing and sample properties.
type AU struct {
	Data       []byte
	DTS        uint64
	CTS        uint64
	AUNumber   uint64
	Props      Props
}

// Kind discriminates an importer summary between audio and video.
type Kind uint8

const (
	KindAudio Kind = iota
	KindVideo
)

// Summary is the discriminated sample-description union for either an audio
// or video track, plus the list of opaque codec-configuration blobs
// (dac3/dec3/ddts/esds/avcC/hvcC/dvc1/damr) built alongside it.
type Summary struct {
	Kind  Kind
	Codec string

	// Audio fields.
	Frequency      uint32
	Channels       uint16
	SampleSize     uint16
	SamplesInFrame uint32

	// Video fields.
	Timescale      uint32
	Timebase       uint32
	Width          uint16
	Height         uint16
	PARWidth       uint16
	PARHeight      uint16
	SamplePerField bool

	MaxAULength uint32

	// ConfigBlobs holds the serialized codec-configuration box payloads
	// (one or more of dac3/dec3/ddts/esds/avcC/hvcC/dvc1/damr) ready for
	// embedding into an ISO base-media container.
	ConfigBlobs [][]byte
}

// Clone performs a deep copy of s:
// every nested slice (config blobs) is independently allocated so that
// mutating one summary can never affect another.
func (s Summary) Clone() Summary {
	out := s
	if s.ConfigBlobs != nil {
		out.ConfigBlobs = make([][]byte, len(s.ConfigBlobs))
		for i, b := range s.ConfigBlobs {
			out.ConfigBlobs[i] = append([]byte(nil), b...)
		}
	}
	return out
}
