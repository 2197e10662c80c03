/*
NAME
  importer.go

DESCRIPTION
  importer.go defines the Importer interface and Status codes that every
  per-codec parser in this module implements, and the top-level open/close
  entry points ("External interfaces").

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package importer provides the format auto-detecting elementary-stream
// importer framework: Open dispatches to a registered per-codec probe,
// GetAccessUnit/GetLastDelta/GetTrackCount/DuplicateSummary are then driven
// by a container writer (out of scope for this module).
package importer

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/ausocean/esimport/sample"
)

// Status is the ternary-plus-change result of GetAccessUnit.
type Status int

const (
	// StatusOK indicates a normally delivered access unit.
	StatusOK Status = iota
	// StatusChange indicates the delivered access unit's sample description
	// has changed from the previously active one; the caller must call
	// DuplicateSummary and replace its active summary before using this AU.
	StatusChange
	// StatusEOF indicates end of stream; the delivered access unit has zero length.
	StatusEOF
	// StatusError is sticky: once returned, every subsequent call returns it again.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusChange:
		return "CHANGE"
	case StatusEOF:
		return "EOF"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Importer is implemented by every per-codec parser. Track numbering is
// 1-based; every importer in this framework exposes exactly one track.
type Importer interface {
	// TrackCount returns the number of summaries registered (always 1).
	TrackCount() int

	// GetAccessUnit writes one access unit's payload into buf (which must be
	// at least as large as the active summary's MaxAULength), and returns the
	// number of bytes written, the access unit's timing/property metadata,
	// and the delivery status.
	GetAccessUnit(track int, buf []byte) (int, sample.AU, Status, error)

	// GetLastDelta returns the duration of the final access unit in media
	// timebase units, or zero if unknown or on error.
	GetLastDelta(track int) uint32

	// Summary returns the currently active sample description for track.
	Summary(track int) sample.Summary

	// DuplicateSummary returns a deep copy of the active summary for track
	// (see sample.Summary.Clone).
	DuplicateSummary(track int) sample.Summary

	// Close releases all resources owned by the importer. It is always
	// valid to call, even after a sticky StatusError.
	Close() error
}

// Source is the minimal read/seek backend an importer probe consumes.
// File I/O policy beyond this is explicitly out of scope.
type Source interface {
	io.Reader
	io.Seeker
}

// OpenFunc attempts to recognize and open identifier's content as a
// particular codec's elementary stream. It must read only from src (already
// positioned at offset 0) and return a non-nil error if the format is not
// recognized, so that Open can seek back to zero and try the next probe.
type OpenFunc func(src Source) (Importer, error)

// probe pairs a registered codec's class name (used for explicit -format
// matching) with its OpenFunc, in registration order.
type probe struct {
	name string
	open OpenFunc
}

var registry []probe

// Register adds a probe under the given class name. Importer packages call
// this from an init() so that registration order matches import order;
// callers of this module are expected to blank-import every codec package
// they want auto-detected, mirroring how image.RegisterFormat is used in
// the standard library.
func Register(name string, open OpenFunc) {
	registry = append(registry, probe{name: name, open: open})
}

var openGroup singleflight.Group

// Open opens identifier (or standard input when identifier == "-", which
// requires an explicit format) and either auto-detects the format by trying
// every registered probe in registration order, or, when format is
// non-empty, invokes only the probe whose class name matches it.
//
// singleflight collapses concurrent Open calls for the same identifier into
// one probe attempt; the importer returned is still only ever driven by one
// goroutine at a time.
func Open(identifier, format string) (Importer, error) {
	v, err, _ := openGroup.Do(identifier+"\x00"+format, func() (interface{}, error) {
		return open(identifier, format)
	})
	if err != nil {
		return nil, err
	}
	return v.(Importer), nil
}

func open(identifier, format string) (Importer, error) {
	var src Source
	if identifier == "-" {
		if format == "" {
			return nil, errors.New("format must be specified explicitly when reading from standard input")
		}
		f, ok := os.Stdin.(Source)
		if !ok {
			return nil, errors.New("standard input does not support seeking")
		}
		src = f
	} else {
		f, err := os.Open(identifier)
		if err != nil {
			return nil, errors.Wrap(err, "could not open identifier")
		}
		src = f
	}

	if format != "" {
		for _, p := range registry {
			if p.name != format {
				continue
			}
			return p.open(src)
		}
		return nil, errors.Errorf("no importer registered for format %q", format)
	}

	var lastErr error
	for _, p := range registry {
		imp, err := p.open(src)
		if err == nil {
			return imp, nil
		}
		lastErr = err
		if _, serr := src.Seek(0, io.SeekStart); serr != nil {
			return nil, errors.Wrap(serr, "could not seek back to zero between probes")
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no registered importer")
	}
	return nil, errors.Wrap(lastErr, "no importer recognized the stream")
}

// Close releases all resources owned by imp. It is equivalent to
// imp.Close() and exists to mirror the close(handle) entry point.
func Close(imp Importer) error { return imp.Close() }

// GetAccessUnit is a thin wrapper matching the
// get_access_unit(handle, track, sample) signature.
func GetAccessUnit(imp Importer, track int, buf []byte) (int, sample.AU, Status, error) {
	return imp.GetAccessUnit(track, buf)
}

// GetLastDelta is a thin wrapper matching get_last_delta.
func GetLastDelta(imp Importer, track int) uint32 { return imp.GetLastDelta(track) }

// GetTrackCount is a thin wrapper matching get_track_count.
func GetTrackCount(imp Importer) int { return imp.TrackCount() }

// DuplicateSummary is a thin wrapper matching duplicate_summary.
func DuplicateSummary(imp Importer, track int) sample.Summary { return imp.DuplicateSummary(track) }
