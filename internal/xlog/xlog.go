/*
NAME
  xlog.go

DESCRIPTION
  xlog.go provides the single shared logger every package in this module
  logs debug/info messages through, replacing the per-package "logger"
  globals duplicated across the codec/h264/h264dec files with one
  definition.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package xlog provides the shared debug/info logger used across esimport.
package xlog

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// L is the package-wide logger, matching the "logger.Printf("debug: ...")"
// shape used throughout the h264dec package. It discards output
// by default; call SetOutput or UseRotatingFile to enable it.
var L = log.New(io.Discard, "", log.LstdFlags)

// SetOutput redirects L's output, e.g. to os.Stderr for a CLI front end.
func SetOutput(w io.Writer) { L.SetOutput(w) }

// UseRotatingFile points L at a log file rotated by
// gopkg.in/natefinch/lumberjack.v2, for any long-running import front end
// that wants bounded log growth.
func UseRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	L.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	})
}

// UseStderr is a convenience for interactive debugging.
func UseStderr() { SetOutput(os.Stderr) }
