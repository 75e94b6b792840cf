// Package monitoring carries the process-wide diagnostic loggers shared
// by the terrain, georeferencing, and simulation packages. Keeping them
// here avoids plumbing a logger through every constructor.
package monitoring

import "log"

// Logf reports warnings and lifecycle events. It defaults to log.Printf
// and may be swapped out with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf reports high-volume progress chatter such as per-photo
// simulation updates. It is a no-op until SetDebug(true).
var Debugf func(format string, v ...interface{}) = discard

func discard(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = discard
		return
	}
	Logf = f
}

// SetDebug routes Debugf through the current Logf when enabled and
// back to a no-op when disabled.
func SetDebug(enabled bool) {
	if !enabled {
		Debugf = discard
		return
	}
	Debugf = func(format string, v ...interface{}) { Logf(format, v...) }
}
