// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-facemark/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether per-frame logs are shown (face counts, timings).
// Use --debug-frames to enable these very verbose logs
var Frames bool

// Log emits a debug line only if debug mode is enabled
func Log(fields log.Fields, msg string) {
	if Enabled {
		log.L().WithFields(fields).Info(msg)
	}
}

// FrameLog emits a line only if per-frame debug mode is enabled
func FrameLog(fields log.Fields, msg string) {
	if Frames {
		log.L().WithFields(fields).Info(msg)
	}
}
