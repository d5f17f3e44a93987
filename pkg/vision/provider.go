// Package vision turns camera frames into annotated frames.
package vision

import (
	"gocv.io/x/gocv"
)

// Provider interface for camera access.
type Provider interface {
	Read() (gocv.Mat, error) // Returns an owned BGR frame
}
