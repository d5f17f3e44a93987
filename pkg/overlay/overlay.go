// Package overlay draws face boxes and landmark points onto frames.
package overlay

import (
	"image/color"
	"sync/atomic"

	"github.com/teslashibe/go-facemark/pkg/detection"
	"gocv.io/x/gocv"
)

var (
	// BoxColor is the face rectangle color (green).
	BoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

	// PointColor is the landmark color (red).
	PointColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// Default drawing parameters
const (
	DefaultBoxThickness      = 2
	DefaultPointRadius       = 2 // control panel
	DefaultWindowPointRadius = 1 // bare window
)

// Options controls what Render draws
type Options struct {
	DrawBoxes    bool `json:"draw_boxes"`
	DrawPoints   bool `json:"draw_points"`
	PointRadius  int  `json:"point_radius"`
	BoxThickness int  `json:"box_thickness"`
}

// DefaultOptions returns both layers enabled with panel sizing.
func DefaultOptions() Options {
	return Options{
		DrawBoxes:    true,
		DrawPoints:   true,
		PointRadius:  DefaultPointRadius,
		BoxThickness: DefaultBoxThickness,
	}
}

// Render returns a copy of frame with the faces drawn on it.
// Boxes are drawn before points so landmarks stay visible on the border.
// The input frame is never modified.
func Render(frame gocv.Mat, faces []detection.Face, opts Options) gocv.Mat {
	out := frame.Clone()
	if len(faces) == 0 || (!opts.DrawBoxes && !opts.DrawPoints) {
		return out
	}

	thickness := opts.BoxThickness
	if thickness <= 0 {
		thickness = DefaultBoxThickness
	}
	radius := opts.PointRadius
	if radius <= 0 {
		radius = DefaultPointRadius
	}

	if opts.DrawBoxes {
		for _, f := range faces {
			gocv.RectangleWithParams(&out, f.Region.Rect(), BoxColor, thickness, gocv.Line8, 0)
		}
	}

	if opts.DrawPoints {
		for _, f := range faces {
			if f.Landmarks == nil {
				continue
			}
			for _, p := range f.Landmarks {
				gocv.CircleWithParams(&out, p, radius, PointColor, -1, gocv.Line8, 0)
			}
		}
	}

	return out
}

// Toggles holds the two overlay switches. It is safe for concurrent use,
// so a UI goroutine can flip it while the capture loop reads it.
type Toggles struct {
	boxes  atomic.Bool
	points atomic.Bool
	radius atomic.Int32
}

// NewToggles returns toggles initialized from opts.
func NewToggles(opts Options) *Toggles {
	t := &Toggles{}
	t.boxes.Store(opts.DrawBoxes)
	t.points.Store(opts.DrawPoints)
	t.radius.Store(int32(opts.PointRadius))
	return t
}

// SetBoxes enables or disables face rectangles.
func (t *Toggles) SetBoxes(on bool) { t.boxes.Store(on) }

// SetPoints enables or disables landmark points.
func (t *Toggles) SetPoints(on bool) { t.points.Store(on) }

// Boxes reports whether rectangles are drawn.
func (t *Toggles) Boxes() bool { return t.boxes.Load() }

// Points reports whether landmarks are drawn.
func (t *Toggles) Points() bool { return t.points.Load() }

// Options snapshots the toggles for one frame.
func (t *Toggles) Options() Options {
	return Options{
		DrawBoxes:    t.boxes.Load(),
		DrawPoints:   t.points.Load(),
		PointRadius:  int(t.radius.Load()),
		BoxThickness: DefaultBoxThickness,
	}
}
