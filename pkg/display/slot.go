// Package display shows rendered frames: a bare OpenCV window and an
// Ebitengine control panel.
package display

import (
	"image"
	"image/draw"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Panel video area
const (
	MaxFrameWidth  = 640
	MaxFrameHeight = 480
)

// Slot is a single-frame mailbox between the capture goroutine and the UI.
// Put overwrites any frame the UI has not taken yet.
type Slot struct {
	mu    sync.Mutex
	frame *image.RGBA
	fresh bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewSlot creates an empty slot
func NewSlot() *Slot {
	return &Slot{}
}

// Put stores img, replacing an unconsumed frame. The slot takes ownership.
func (s *Slot) Put(img *image.RGBA) {
	s.mu.Lock()
	if s.fresh {
		s.dropped.Add(1)
	}
	s.frame = img
	s.fresh = img != nil
	s.mu.Unlock()
	s.published.Add(1)
}

// Take returns the latest frame if one arrived since the last Take.
func (s *Slot) Take() (*image.RGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return nil, false
	}
	s.fresh = false
	return s.frame, true
}

// Clear drops any pending frame without counting it.
func (s *Slot) Clear() {
	s.mu.Lock()
	s.frame = nil
	s.fresh = false
	s.mu.Unlock()
}

// Dropped returns the number of frames overwritten before the UI took them.
func (s *Slot) Dropped() uint64 {
	return s.dropped.Load()
}

// Published returns the number of frames put into the slot.
func (s *Slot) Published() uint64 {
	return s.published.Load()
}

// Publish downscales frame to the panel size and stores it as RGBA.
// Called from the capture goroutine.
func (s *Slot) Publish(frame gocv.Mat, _ int) {
	if frame.Empty() {
		return
	}

	src := frame
	w, h := FitSize(frame.Cols(), frame.Rows(), MaxFrameWidth, MaxFrameHeight)
	if w != frame.Cols() || h != frame.Rows() {
		small := gocv.NewMat()
		defer small.Close()
		gocv.Resize(frame, &small, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
		src = small
	}

	img, err := src.ToImage()
	if err != nil {
		return
	}
	s.Put(toRGBA(img))
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// FitSize scales w×h down to fit inside maxW×maxH, preserving aspect ratio.
// Frames that already fit are returned unchanged.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}
	if w*maxH > h*maxW {
		return maxW, max(1, h*maxW/w)
	}
	return max(1, w*maxH/h), maxH
}
