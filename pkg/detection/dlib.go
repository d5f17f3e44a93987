//go:build !nodlib

package detection

// #cgo pkg-config: dlib-1
// #cgo CXXFLAGS: -std=c++14 -Wall -O3 -DNDEBUG
// #include <stdlib.h>
// #include "dlib_shim.h"
import "C"

import (
	"errors"
	"image"
	"unsafe"

	"gocv.io/x/gocv"
)

// dlibDetector wraps dlib's HOG frontal face detector.
type dlibDetector struct {
	handle   unsafe.Pointer
	upsample int
}

func newDlibDetector(upsample int) (*dlibDetector, error) {
	result := C.fm_detector_init()
	if result.error_message != nil {
		defer C.free(unsafe.Pointer(result.error_message))
		return nil, errors.New(C.GoString(result.error_message))
	}
	return &dlibDetector{handle: result.handle, upsample: upsample}, nil
}

// Detect runs the HOG detector on a grayscale frame.
func (d *dlibDetector) Detect(gray gocv.Mat) ([]Region, error) {
	buf := gray.ToBytes()
	if len(buf) == 0 {
		return nil, errors.New("dlib: empty frame")
	}

	result := C.fm_detector_detect(d.handle, (*C.uchar)(unsafe.Pointer(&buf[0])),
		C.int(gray.Rows()), C.int(gray.Cols()), C.int(d.upsample))
	if result.error_message != nil {
		defer C.free(unsafe.Pointer(result.error_message))
		return nil, errors.New(C.GoString(result.error_message))
	}
	if result.count == 0 {
		return nil, nil
	}
	defer C.free(unsafe.Pointer(result.rects))

	rects := unsafe.Slice(result.rects, int(result.count))
	regions := make([]Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, Region{
			Left:   int(r.left),
			Top:    int(r.top),
			Right:  int(r.right),
			Bottom: int(r.bottom),
		})
	}
	return regions, nil
}

func (d *dlibDetector) Close() error {
	if d.handle != nil {
		C.fm_detector_free(d.handle)
		d.handle = nil
	}
	return nil
}

// dlibPredictor wraps a dlib shape predictor loaded from a .dat file.
type dlibPredictor struct {
	handle unsafe.Pointer
}

func newDlibPredictor(modelPath string) (*dlibPredictor, error) {
	cModelPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cModelPath))

	result := C.fm_predictor_init(cModelPath)
	if result.error_message != nil {
		defer C.free(unsafe.Pointer(result.error_message))
		return nil, errors.New(C.GoString(result.error_message))
	}
	return &dlibPredictor{handle: result.handle}, nil
}

// Predict runs the shape predictor inside r.
func (p *dlibPredictor) Predict(gray gocv.Mat, r Region) ([]image.Point, error) {
	buf := gray.ToBytes()
	if len(buf) == 0 {
		return nil, errors.New("dlib: empty frame")
	}

	cRegion := C.fm_rect{
		left:   C.long(r.Left),
		top:    C.long(r.Top),
		right:  C.long(r.Right),
		bottom: C.long(r.Bottom),
	}
	result := C.fm_predictor_predict(p.handle, (*C.uchar)(unsafe.Pointer(&buf[0])),
		C.int(gray.Rows()), C.int(gray.Cols()), cRegion)
	if result.error_message != nil {
		defer C.free(unsafe.Pointer(result.error_message))
		return nil, errors.New(C.GoString(result.error_message))
	}
	if result.count == 0 {
		return nil, nil
	}
	defer C.free(unsafe.Pointer(result.points))

	parts := unsafe.Slice(result.points, int(result.count))
	points := make([]image.Point, len(parts))
	for i, pt := range parts {
		points[i] = image.Pt(int(pt.x), int(pt.y))
	}
	return points, nil
}

func (p *dlibPredictor) Close() error {
	if p.handle != nil {
		C.fm_predictor_free(p.handle)
		p.handle = nil
	}
	return nil
}
