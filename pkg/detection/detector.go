// Package detection adapts pretrained face detectors and the dlib 68-point
// landmark predictor behind a single Adapter.
package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gocv.io/x/gocv"
)

// NumLandmarks is the number of points produced by the shape predictor.
const NumLandmarks = 68

// Region is the bounding box of a detected face in frame pixel coordinates.
// Right and Bottom are inclusive, as reported by dlib.
type Region struct {
	Left, Top, Right, Bottom int
}

// RegionFromRect converts an image.Rectangle (exclusive Max) to a Region.
func RegionFromRect(r image.Rectangle) Region {
	return Region{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X - 1, Bottom: r.Max.Y - 1}
}

// Rect returns the rectangle whose Min and Max are the region corners.
// This is the form gocv drawing functions expect.
func (r Region) Rect() image.Rectangle {
	return image.Rectangle{Min: image.Pt(r.Left, r.Top), Max: image.Pt(r.Right, r.Bottom)}
}

// Width returns the number of pixel columns covered by the region.
func (r Region) Width() int {
	return r.Right - r.Left + 1
}

// Height returns the number of pixel rows covered by the region.
func (r Region) Height() int {
	return r.Bottom - r.Top + 1
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.Right < r.Left || r.Bottom < r.Top
}

// Overlaps reports whether the region shares at least one pixel with a
// frame of the given size.
func (r Region) Overlaps(width, height int) bool {
	if r.Empty() {
		return false
	}
	return r.Right >= 0 && r.Bottom >= 0 && r.Left < width && r.Top < height
}

// LandmarkSet holds the 68 facial points in the predictor's anatomical order.
type LandmarkSet [NumLandmarks]image.Point

// Face is a detected region with its landmarks, when they were computed.
type Face struct {
	Region    Region
	Landmarks *LandmarkSet
}

// FaceDetector finds face regions in a grayscale frame.
type FaceDetector interface {
	// Detect returns face regions in model order. An empty result is not an error.
	Detect(gray gocv.Mat) ([]Region, error)

	// Close releases resources
	Close() error
}

// LandmarkPredictor locates facial landmarks inside a face region.
type LandmarkPredictor interface {
	// Predict returns the points found inside r.
	Predict(gray gocv.Mat, r Region) ([]image.Point, error)

	// Close releases resources
	Close() error
}

// Detector backends
const (
	BackendDlib  = "dlib"  // dlib HOG frontal face detector
	BackendYuNet = "yunet" // OpenCV FaceDetectorYN (ONNX)
	BackendHaar  = "haar"  // OpenCV Haar cascade
)

// DefaultLandmarkModel is the file name of the dlib 68-point shape predictor.
const DefaultLandmarkModel = "shape_predictor_68_face_landmarks.dat"

// Config holds detection configuration
type Config struct {
	Detector          string  `json:"detector" validate:"oneof=dlib yunet haar"`
	DetectorModelPath string  `json:"detector_model_path" validate:"required_unless=Detector dlib"` // ONNX for yunet, XML for haar
	LandmarkModelPath string  `json:"landmark_model_path" validate:"required"`
	Upsample          int     `json:"upsample" validate:"gte=0,lte=3"`          // dlib pyramid upsampling passes
	ConfidenceThresh  float64 `json:"confidence_thresh" validate:"gte=0,lte=1"` // yunet only
	InputWidth        int     `json:"input_width" validate:"gte=0"`             // yunet initial input size
	InputHeight       int     `json:"input_height" validate:"gte=0"`
}

// DefaultConfig returns the dlib frontal detector with the 68-point predictor
// read from the working directory.
func DefaultConfig() Config {
	return Config{
		Detector:          BackendDlib,
		LandmarkModelPath: DefaultLandmarkModel,
		Upsample:          0,
		ConfidenceThresh:  0.5,
		InputWidth:        320,
		InputHeight:       320,
	}
}

// YuNetConfig returns production defaults for the YuNet detector
func YuNetConfig() Config {
	cfg := DefaultConfig()
	cfg.Detector = BackendYuNet
	cfg.DetectorModelPath = "models/face_detection_yunet.onnx"
	return cfg
}

// HaarConfig returns defaults for the OpenCV frontal face cascade
func HaarConfig() Config {
	cfg := DefaultConfig()
	cfg.Detector = BackendHaar
	cfg.DetectorModelPath = "models/haarcascade_frontalface_default.xml"
	return cfg
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks the config values without touching the filesystem.
func (c Config) Validate() error {
	validateOnce.Do(func() { validate = validator.New() })
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("detection: invalid config: %w", err)
	}
	return nil
}

// requireModel returns ErrModelFileMissing if path does not name a regular file.
func requireModel(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrModelFileMissing, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrModelFileMissing, path)
	}
	return nil
}
