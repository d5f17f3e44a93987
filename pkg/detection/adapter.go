package detection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-facemark/internal/log"
	"gocv.io/x/gocv"
)

// Adapter pairs a face detector with a landmark predictor.
// Both models are treated as black boxes; the adapter only enforces the
// contract around them (grayscale input, in-frame regions, 68 points).
type Adapter struct {
	detector  FaceDetector
	predictor LandmarkPredictor

	mu     sync.Mutex // Protects inference; the native models are not reentrant
	closed bool
}

// NewAdapter assembles an adapter from already loaded backends.
func NewAdapter(detector FaceDetector, predictor LandmarkPredictor) *Adapter {
	return &Adapter{detector: detector, predictor: predictor}
}

// Load checks the model files named by cfg and loads both models.
// A missing file yields an error wrapping ErrModelFileMissing.
func Load(cfg Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := requireModel(cfg.LandmarkModelPath); err != nil {
		return nil, err
	}
	if cfg.Detector != BackendDlib {
		if err := requireModel(cfg.DetectorModelPath); err != nil {
			return nil, err
		}
	}

	predictor, err := newDlibPredictor(cfg.LandmarkModelPath)
	if err != nil {
		return nil, fmt.Errorf("load landmark model: %w", err)
	}

	detector, err := newDetector(cfg)
	if err != nil {
		predictor.Close()
		return nil, fmt.Errorf("load %s detector: %w", cfg.Detector, err)
	}

	log.Info(log.Fields{
		"detector":       cfg.Detector,
		"landmark_model": cfg.LandmarkModelPath,
	}, "models loaded")

	return NewAdapter(detector, predictor), nil
}

func newDetector(cfg Config) (FaceDetector, error) {
	switch cfg.Detector {
	case BackendDlib:
		return newDlibDetector(cfg.Upsample)
	case BackendYuNet:
		return NewYuNet(cfg)
	case BackendHaar:
		return NewHaar(cfg.DetectorModelPath)
	default:
		return nil, fmt.Errorf("unsupported detector: %s", cfg.Detector)
	}
}

// Detect returns the face regions found in a grayscale frame.
func (a *Adapter) Detect(gray gocv.Mat) ([]Region, error) {
	if err := checkGray(gray); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	return a.detector.Detect(gray)
}

// Landmarks returns exactly NumLandmarks points for region r.
// Regions that do not overlap the frame yield ErrRegionOutOfBounds.
func (a *Adapter) Landmarks(gray gocv.Mat, r Region) (LandmarkSet, error) {
	var set LandmarkSet

	if err := checkGray(gray); err != nil {
		return set, err
	}
	if !r.Overlaps(gray.Cols(), gray.Rows()) {
		return set, fmt.Errorf("%w: %+v in %dx%d frame", ErrRegionOutOfBounds, r, gray.Cols(), gray.Rows())
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return set, ErrClosed
	}
	points, err := a.predictor.Predict(gray, r)
	a.mu.Unlock()
	if err != nil {
		return set, err
	}

	if len(points) != NumLandmarks {
		return set, fmt.Errorf("%w: got %d, want %d", ErrLandmarkCount, len(points), NumLandmarks)
	}
	copy(set[:], points)
	return set, nil
}

// Close releases both models. Calling Close more than once is safe.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return errors.Join(a.detector.Close(), a.predictor.Close())
}

func checkGray(m gocv.Mat) error {
	if m.Empty() {
		return fmt.Errorf("detection: empty frame")
	}
	if m.Channels() != 1 {
		return fmt.Errorf("detection: expected grayscale frame, got %d channels", m.Channels())
	}
	return nil
}
