//go:build nodlib

package detection

import "fmt"

// Builds tagged nodlib carry no dlib backends. The yunet and haar detectors
// still compile, but Load fails because the landmark predictor is dlib-only.

func newDlibDetector(upsample int) (FaceDetector, error) {
	return nil, fmt.Errorf("%w: built with nodlib", ErrBackendUnavailable)
}

func newDlibPredictor(modelPath string) (LandmarkPredictor, error) {
	return nil, fmt.Errorf("%w: built with nodlib", ErrBackendUnavailable)
}
