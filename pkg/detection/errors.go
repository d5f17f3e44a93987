package detection

import "errors"

var (
	// ErrModelFileMissing is returned when a model file cannot be found.
	ErrModelFileMissing = errors.New("detection: model file missing")

	// ErrRegionOutOfBounds is returned when a region does not overlap the frame.
	ErrRegionOutOfBounds = errors.New("detection: region out of bounds")

	// ErrLandmarkCount is returned when the predictor yields other than 68 points,
	// which means the model file is not a 68-point predictor.
	ErrLandmarkCount = errors.New("detection: unexpected landmark count")

	// ErrBackendUnavailable is returned when a backend was not compiled in.
	ErrBackendUnavailable = errors.New("detection: backend unavailable")

	// ErrClosed is returned when the adapter is used after Close.
	ErrClosed = errors.New("detection: adapter closed")
)
