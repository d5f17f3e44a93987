package camera

import "errors"

var (
	// ErrDeviceUnavailable is returned when the camera cannot be opened.
	ErrDeviceUnavailable = errors.New("camera: device unavailable")

	// ErrEndOfStream is returned by Read when the device yields no frame.
	ErrEndOfStream = errors.New("camera: end of stream")
)
