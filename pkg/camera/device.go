package camera

import (
	"fmt"
	"sync"

	"github.com/teslashibe/go-facemark/internal/log"
	"gocv.io/x/gocv"
)

// Device is an open capture device.
// Read and Release are serialized, so a Release issued while a Read is in
// flight waits for that read to finish before closing the handle.
type Device struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture

	releaseOnce sync.Once
	releaseErr  error
}

// Open opens the camera described by cfg.
// The returned error wraps ErrDeviceUnavailable when the device cannot be opened.
func Open(cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d", ErrDeviceUnavailable, cfg.DeviceID)
	}

	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	}

	width := int(vc.Get(gocv.VideoCaptureFrameWidth))
	height := int(vc.Get(gocv.VideoCaptureFrameHeight))
	fields := log.Fields{"device": cfg.DeviceID, "width": width, "height": height}
	if (cfg.Width > 0 && width != cfg.Width) || (cfg.Height > 0 && height != cfg.Height) {
		fields["requested"] = fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
		log.Warn(fields, "camera ignored the requested resolution")
	} else {
		log.Info(fields, "camera opened")
	}

	return &Device{capture: vc}, nil
}

// Read grabs the next frame into a freshly allocated BGR Mat owned by the caller.
// A failed grab, an empty frame or a released device all yield ErrEndOfStream.
// The caller owns the Mat only when err is nil.
func (d *Device) Read() (gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return gocv.Mat{}, ErrEndOfStream
	}

	frame := gocv.NewMat()
	if ok := d.capture.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, ErrEndOfStream
	}
	return frame, nil
}

// Release closes the device. Only the first call closes the handle.
func (d *Device) Release() error {
	d.releaseOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.capture != nil {
			d.releaseErr = d.capture.Close()
			d.capture = nil
		}
	})
	return d.releaseErr
}
