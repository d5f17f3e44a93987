// Package camera wraps the local webcam used as the frame source.
// Settings follow the same pattern as pkg/detection: a Config with defaults and presets.
package camera

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Config holds the capture device settings.
// Zero Width, Height or FPS leaves the driver default untouched.
type Config struct {
	DeviceID int `json:"device_id" validate:"gte=0"`       // System camera index
	Width    int `json:"width" validate:"gte=0,lte=7680"`  // Requested frame width in pixels
	Height   int `json:"height" validate:"gte=0,lte=4320"` // Requested frame height in pixels
	FPS      int `json:"fps" validate:"gte=0,lte=240"`     // Requested frame rate
}

// DefaultDeviceID is the default system camera.
const DefaultDeviceID = 0

// DefaultConfig returns the default system camera at its native resolution.
func DefaultConfig() Config {
	return Config{DeviceID: DefaultDeviceID}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks that the config values are within valid ranges.
func (c Config) Validate() error {
	validateOnce.Do(func() { validate = validator.New() })
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("camera: invalid config: %w", err)
	}
	return nil
}
