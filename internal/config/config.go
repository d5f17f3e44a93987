// Package config loads go-facemark settings from defaults, an optional
// .env file and FACEMARK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/teslashibe/go-facemark/pkg/camera"
	"github.com/teslashibe/go-facemark/pkg/detection"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"github.com/teslashibe/go-facemark/pkg/web"
)

// Environment variables
const (
	EnvModel         = "FACEMARK_MODEL"
	EnvDetector      = "FACEMARK_DETECTOR"
	EnvDetectorModel = "FACEMARK_DETECTOR_MODEL"
	EnvDevice        = "FACEMARK_DEVICE"
	EnvCameraPreset  = "FACEMARK_CAMERA_PRESET"
	EnvLogLevel      = "FACEMARK_LOG_LEVEL"
	EnvLogFile       = "FACEMARK_LOG_FILE"
	EnvWebAddr       = "FACEMARK_WEB_ADDR"
)

// DefaultEnvFile is read when present
const DefaultEnvFile = ".env"

// Config aggregates everything the commands need
type Config struct {
	Camera    camera.Config
	Detection detection.Config
	Overlay   overlay.Options
	Web       web.Config
	WebEnable bool

	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string
}

// Default returns the zero-flag configuration: camera 0, dlib detector,
// landmark model in the working directory, both overlays on.
func Default() Config {
	return Config{
		Camera:    camera.DefaultConfig(),
		Detection: detection.DefaultConfig(),
		Overlay:   overlay.DefaultOptions(),
		Web:       web.DefaultConfig(),
		LogLevel:  "info",
	}
}

// Load reads envFile (missing is fine), applies the environment and validates.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FACEMARK_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvModel); ok && v != "" {
		c.Detection.LandmarkModelPath = v
	}
	if v, ok := lookup(EnvDetector); ok && v != "" {
		c.SetDetector(v)
	}
	if v, ok := lookup(EnvDetectorModel); ok && v != "" {
		c.Detection.DetectorModelPath = v
	}
	if v, ok := lookup(EnvCameraPreset); ok && v != "" {
		if err := c.SetPreset(v); err != nil {
			return fmt.Errorf("config: %s: %w", EnvCameraPreset, err)
		}
	}
	if v, ok := lookup(EnvDevice); ok && v != "" {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s=%q is not a device index", EnvDevice, v)
		}
		c.Camera.DeviceID = id
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogFile); ok {
		c.LogFile = v
	}
	if v, ok := lookup(EnvWebAddr); ok && v != "" {
		c.Web.Addr = v
		c.WebEnable = true
	}
	return nil
}

// SetPreset applies a camera resolution preset, keeping the device index.
func (c *Config) SetPreset(name string) error {
	preset := camera.GetPreset(strings.ToLower(strings.TrimSpace(name)))
	if preset == nil {
		return fmt.Errorf("unknown camera preset %q (want one of %s)", name, strings.Join(camera.PresetNames(), ", "))
	}
	preset.DeviceID = c.Camera.DeviceID
	c.Camera = *preset
	return nil
}

// SetDetector selects a detector backend. Its default model path replaces
// an empty path or another backend's default; explicit paths are kept.
func (c *Config) SetDetector(name string) {
	name = strings.ToLower(name)
	c.Detection.Detector = name

	defaults := map[string]string{
		detection.BackendDlib:  "",
		detection.BackendYuNet: detection.YuNetConfig().DetectorModelPath,
		detection.BackendHaar:  detection.HaarConfig().DetectorModelPath,
	}
	current := c.Detection.DetectorModelPath
	for _, path := range defaults {
		if current == path {
			c.Detection.DetectorModelPath = defaults[name]
			return
		}
	}
}

var validate = validator.New()

// Validate checks every section. Model files are not touched here; a
// missing model is reported when the session loads it.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
