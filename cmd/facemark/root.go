package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facemark/internal/config"
	"github.com/teslashibe/go-facemark/internal/log"
	"github.com/teslashibe/go-facemark/pkg/camera"
	"github.com/teslashibe/go-facemark/pkg/debug"
	"github.com/teslashibe/go-facemark/pkg/detection"
)

// Version is the application version.
const Version = "0.1.0"

const windowTitle = "Face Landmarks"

// Options holds the persistent flags shared by all commands
type Options struct {
	EnvFile       string
	Model         string
	Detector      string
	DetectorModel string
	Device        int
	Preset        string
	Width         int
	Height        int
	FPS           int
	Debug         bool
	DebugFrames   bool
	LogFile       string
}

var (
	opts Options

	// cfg is loaded once in PersistentPreRunE and read by subcommands
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "facemark",
	Short:         "Live face detection with 68-point landmarks",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(opts.EnvFile)
		if err != nil {
			return err
		}

		// Flags override env, env overrides defaults
		flags := cmd.Flags()
		if flags.Changed("model") {
			loaded.Detection.LandmarkModelPath = opts.Model
		}
		if flags.Changed("detector-model") {
			loaded.Detection.DetectorModelPath = opts.DetectorModel
		}
		if flags.Changed("detector") {
			loaded.SetDetector(opts.Detector)
		}
		if flags.Changed("device") {
			loaded.Camera.DeviceID = opts.Device
		}
		if flags.Changed("preset") {
			if err := loaded.SetPreset(opts.Preset); err != nil {
				return err
			}
		}
		if flags.Changed("width") {
			loaded.Camera.Width = opts.Width
		}
		if flags.Changed("height") {
			loaded.Camera.Height = opts.Height
		}
		if flags.Changed("fps") {
			loaded.Camera.FPS = opts.FPS
		}
		if flags.Changed("log-file") {
			loaded.LogFile = opts.LogFile
		}
		if opts.Debug || opts.DebugFrames {
			loaded.LogLevel = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		log.Init(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})
		debug.Enabled = cfg.LogLevel == "debug"
		debug.Frames = opts.DebugFrames

		debug.Log(log.Fields{
			"detector": cfg.Detection.Detector,
			"model":    cfg.Detection.LandmarkModelPath,
			"device":   cfg.Camera.DeviceID,
			"width":    cfg.Camera.Width,
			"height":   cfg.Camera.Height,
			"fps":      cfg.Camera.FPS,
		}, "configuration loaded")
		return nil
	},
}

// Execute runs the root command and exits 1 on failure
func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		die(describe(err), err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "Optional .env file with FACEMARK_* settings")
	pf.StringVarP(&opts.Model, "model", "m", detection.DefaultLandmarkModel, "Path to the dlib 68-point shape predictor")
	pf.StringVar(&opts.Detector, "detector", detection.BackendDlib, "Face detector: dlib, yunet, haar")
	pf.StringVar(&opts.DetectorModel, "detector-model", "", "Model file for the yunet (ONNX) or haar (XML) detector")
	pf.IntVarP(&opts.Device, "device", "d", camera.DefaultDeviceID, "Camera index")
	pf.StringVar(&opts.Preset, "preset", camera.PresetDefault, "Camera preset: "+strings.Join(camera.PresetNames(), ", "))
	pf.IntVar(&opts.Width, "width", 0, "Requested frame width (0 keeps the preset or driver default)")
	pf.IntVar(&opts.Height, "height", 0, "Requested frame height (0 keeps the preset or driver default)")
	pf.IntVar(&opts.FPS, "fps", 0, "Requested frame rate (0 keeps the preset or driver default)")
	pf.BoolVar(&opts.Debug, "debug", false, "Enable verbose debug logging")
	pf.BoolVar(&opts.DebugFrames, "debug-frames", false, "Log every processed frame (very verbose)")
	pf.StringVar(&opts.LogFile, "log-file", "", "Also write logs to this rotating file")
}

// describe turns a fatal error into a short headline for the user
func describe(err error) string {
	switch {
	case errors.Is(err, detection.ErrModelFileMissing):
		return fmt.Sprintf("Model file not found (download %s from dlib.net)", detection.DefaultLandmarkModel)
	case errors.Is(err, camera.ErrDeviceUnavailable):
		return "Cannot open camera"
	case errors.Is(err, detection.ErrBackendUnavailable):
		return "Detector backend not built into this binary"
	default:
		return "facemark failed"
	}
}

// die prints a boxed error and exits 1
func die(headline string, err error) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 FACEMARK ERROR: %s\n", headline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	os.Exit(1)
}
