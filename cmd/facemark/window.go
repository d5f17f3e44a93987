package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facemark/internal/config"
	"github.com/teslashibe/go-facemark/internal/log"
	"github.com/teslashibe/go-facemark/pkg/camera"
	"github.com/teslashibe/go-facemark/pkg/detection"
	"github.com/teslashibe/go-facemark/pkg/display"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"github.com/teslashibe/go-facemark/pkg/session"
	"github.com/teslashibe/go-facemark/pkg/vision"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Show the annotated camera feed in a plain window (q or Esc quits)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWindow(cmd.Context(), cfg, defaultWindowHooks)
	},
}

func init() {
	rootCmd.AddCommand(windowCmd)
}

// frameWindow displays frames; *display.Window satisfies it.
type frameWindow interface {
	// Show draws frame and reports whether the user asked to quit
	Show(frame gocv.Mat, delay int) bool
	Close() error
}

// windowHooks are the constructors runWindow uses
type windowHooks struct {
	LoadModels func(detection.Config) (session.Models, error)
	OpenCamera func(camera.Config) (session.Camera, error)
	NewWindow  func(title string) frameWindow
}

var defaultWindowHooks = windowHooks{
	LoadModels: session.LoadAdapter,
	OpenCamera: session.OpenDevice,
	NewWindow:  func(title string) frameWindow { return display.NewWindow(title) },
}

// runWindow captures, detects, renders and displays on the calling
// goroutine until quit, stream end or cancellation. A model or camera
// failure is returned so Execute exits 1; every other exit returns nil.
func runWindow(ctx context.Context, cfg config.Config, hooks windowHooks) error {
	models, err := hooks.LoadModels(cfg.Detection)
	if err != nil {
		return err
	}
	defer models.Close()

	cam, err := hooks.OpenCamera(cfg.Camera)
	if err != nil {
		return err
	}
	defer cam.Release()

	win := hooks.NewWindow(windowTitle)
	defer win.Close()

	proc := vision.NewProcessor(models)
	defer proc.Close()

	opts := cfg.Overlay
	opts.PointRadius = overlay.DefaultWindowPointRadius

	logger := log.With(log.Fields{"device": cfg.Camera.DeviceID, "detector": cfg.Detection.Detector})
	logger.Info("camera running, press q to quit")

	var frames uint64
	for ctx.Err() == nil {
		frame, err := cam.Read()
		if errors.Is(err, camera.ErrEndOfStream) {
			logger.WithField("frames", frames).Info("camera stream ended")
			return nil
		}
		if err != nil {
			return err
		}

		res, err := proc.Process(frame, opts)
		frame.Close()
		if err != nil {
			return err
		}

		quit := win.Show(res.Frame, 1)
		res.Frame.Close()
		frames++
		if quit {
			break
		}
	}

	logger.WithField("frames", frames).Info("window closed")
	return nil
}
