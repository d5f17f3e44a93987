package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facemark/internal/config"
	"github.com/teslashibe/go-facemark/internal/log"
	"github.com/teslashibe/go-facemark/pkg/display"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"github.com/teslashibe/go-facemark/pkg/session"
	"github.com/teslashibe/go-facemark/pkg/web"
)

var webAddr string

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the control panel with start/stop buttons and overlay toggles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		if cmd.Flags().Changed("web") {
			c.Web.Addr = webAddr
			c.WebEnable = webAddr != ""
			if err := c.Validate(); err != nil {
				return err
			}
		}
		return runPanel(cmd.Context(), c)
	},
}

func init() {
	panelCmd.Flags().StringVar(&webAddr, "web", "", "Also serve a browser preview on this address (e.g. :8080)")
	rootCmd.AddCommand(panelCmd)
}

// runPanel runs the Ebitengine panel on the main goroutine; the camera
// runs on the session's capture goroutine.
func runPanel(ctx context.Context, cfg config.Config) error {
	slot := display.NewSlot()
	ctrl := session.New(session.Options{
		Camera:    cfg.Camera,
		Detection: cfg.Detection,
		Toggles:   overlay.NewToggles(cfg.Overlay),
		Sinks:     []session.Sink{slot},
	})
	defer ctrl.Close()

	// Eager load so a missing model shows up before the first click
	if err := ctrl.LoadModels(); err != nil {
		log.Warn(log.Fields{"error": err}, "models not loaded, will retry on start")
	}

	if cfg.WebEnable {
		srv := web.NewServer(ctx, cfg.Web, ctrl)
		ctrl.AddSink(srv)
		srv.ListenAsync()
		defer srv.Shutdown()
	}

	panel := display.NewPanel(ctx, ctrl, slot, windowTitle)
	if err := panel.Run(); err != nil {
		return err
	}

	log.Info(log.Fields{"frames": slot.Published(), "dropped_frames": slot.Dropped()}, "panel closed")
	return nil
}
