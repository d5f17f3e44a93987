package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facemark/pkg/camera"
	"github.com/teslashibe/go-facemark/pkg/detection"
	"github.com/teslashibe/go-facemark/pkg/hub"
	"github.com/teslashibe/go-facemark/pkg/session"
)

// OverlayRequest is the body of PUT /api/overlay. Omitted fields keep
// their current value.
type OverlayRequest struct {
	DrawBoxes  *bool `json:"draw_boxes"`
	DrawPoints *bool `json:"draw_points"`
}

// handleStatus returns the session snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

// handleStart opens the camera and starts detection
func (s *Server) handleStart(c *fiber.Ctx) error {
	if err := s.ctrl.Start(s.ctx); err != nil {
		return c.Status(startErrorStatus(err)).JSON(fiber.Map{
			"error":  err.Error(),
			"status": s.ctrl.Status(),
		})
	}
	return c.JSON(s.ctrl.Status())
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrClosed):
		return fiber.StatusConflict
	case errors.Is(err, detection.ErrModelFileMissing),
		errors.Is(err, camera.ErrDeviceUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// handleStop stops the running session
func (s *Server) handleStop(c *fiber.Ctx) error {
	s.ctrl.Stop()
	return c.JSON(s.ctrl.Status())
}

// handleGetOverlay returns the current overlay toggles
func (s *Server) handleGetOverlay(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Toggles().Options())
}

// handlePutOverlay updates one or both overlay toggles
func (s *Server) handlePutOverlay(c *fiber.Ctx) error {
	var req OverlayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid overlay request: " + err.Error(),
		})
	}

	t := s.ctrl.Toggles()
	if req.DrawBoxes != nil {
		t.SetBoxes(*req.DrawBoxes)
	}
	if req.DrawPoints != nil {
		t.SetPoints(*req.DrawPoints)
	}
	return c.JSON(t.Options())
}

// handleCameraWS streams annotated JPEG frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}

// handleStatusWS streams status updates, starting with the current one
func (s *Server) handleStatusWS(c *websocket.Conn) {
	var greeting []hub.Message
	if msg, err := hub.EncodeJSON(s.ctrl.Status()); err == nil {
		greeting = append(greeting, msg)
	}
	hub.NewClient(s.statusHub, c, greeting...).Run()
}

