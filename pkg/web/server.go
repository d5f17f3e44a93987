// Package web serves a browser preview and remote control for a session:
// JSON status and overlay endpoints plus websocket camera and status feeds.
package web

import (
	"bytes"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/teslashibe/go-facemark/internal/log"
	"github.com/teslashibe/go-facemark/pkg/hub"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"github.com/teslashibe/go-facemark/pkg/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Controller is the session surface exposed over HTTP
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Status() session.Status
	Toggles() *overlay.Toggles
	Subscribe(l session.Listener)
}

// Config holds web server settings
type Config struct {
	Addr        string  `json:"addr" validate:"omitempty,hostname_port"`
	PreviewFPS  float64 `json:"preview_fps" validate:"gte=0,lte=60"`   // Max JPEG frames per second; 0 uses the default
	StatusHz    float64 `json:"status_hz" validate:"gte=0,lte=60"`     // Max per-frame status pushes per second
	JPEGQuality int     `json:"jpeg_quality" validate:"gte=0,lte=100"` // 0 uses the default
}

// DefaultConfig returns sensible defaults for a local preview
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		PreviewFPS:  10,
		StatusHz:    4,
		JPEGQuality: 75,
	}
}

// Server is the web preview server
type Server struct {
	app  *fiber.App
	cfg  Config
	ctx  context.Context
	ctrl Controller

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	cameraHub *hub.Hub

	previewLimiter *rate.Limiter
	statusLimiter  *rate.Limiter
}

// NewServer creates a server driving ctrl. ctx bounds sessions started
// over HTTP and the hubs' lifetime.
func NewServer(ctx context.Context, cfg Config, ctrl Controller) *Server {
	def := DefaultConfig()
	if cfg.PreviewFPS <= 0 {
		cfg.PreviewFPS = def.PreviewFPS
	}
	if cfg.StatusHz <= 0 {
		cfg.StatusHz = def.StatusHz
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = def.JPEGQuality
	}

	s := &Server{
		cfg:            cfg,
		ctx:            ctx,
		ctrl:           ctrl,
		statusHub:      hub.New("status"),
		cameraHub:      hub.New("camera"),
		previewLimiter: rate.NewLimiter(rate.Limit(cfg.PreviewFPS), 1),
		statusLimiter:  rate.NewLimiter(rate.Limit(cfg.StatusHz), 1),
	}

	app := fiber.New(fiber.Config{
		AppName:               "facemark",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/session/start", s.handleStart)
	api.Post("/session/stop", s.handleStop)
	api.Get("/overlay", s.handleGetOverlay)
	api.Put("/overlay", s.handlePutOverlay)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app

	ctrl.Subscribe(session.Listener{
		OnStateChange: func(st session.Status) { s.statusHub.BroadcastJSON(st) },
		OnError:       func(error) { s.statusHub.BroadcastJSON(s.ctrl.Status()) },
		OnFrame: func(int) {
			if s.statusLimiter.Allow() {
				s.statusHub.BroadcastJSON(s.ctrl.Status())
			}
		},
	})

	go s.statusHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on cfg.Addr until ctx is cancelled or Shutdown is called.
func (s *Server) Listen() error {
	go func() {
		<-s.ctx.Done()
		if err := s.Shutdown(); err != nil {
			log.Warn(log.Fields{"error": err}, "web shutdown failed")
		}
	}()

	log.Info(log.Fields{"addr": s.cfg.Addr}, "web preview listening")
	return s.app.Listen(s.cfg.Addr)
}

// ListenAsync starts the web server in a goroutine
func (s *Server) ListenAsync() {
	go func() {
		if err := s.Listen(); err != nil {
			log.Error(log.Fields{"error": err}, "web server error")
		}
	}()
}

// Publish implements session.Sink. Frames are JPEG-encoded and broadcast
// to camera clients, no faster than the preview rate.
func (s *Server) Publish(frame gocv.Mat, _ int) {
	if !s.cameraHub.IsRunning() || s.cameraHub.ClientCount() == 0 || !s.previewLimiter.Allow() {
		return
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, s.cfg.JPEGQuality})
	if err != nil {
		log.Warn(log.Fields{"error": err}, "jpeg encode failed")
		return
	}
	data := bytes.Clone(buf.GetBytes())
	buf.Close()

	s.cameraHub.BroadcastBinary(data)
}

// Shutdown gracefully stops the web server, waiting at most two seconds
// for open requests. It is safe to call more than once.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(2 * time.Second)
}
