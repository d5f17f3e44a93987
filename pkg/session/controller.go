// Package session runs the camera capture loop behind a start/stop state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/teslashibe/go-facemark/internal/log"
	"github.com/teslashibe/go-facemark/pkg/camera"
	"github.com/teslashibe/go-facemark/pkg/detection"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"github.com/teslashibe/go-facemark/pkg/vision"
	"gocv.io/x/gocv"
)

// Camera is an open frame source
type Camera interface {
	vision.Provider
	Release() error
}

// Models is a loaded detector and landmark predictor
type Models interface {
	vision.Analyzer
	Close() error
}

// Sink receives every rendered frame. Publish runs on the capture goroutine
// and must not retain frame after returning.
type Sink interface {
	Publish(frame gocv.Mat, faces int)
}

// Listener callbacks run on the goroutine that caused the event, sometimes
// with the controller locked, so they must not call back into it.
// Any field may be nil.
type Listener struct {
	OnStateChange func(Status)
	OnError       func(error)
	OnFrame       func(faces int)
}

// Options configures a Controller
type Options struct {
	Camera    camera.Config
	Detection detection.Config
	Toggles   *overlay.Toggles
	Sinks     []Sink

	// OpenCamera and LoadModels default to camera.Open and detection.Load.
	OpenCamera func(camera.Config) (Camera, error)
	LoadModels func(detection.Config) (Models, error)
}

// run is one camera-open-to-camera-close interval
type run struct {
	id          string
	cam         Camera
	done        chan struct{}
	releaseOnce sync.Once
}

func (r *run) release() {
	r.releaseOnce.Do(func() {
		if err := r.cam.Release(); err != nil {
			log.Warn(log.Fields{"session_id": r.id, "error": err}, "camera release failed")
		}
	})
}

// Controller owns the camera, the models and the capture goroutine.
type Controller struct {
	opts Options

	mu      sync.Mutex // Serializes Start, Stop and Close
	models  Models
	current *run
	closed  bool

	running atomic.Bool
	loaded  atomic.Bool
	faces   atomic.Int64
	frames  atomic.Uint64

	statusMu  sync.RWMutex
	sessionID string
	message   string
	lastErr   string
	listeners []Listener
	sinks     []Sink
}

// New creates an idle controller. Models are not loaded until LoadModels or Start.
func New(opts Options) *Controller {
	if opts.Toggles == nil {
		opts.Toggles = overlay.NewToggles(overlay.DefaultOptions())
	}
	if opts.OpenCamera == nil {
		opts.OpenCamera = OpenDevice
	}
	if opts.LoadModels == nil {
		opts.LoadModels = LoadAdapter
	}
	return &Controller{opts: opts, sinks: append([]Sink(nil), opts.Sinks...)}
}

// OpenDevice opens a local camera with camera.Open.
func OpenDevice(cfg camera.Config) (Camera, error) {
	d, err := camera.Open(cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// LoadAdapter loads the detection models with detection.Load.
func LoadAdapter(cfg detection.Config) (Models, error) {
	a, err := detection.Load(cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Toggles returns the overlay switches read by the capture loop.
func (c *Controller) Toggles() *overlay.Toggles {
	return c.opts.Toggles
}

// Subscribe registers l for all later events.
func (c *Controller) Subscribe(l Listener) {
	c.statusMu.Lock()
	c.listeners = append(c.listeners, l)
	c.statusMu.Unlock()
}

// AddSink registers s for frames rendered from now on.
func (c *Controller) AddSink(s Sink) {
	c.statusMu.Lock()
	c.sinks = append(c.sinks, s)
	c.statusMu.Unlock()
}

// LoadModels loads the detection models if they are not loaded yet.
func (c *Controller) LoadModels() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.ensureModels()
}

func (c *Controller) ensureModels() error {
	if c.models != nil {
		return nil
	}
	models, err := c.opts.LoadModels(c.opts.Detection)
	if err != nil {
		err = fmt.Errorf("load models: %w", err)
		c.fail(err)
		return err
	}
	c.models = models
	c.loaded.Store(true)
	c.setMessage(MsgModelsLoaded)
	return nil
}

// Start opens the camera and launches the capture goroutine.
// It is a no-op while running. On failure the controller stays Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.running.Load() {
		return nil
	}
	if c.current != nil {
		// Previous loop ended on its own; make sure it is gone.
		<-c.current.done
		c.current = nil
	}

	if err := c.ensureModels(); err != nil {
		return err
	}

	cam, err := c.opts.OpenCamera(c.opts.Camera)
	if err != nil {
		err = fmt.Errorf("open camera %d: %w", c.opts.Camera.DeviceID, err)
		c.fail(err)
		return err
	}

	r := &run{
		id:   uuid.NewString(),
		cam:  cam,
		done: make(chan struct{}),
	}
	c.current = r
	c.faces.Store(0)
	c.frames.Store(0)

	c.statusMu.Lock()
	c.sessionID = r.id
	c.lastErr = ""
	c.statusMu.Unlock()

	c.running.Store(true)
	log.Info(log.Fields{"session_id": r.id, "device": c.opts.Camera.DeviceID}, "camera started")
	c.notifyState()

	go c.loop(ctx, r, vision.NewProcessor(c.models))
	return nil
}

// Stop ends the capture loop, waits for it, and releases the camera.
// It is a no-op while idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	r := c.current
	if r == nil {
		return
	}
	wasRunning := c.running.Swap(false)
	<-r.done
	r.release()
	c.current = nil

	if wasRunning {
		c.setMessage(MsgCameraStopped)
		log.Info(log.Fields{"session_id": r.id, "frames": c.frames.Load()}, "camera stopped")
		c.notifyState()
	}
}

// Close stops any session and disposes the models. Later Start calls
// return ErrClosed. Calling Close more than once is safe.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.stopLocked()
	c.closed = true

	if c.models == nil {
		return nil
	}
	err := c.models.Close()
	c.models = nil
	c.loaded.Store(false)
	return err
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	if c.running.Load() {
		return Running
	}
	return Idle
}

// Status returns a snapshot for display
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()

	st := Status{
		State:        c.State(),
		ModelsLoaded: c.loaded.Load(),
		Faces:        int(c.faces.Load()),
		Frames:       c.frames.Load(),
		Message:      c.message,
		Error:        c.lastErr,
	}
	if st.State == Running {
		st.SessionID = c.sessionID
	}
	return st
}

// loop is the capture goroutine. It owns r.cam until it returns.
func (c *Controller) loop(ctx context.Context, r *run, proc *vision.Processor) {
	defer close(r.done)
	defer proc.Close()

	var loopErr error
	for c.running.Load() {
		if err := ctx.Err(); err != nil {
			break
		}

		frame, err := r.cam.Read()
		if err != nil {
			loopErr = err
			break
		}

		res, err := proc.Process(frame, c.opts.Toggles.Options())
		frame.Close()
		if err != nil {
			loopErr = err
			break
		}

		c.statusMu.RLock()
		sinks := c.sinks
		c.statusMu.RUnlock()
		for _, s := range sinks {
			s.Publish(res.Frame, res.Faces)
		}
		res.Frame.Close()

		c.faces.Store(int64(res.Faces))
		c.frames.Add(1)
		c.notifyFrame(res.Faces)
	}

	r.release()

	// Stop clears the flag before joining; winning the swap here means the
	// loop ended by itself.
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	fields := log.Fields{"session_id": r.id, "frames": c.frames.Load()}
	switch {
	case loopErr == nil:
		c.setMessage(MsgCameraStopped)
		log.Info(fields, "capture cancelled")
	case errors.Is(loopErr, camera.ErrEndOfStream):
		c.setMessage(MsgStreamEnded)
		log.Info(fields, "camera stream ended")
	default:
		fields["error"] = loopErr
		log.Error(fields, "capture loop failed")
		c.fail(loopErr)
	}
	c.notifyState()
}

func (c *Controller) setMessage(msg string) {
	c.statusMu.Lock()
	c.message = msg
	c.lastErr = ""
	c.statusMu.Unlock()
}

func (c *Controller) fail(err error) {
	c.statusMu.Lock()
	c.lastErr = err.Error()
	listeners := c.listeners
	c.statusMu.Unlock()

	log.Warn(log.Fields{"error": err}, "session error")
	for _, l := range listeners {
		if l.OnError != nil {
			l.OnError(err)
		}
	}
}

func (c *Controller) notifyState() {
	c.statusMu.RLock()
	listeners := c.listeners
	c.statusMu.RUnlock()

	st := c.Status()
	for _, l := range listeners {
		if l.OnStateChange != nil {
			l.OnStateChange(st)
		}
	}
}

func (c *Controller) notifyFrame(faces int) {
	c.statusMu.RLock()
	listeners := c.listeners
	c.statusMu.RUnlock()

	for _, l := range listeners {
		if l.OnFrame != nil {
			l.OnFrame(faces)
		}
	}
}
