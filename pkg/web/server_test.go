package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gorilla "github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facemark/pkg/camera"
	"github.com/teslashibe/go-facemark/pkg/detection"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"github.com/teslashibe/go-facemark/pkg/session"
)

// mockController is an in-memory session
type mockController struct {
	mu        sync.Mutex
	state     session.State
	startErr  error
	toggles   *overlay.Toggles
	listeners []session.Listener
}

func newMockController() *mockController {
	return &mockController{toggles: overlay.NewToggles(overlay.DefaultOptions())}
}

func (m *mockController) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.state = session.Running
	return nil
}

func (m *mockController) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = session.Idle
}

func (m *mockController) Status() session.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := session.Status{State: m.state, ModelsLoaded: true, Message: session.MsgModelsLoaded}
	if m.startErr != nil {
		st.Error = m.startErr.Error()
	}
	return st
}

func (m *mockController) Toggles() *overlay.Toggles { return m.toggles }

func (m *mockController) Subscribe(l session.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *mockController) emitState(st session.Status) {
	m.mu.Lock()
	listeners := m.listeners
	m.mu.Unlock()
	for _, l := range listeners {
		l.OnStateChange(st)
	}
}

func newTestServer(t *testing.T, ctrl *mockController) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewServer(ctx, DefaultConfig(), ctrl)
}

func doRequest(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]any{}
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
	}
	return resp.StatusCode, out
}

func TestServer_Status(t *testing.T) {
	s := newTestServer(t, newMockController())

	code, body := doRequest(t, s, "GET", "/api/status", "")
	if code != fiber.StatusOK {
		t.Fatalf("status code: got %d", code)
	}
	if body["state"] != "idle" {
		t.Errorf("state: got %v, want idle", body["state"])
	}
	if body["message"] != session.MsgModelsLoaded {
		t.Errorf("message: got %v", body["message"])
	}
}

func TestServer_StartStop(t *testing.T) {
	ctrl := newMockController()
	s := newTestServer(t, ctrl)

	code, body := doRequest(t, s, "POST", "/api/session/start", "")
	if code != fiber.StatusOK || body["state"] != "running" {
		t.Fatalf("start: got %d %v", code, body)
	}

	code, body = doRequest(t, s, "POST", "/api/session/stop", "")
	if code != fiber.StatusOK || body["state"] != "idle" {
		t.Fatalf("stop: got %d %v", code, body)
	}
}

func TestServer_StartErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "model missing", err: fmt.Errorf("load models: %w", detection.ErrModelFileMissing), code: fiber.StatusServiceUnavailable},
		{name: "camera", err: fmt.Errorf("open camera 0: %w", camera.ErrDeviceUnavailable), code: fiber.StatusServiceUnavailable},
		{name: "closed", err: session.ErrClosed, code: fiber.StatusConflict},
		{name: "other", err: errors.New("boom"), code: fiber.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := newMockController()
			ctrl.startErr = tc.err
			s := newTestServer(t, ctrl)

			code, body := doRequest(t, s, "POST", "/api/session/start", "")
			if code != tc.code {
				t.Errorf("code: got %d, want %d", code, tc.code)
			}
			if body["error"] != tc.err.Error() {
				t.Errorf("error: got %v", body["error"])
			}
			st, _ := body["status"].(map[string]any)
			if st["state"] != "idle" {
				t.Errorf("status after failure: %v", body["status"])
			}
		})
	}
}

func TestServer_Overlay(t *testing.T) {
	ctrl := newMockController()
	s := newTestServer(t, ctrl)

	code, body := doRequest(t, s, "GET", "/api/overlay", "")
	if code != fiber.StatusOK || body["draw_boxes"] != true || body["draw_points"] != true {
		t.Fatalf("get overlay: got %d %v", code, body)
	}

	code, body = doRequest(t, s, "PUT", "/api/overlay", `{"draw_points": false}`)
	if code != fiber.StatusOK {
		t.Fatalf("put overlay: got %d", code)
	}
	if body["draw_boxes"] != true || body["draw_points"] != false {
		t.Errorf("partial update: got %v", body)
	}
	if ctrl.toggles.Points() {
		t.Error("toggles not updated")
	}

	code, _ = doRequest(t, s, "PUT", "/api/overlay", `{"draw_boxes": `)
	if code != fiber.StatusBadRequest {
		t.Errorf("invalid body: got %d, want 400", code)
	}
}

func TestServer_WebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, newMockController())

	for _, path := range []string{"/ws/camera", "/ws/status"} {
		code, _ := doRequest(t, s, "GET", path, "")
		if code != fiber.StatusUpgradeRequired {
			t.Errorf("%s: got %d, want 426", path, code)
		}
	}
}

func TestServer_Index(t *testing.T) {
	s := newTestServer(t, newMockController())

	resp, err := s.App().Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "/ws/camera") {
		t.Error("index page should connect to the camera feed")
	}
}

func TestStartErrorStatus(t *testing.T) {
	if got := startErrorStatus(fmt.Errorf("x: %w", session.ErrClosed)); got != fiber.StatusConflict {
		t.Errorf("wrapped ErrClosed: got %d", got)
	}
}

// serve runs the app on a loopback port and returns its address
func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	go s.App().Listener(ln)
	t.Cleanup(func() { s.Shutdown() })
	return ln.Addr().String()
}

func dial(t *testing.T, addr, path string) *gorilla.Conn {
	t.Helper()
	var (
		conn *gorilla.Conn
		err  error
	)
	for i := 0; i < 50; i++ {
		conn, _, err = gorilla.DefaultDialer.Dial("ws://"+addr+path, nil)
		if err == nil {
			t.Cleanup(func() { conn.Close() })
			return conn
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", path, err)
	return nil
}

func waitClients(t *testing.T, count func() int, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d clients", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_StatusFeed(t *testing.T) {
	ctrl := newMockController()
	s := newTestServer(t, ctrl)
	addr := serve(t, s)

	conn := dial(t, addr, "/ws/status")
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var st map[string]any
	if err := conn.ReadJSON(&st); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if st["state"] != "idle" {
		t.Errorf("greeting state: got %v", st["state"])
	}

	waitClients(t, s.statusHub.ClientCount, 1)
	ctrl.emitState(session.Status{State: session.Running, Faces: 2})

	if err := conn.ReadJSON(&st); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if st["state"] != "running" || st["faces"] != float64(2) {
		t.Errorf("update: got %v", st)
	}
}

func TestServer_CameraFeed(t *testing.T) {
	s := newTestServer(t, newMockController())
	addr := serve(t, s)

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	// No clients: nothing is encoded or queued
	s.Publish(frame, 0)

	conn := dial(t, addr, "/ws/camera")
	waitClients(t, s.cameraHub.ClientCount, 1)

	s.Publish(frame, 1)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if typ != gorilla.BinaryMessage {
		t.Errorf("message type: got %d, want binary", typ)
	}
	if len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		t.Error("frame is not a JPEG")
	}
}

func TestServer_StoppedAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(ctx, DefaultConfig(), newMockController())
	addr := serve(t, s)
	dial(t, addr, "/ws/camera")
	waitClients(t, s.cameraHub.ClientCount, 1)

	cancel()
	deadline := time.Now().Add(5 * time.Second)
	for s.cameraHub.IsRunning() || s.statusHub.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("hubs still running after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Frames published after the hubs stop are discarded
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	s.Publish(frame, 1)

	if err := s.Shutdown(); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if _, _, err := gorilla.DefaultDialer.Dial("ws://"+addr+"/ws/camera", nil); err == nil {
		t.Error("server should refuse connections after Shutdown")
	}
}
