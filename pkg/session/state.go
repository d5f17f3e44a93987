package session

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("session: closed")

// State is the controller lifecycle state
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot for UIs
type Status struct {
	State        State  `json:"state"`
	SessionID    string `json:"session_id,omitempty"`
	ModelsLoaded bool   `json:"models_loaded"`
	Faces        int    `json:"faces"`
	Frames       uint64 `json:"frames"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Status messages
const (
	MsgModelsLoaded  = "models loaded"
	MsgCameraStopped = "camera stopped"
	MsgStreamEnded   = "camera stream ended"
)

// Text returns the one-line status shown under the video.
func (s Status) Text() string {
	if s.State == Running {
		return fmt.Sprintf("camera running | faces detected: %d", s.Faces)
	}
	if s.Error != "" {
		return "error: " + s.Error
	}
	return s.Message
}
