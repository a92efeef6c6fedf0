package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facecam/internal/camera"
)

// State is the session lifecycle state.
type State int

// Session states. Uploading is the transient sub-state of Captured while a
// save is in flight.
const (
	StateIdle State = iota
	StateLive
	StateCaptured
	StateUploading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLive:
		return "live"
	case StateCaptured:
		return "captured"
	case StateUploading:
		return "uploading"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateIdle, StateLive, StateCaptured, StateUploading} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

var (
	// ErrNotReady is returned by CapturePhoto before frame dimensions are known.
	ErrNotReady = camera.ErrNotReady

	// ErrNoCapture is returned by SaveCapture when there is no captured still.
	ErrNoCapture = errors.New("no captured image to save")

	// ErrUploadInProgress is returned by SaveCapture while a save is in flight.
	ErrUploadInProgress = errors.New("save already in progress")
)

// TransitionError reports an operation that is not permitted in the current state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// StatusKind classifies a status message.
type StatusKind string

// Status kinds.
const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the user-facing status line.
type Status struct {
	Message string     `json:"message"`
	Kind    StatusKind `json:"kind"`
	At      time.Time  `json:"at,omitzero"`
}
