package session

import (
	"time"

	"github.com/kozaktomas/facecam/internal/camera"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/overlay"
	"github.com/kozaktomas/facecam/internal/panel"
	"github.com/kozaktomas/facecam/internal/poller"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

// PanelView is the people panel as seen by a client.
type PanelView struct {
	Visible bool        `json:"visible"`
	Rows    []panel.Row `json:"rows"`
}

// CaptureView describes a captured still without its pixels.
type CaptureView struct {
	ID         string        `json:"id"`
	Faces      int           `json:"faces"`
	People     int           `json:"people"`
	Layer      overlay.Layer `json:"layer"`
	CapturedAt time.Time     `json:"captured_at"`
}

// View is a point-in-time copy of the session.
type View struct {
	State      State                       `json:"state"`
	Status     Status                      `json:"status"`
	Display    geometry.Size               `json:"display"`
	Source     geometry.Size               `json:"source"`
	Overlay    overlay.Layer               `json:"overlay"`
	Panel      PanelView                   `json:"panel"`
	Captured   bool                        `json:"captured"`
	Capture    *CaptureView                `json:"capture,omitempty"`
	Confirmed  bool                        `json:"confirmed"`
	Faces      []recognizer.Face           `json:"faces"`
	People     []recognizer.DetectedPerson `json:"people"`
	Settings   *recognizer.Settings        `json:"settings,omitempty"`
	KnownFaces []string                    `json:"known_faces,omitempty"`
	LastSaved  string                      `json:"last_saved,omitempty"`
	Poller     poller.Stats                `json:"poller"`
	Camera     camera.Stats                `json:"camera"`

	// Subscribers counts the open event streams.
	Subscribers int `json:"subscribers"`
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the current status line.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Captured returns the captured still, or nil.
func (s *Session) Captured() *CapturedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:      s.state,
		Status:     s.status,
		Display:    s.display,
		Source:     s.source,
		Overlay:    s.renderer.Live(),
		Panel:      panelView(s.panel),
		Captured:   s.captured != nil,
		Capture:    captureView(s.captured),
		Confirmed:  s.confirmed,
		Faces:      append([]recognizer.Face(nil), s.faces...),
		People:     append([]recognizer.DetectedPerson(nil), s.people...),
		KnownFaces: append([]string(nil), s.knownFaces...),
		LastSaved:  s.lastSaved,
		Poller:     s.poller.Stats(),
		Camera:     s.cam.Stats(),

		Subscribers: s.events.Listeners(),
	}
	if s.settings != nil {
		settings := *s.settings
		v.Settings = &settings
	}
	return v
}

func panelView(p *panel.Panel) PanelView {
	return PanelView{Visible: p.Visible(), Rows: p.Rows()}
}

func captureView(c *CapturedFrame) *CaptureView {
	if c == nil {
		return nil
	}
	return &CaptureView{
		ID:         c.ID.String(),
		Faces:      len(c.Faces),
		People:     len(c.People),
		Layer:      c.Layer,
		CapturedAt: c.CapturedAt,
	}
}
