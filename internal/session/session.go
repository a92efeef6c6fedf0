// Package session is the client-side state machine tying together the
// capture source, the recognition poller, the live overlay and the people
// panel. It moves between Idle, Live, Captured and Uploading and arbitrates
// which operations each state permits.
//
// All state changes happen under one mutex. Network calls (save, settings,
// reload, upload) run with the mutex released.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facecam/internal/camera"
	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/overlay"
	"github.com/kozaktomas/facecam/internal/panel"
	"github.com/kozaktomas/facecam/internal/poller"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

// Camera is the capture source the session drives.
type Camera interface {
	Start(ctx context.Context) error
	Stop() error
	CurrentFrame() (*image.RGBA, error)
	Size() geometry.Size
	Ready() bool
	Active() bool
	Stats() camera.Stats
}

// Service is the recognition service.
type Service interface {
	Recognize(ctx context.Context, jpegData []byte) (*recognizer.RecognizeResponse, error)
	SaveCapture(ctx context.Context, jpegData []byte, filename string) (*recognizer.SaveResponse, error)
	Settings(ctx context.Context) (*recognizer.Settings, error)
	ReloadFaces(ctx context.Context) (*recognizer.ReloadResponse, error)
	UploadTest(ctx context.Context, filename string, data []byte) (*recognizer.UploadResponse, error)
}

// Options configures a Session.
type Options struct {
	PollInterval       time.Duration
	PollJPEGQuality    int
	CaptureJPEGQuality int
	ReleaseOnSave      bool          // drop the still after a successful save
	Display            geometry.Size // size the live frame is displayed at
	Style              config.StyleConfig
	Journal            database.CaptureJournal // optional
	Logger             *slog.Logger
	Now                func() time.Time
}

// OptionsFromConfig builds session options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	w, h := cfg.DisplaySize()
	return Options{
		PollInterval:       cfg.Poller.Interval,
		PollJPEGQuality:    cfg.Poller.JPEGQuality,
		CaptureJPEGQuality: cfg.Capture.JPEGQuality,
		ReleaseOnSave:      cfg.Capture.ReleaseOnSave,
		Display:            geometry.Size{Width: float64(w), Height: float64(h)},
		Style:              cfg.Style,
	}
}

// CapturedFrame is a frozen still with overlays burned in, plus the
// detection batch that was current when it was taken.
type CapturedFrame struct {
	ID         uuid.UUID
	Image      *image.RGBA
	JPEG       []byte
	Faces      []recognizer.Face
	People     []recognizer.DetectedPerson
	Layer      overlay.Layer
	CapturedAt time.Time
}

// Session owns every piece of mutable session state.
type Session struct {
	cam      Camera
	svc      Service
	poller   *poller.Poller
	renderer *overlay.Renderer
	panel    *panel.Panel
	journal  database.CaptureJournal
	logger   *slog.Logger
	events   EventBroadcaster
	now      func() time.Time

	interval       time.Duration
	captureQuality int
	releaseOnSave  bool

	mu         sync.Mutex
	state      State
	status     Status
	display    geometry.Size
	source     geometry.Size // frame size of the last detection batch
	faces      []recognizer.Face
	people     []recognizer.DetectedPerson
	captured   *CapturedFrame
	confirmed  bool
	settings   *recognizer.Settings
	knownFaces []string
	lastSaved  string
}

// New creates an idle session.
func New(cam Camera, svc Service, opts Options) (*Session, error) {
	if opts.Style == (config.StyleConfig{}) {
		opts.Style = config.DefaultStyle()
	}
	renderer, err := overlay.New(opts.Style)
	if err != nil {
		return nil, fmt.Errorf("could not create overlay renderer: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}
	quality := opts.CaptureJPEGQuality
	if quality <= 0 || quality > 100 {
		quality = constants.DefaultCaptureJPEGQuality
	}

	s := &Session{
		cam:            cam,
		svc:            svc,
		renderer:       renderer,
		panel:          panel.New(),
		journal:        opts.Journal,
		logger:         logger,
		now:            now,
		interval:       interval,
		captureQuality: quality,
		releaseOnSave:  opts.ReleaseOnSave,
		display:        opts.Display,
	}
	s.poller = poller.New(cam, svc, poller.Options{
		JPEGQuality: opts.PollJPEGQuality,
		Logger:      logger.With("component", "poller"),
	})
	if n, ok := cam.(failureNotifier); ok {
		n.SetOnFailure(s.onCameraFailure)
	}
	return s, nil
}

// failureNotifier is implemented by capture sources that can give up on
// their own, like camera.Camera after repeated grab errors.
type failureNotifier interface {
	SetOnFailure(fn func(error))
}

// onCameraFailure tears a live session down after the capture source
// released the device on its own. A held capture is kept; CancelCapture
// finds the camera gone and returns to Idle.
func (s *Session) onCameraFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stopped meanwhile, or already restarted on a fresh device.
	if s.state != StateLive || s.cam.Active() {
		s.logger.Warn("camera released outside live view", "state", s.state, "error", err)
		return
	}
	s.logger.Error("camera failed", "state", s.state, "error", err)
	_ = s.teardownLocked()
	s.setStatusLocked("Error accessing camera: "+err.Error(), StatusError)
}

// StartCamera acquires the capture source and begins polling: Idle -> Live.
func (s *Session) StartCamera(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return &TransitionError{Op: "start camera", State: s.state}
	}

	if err := s.cam.Start(ctx); err != nil {
		s.logger.Error("could not start camera", "error", err)
		s.setStatusLocked("Error accessing camera: "+err.Error(), StatusError)
		return err
	}

	if err := s.beginPollingLocked(); err != nil {
		if serr := s.cam.Stop(); serr != nil {
			s.logger.Warn("could not release camera", "error", serr)
		}
		s.setStatusLocked("Error starting recognition: "+err.Error(), StatusError)
		return err
	}

	s.setStateLocked(StateLive)
	s.setStatusLocked("Camera started successfully", StatusSuccess)
	return nil
}

// StopCamera ends polling, releases the capture source and clears every
// piece of session state. Allowed from any state.
func (s *Session) StopCamera() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.teardownLocked()
	s.setStatusLocked("Camera stopped", StatusInfo)
	return err
}

func (s *Session) teardownLocked() error {
	s.poller.End()
	err := s.cam.Stop()
	if err != nil {
		s.logger.Warn("could not release camera", "error", err)
	}

	s.renderer.ClearLive()
	s.faces = nil
	s.people = nil
	s.source = geometry.Size{}
	s.captured = nil
	s.confirmed = false
	s.panel.Clear()

	s.setStateLocked(StateIdle)
	s.events.SendEvent(Event{Type: EventOverlay, Data: overlay.Layer{}})
	s.sendPanelLocked()
	return err
}

// Close tears the session down: stops polling, releases the camera and
// closes subscriber channels.
func (s *Session) Close() error {
	s.mu.Lock()
	err := s.teardownLocked()
	s.mu.Unlock()

	s.poller.Wait()
	s.events.Close()
	return err
}

// SetDisplaySize records the size of the element the live frame is shown in
// and re-lays the live overlay for it.
func (s *Session) SetDisplaySize(size geometry.Size) error {
	if !size.Valid() {
		return fmt.Errorf("invalid display size %v", size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.display = size
	if s.state == StateLive && len(s.faces) > 0 {
		layer := s.renderer.RenderLive(s.faces, s.source, s.display)
		s.events.SendEvent(Event{Type: EventOverlay, Data: layer})
	}
	return nil
}

// Frame returns the current live frame.
func (s *Session) Frame() (*image.RGBA, error) {
	return s.cam.CurrentFrame()
}

// CapturedJPEG returns the burned-in still, if one exists.
func (s *Session) CapturedJPEG() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captured == nil {
		return nil, false
	}
	return s.captured.JPEG, true
}

// Subscribe registers a listener for session events.
func (s *Session) Subscribe() chan Event {
	return s.events.AddListener()
}

// Unsubscribe removes a listener registered with Subscribe.
func (s *Session) Unsubscribe(ch chan Event) {
	s.events.RemoveListener(ch)
}

func (s *Session) beginPollingLocked() error {
	return s.poller.Begin(s.onResult, s.onError, s.interval)
}

// onResult applies a detection batch. Batches replace the previous one.
func (s *Session) onResult(res poller.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLive || !s.poller.Current(res.Gen) {
		return
	}

	s.faces = res.Faces
	s.people = res.People
	s.source = res.Source
	layer := s.renderer.RenderLive(res.Faces, res.Source, s.display)
	s.events.SendEvent(Event{Type: EventOverlay, Data: layer})
	s.setStatusLocked(fmt.Sprintf("Detected %d face(s) - Click Capture to save", len(res.Faces)), StatusSuccess)
}

// onError reports a failed tick; overlays and cached detections stay.
func (s *Session) onError(err error) {
	var te *poller.TickError
	gen := uint64(0)
	if errors.As(err, &te) {
		gen = te.Gen
		err = te.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLive || !s.poller.Current(gen) {
		return
	}
	s.setStatusLocked("Recognition error: "+errorMessage(err), StatusError)
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.logger.Debug("state change", "from", s.state, "to", state)
	s.state = state
	s.events.SendEvent(Event{Type: EventState, Message: state.String(), Data: state})
}

func (s *Session) setStatusLocked(msg string, kind StatusKind) {
	s.status = Status{Message: msg, Kind: kind, At: s.now()}
	s.events.SendEvent(Event{Type: EventStatus, Message: msg, Data: s.status})
}

func (s *Session) sendPanelLocked() {
	s.events.SendEvent(Event{Type: EventPanel, Data: panelView(s.panel)})
}

// errorMessage returns the text shown to the user for err: the service's
// own message for unsuccessful responses, the full error otherwise.
func errorMessage(err error) string {
	var se *recognizer.ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
