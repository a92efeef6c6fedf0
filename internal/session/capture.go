package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/imaging"
)

// CapturePhoto freezes the current frame: Live -> Captured. Polling pauses,
// the live overlay geometry is burned into the still and the last detection
// batch is kept with it.
func (s *Session) CapturePhoto() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLive {
		return &TransitionError{Op: "capture", State: s.state}
	}
	if !s.cam.Ready() {
		s.setStatusLocked("Camera not ready for capture", StatusError)
		return ErrNotReady
	}
	frame, err := s.cam.CurrentFrame()
	if err != nil {
		s.setStatusLocked("Camera not ready for capture", StatusError)
		return err
	}

	s.poller.End()

	layer := s.renderer.Live()
	source := geometry.SizeOf(frame.Bounds())
	s.renderer.BurnInto(frame, layer, source, s.display)

	data, err := imaging.EncodeJPEG(frame, s.captureQuality)
	if err != nil {
		// Nothing changed yet; go back to polling.
		if berr := s.beginPollingLocked(); berr != nil {
			s.logger.Error("could not resume polling", "error", berr)
		}
		s.setStatusLocked("Error capturing photo: "+err.Error(), StatusError)
		return fmt.Errorf("could not encode capture: %w", err)
	}

	s.captured = &CapturedFrame{
		ID:         uuid.New(),
		Image:      frame,
		JPEG:       data,
		Faces:      s.faces,
		People:     s.people,
		Layer:      layer,
		CapturedAt: s.now(),
	}
	s.confirmed = false
	s.renderer.ClearLive()

	s.setStateLocked(StateCaptured)
	s.events.SendEvent(Event{Type: EventCapture, Message: s.captured.ID.String(), Data: captureView(s.captured)})
	s.setStatusLocked("Photo captured! Confirm to show information or cancel to continue", StatusInfo)
	s.logger.Info("photo captured", "id", s.captured.ID, "faces", len(s.captured.Faces), "size", source.String())
	return nil
}

// ConfirmCapture shows the people panel for the captured detections. The
// session stays Captured with polling paused.
func (s *Session) ConfirmCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCaptured || s.captured == nil {
		return &TransitionError{Op: "confirm", State: s.state}
	}

	s.panel.Render(s.captured.People)
	s.confirmed = true
	s.sendPanelLocked()
	s.setStatusLocked(fmt.Sprintf("Showing information for %d detected person(s)", len(s.captured.People)), StatusSuccess)
	return nil
}

// CancelCapture discards the still and clears the panel: Captured -> Live,
// or Idle when the camera is no longer active.
func (s *Session) CancelCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCaptured && s.state != StateUploading {
		return &TransitionError{Op: "cancel", State: s.state}
	}

	s.releaseCaptureLocked()
	s.setStatusLocked("Capture cancelled - continuing live recognition", StatusInfo)
	return nil
}

// releaseCaptureLocked drops the still and resumes live recognition if the
// camera is still held.
func (s *Session) releaseCaptureLocked() {
	s.captured = nil
	s.confirmed = false
	s.panel.Clear()
	s.sendPanelLocked()

	if s.cam.Active() {
		if err := s.beginPollingLocked(); err != nil {
			s.logger.Error("could not resume polling", "error", err)
		}
		s.setStateLocked(StateLive)
		return
	}

	s.faces = nil
	s.people = nil
	s.setStateLocked(StateIdle)
}

// SaveCapture submits the still for persistence and returns the storage
// path reported by the service. The session is Uploading while the request
// is in flight and returns to Captured afterwards. A failed save keeps the
// still so it can be retried.
func (s *Session) SaveCapture(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.captured == nil {
		s.setStatusLocked("No captured image to save", StatusError)
		s.mu.Unlock()
		return "", ErrNoCapture
	}
	if s.state == StateUploading {
		s.mu.Unlock()
		return "", ErrUploadInProgress
	}

	frame := s.captured
	filename := s.now().Format(constants.CaptureFilenameLayout)
	s.setStateLocked(StateUploading)
	s.setStatusLocked("Saving photo...", StatusInfo)
	s.mu.Unlock()

	resp, err := s.svc.SaveCapture(ctx, frame.JPEG, filename)

	s.mu.Lock()
	// Cancel or stop during the upload already moved the session on.
	current := s.captured == frame
	if current && s.state == StateUploading {
		s.setStateLocked(StateCaptured)
	}

	if err != nil {
		s.logger.Error("could not save capture", "id", frame.ID, "error", err)
		s.setStatusLocked("Error saving photo: "+errorMessage(err), StatusError)
		s.mu.Unlock()
		return "", err
	}

	path := resp.FilePath
	s.lastSaved = path
	s.setStatusLocked("Photo saved as "+path, StatusSuccess)
	s.logger.Info("capture saved", "id", frame.ID, "path", path)
	if current && s.releaseOnSave && s.state == StateCaptured {
		s.releaseCaptureLocked()
	}
	s.mu.Unlock()

	s.recordCapture(ctx, frame, filename, resp.FilePath)
	return path, nil
}

func (s *Session) recordCapture(ctx context.Context, frame *CapturedFrame, filename, path string) {
	if s.journal == nil {
		return
	}

	rec := database.CaptureRecord{
		ID:          frame.ID,
		Filename:    filename,
		StoragePath: path,
		Faces:       frame.Faces,
		People:      database.PeopleNames(frame.People),
		CapturedAt:  frame.CapturedAt,
		SavedAt:     s.now(),
	}
	if err := s.journal.Record(ctx, rec); err != nil {
		s.logger.Warn("could not record capture in journal", "id", frame.ID, "error", err)
	}
}
