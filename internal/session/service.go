package session

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facecam/internal/recognizer"
)

// RefreshSettings fetches the training status and confidence threshold.
// Failures are logged and leave the cached settings untouched.
func (s *Session) RefreshSettings(ctx context.Context) (*recognizer.Settings, error) {
	settings, err := s.svc.Settings(ctx)
	if err != nil {
		s.logger.Warn("could not load settings", "error", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.events.SendEvent(Event{Type: EventSettings, Data: *settings})
	return settings, nil
}

// ReloadFaces asks the service to reload people and retrain, then refreshes
// the settings.
func (s *Session) ReloadFaces(ctx context.Context) (*recognizer.ReloadResponse, error) {
	resp, err := s.svc.ReloadFaces(ctx)

	s.mu.Lock()
	if err != nil {
		if recognizer.IsServiceError(err) {
			s.setStatusLocked("Error reloading faces", StatusError)
		} else {
			s.setStatusLocked("Error reloading faces: "+err.Error(), StatusError)
		}
		s.mu.Unlock()
		s.logger.Error("could not reload faces", "error", err)
		return nil, err
	}
	s.knownFaces = append([]string(nil), resp.KnownFaces...)
	s.setStatusLocked(resp.Message, StatusSuccess)
	s.mu.Unlock()

	s.logger.Info("faces reloaded", "known", len(resp.KnownFaces))
	// Errors are logged inside.
	_, _ = s.RefreshSettings(ctx)
	return resp, nil
}

// UploadTest runs recognition on an image file. The people panel is shown
// when anyone was identified and left alone otherwise.
func (s *Session) UploadTest(ctx context.Context, filename string, data []byte) (*recognizer.UploadResponse, error) {
	resp, err := s.svc.UploadTest(ctx, filename, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if recognizer.IsServiceError(err) {
			s.setStatusLocked("Error processing image: "+errorMessage(err), StatusError)
		} else {
			s.setStatusLocked("Error uploading image: "+err.Error(), StatusError)
		}
		s.logger.Error("could not process test image", "file", filename, "error", err)
		return nil, err
	}

	if len(resp.DetectedPeople) > 0 {
		s.panel.Render(resp.DetectedPeople)
		s.sendPanelLocked()
	}
	s.setStatusLocked(fmt.Sprintf("Image processed successfully! Found %d face(s)", len(resp.Faces)), StatusSuccess)
	return resp, nil
}
