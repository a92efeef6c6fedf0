package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/imaging"
	"github.com/kozaktomas/facecam/internal/session"
)

// SessionHandler exposes the capture session over HTTP.
type SessionHandler struct {
	session *session.Session
	quality int
	logger  *slog.Logger
}

// NewSessionHandler creates a new session handler. Live frames are served at
// the given JPEG quality.
func NewSessionHandler(s *session.Session, frameQuality int, logger *slog.Logger) *SessionHandler {
	if frameQuality <= 0 || frameQuality > 100 {
		frameQuality = constants.DefaultPollJPEGQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		session: s,
		quality: frameQuality,
		logger:  logger,
	}
}

// Get returns a snapshot of the session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// Start acquires the camera and begins live recognition.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	// The grab loop must outlive this request.
	ctx := context.WithoutCancel(r.Context())
	if err := h.session.StartCamera(ctx); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// Stop releases the camera and clears the session.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.session.StopCamera(); err != nil {
		h.logger.Warn("camera release failed", "error", err)
	}
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// Capture freezes the current frame.
func (h *SessionHandler) Capture(w http.ResponseWriter, r *http.Request) {
	h.transition(w, h.session.CapturePhoto)
}

// Confirm shows the people panel for the captured still.
func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, h.session.ConfirmCapture)
}

// Cancel discards the captured still and resumes live recognition.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, h.session.CancelCapture)
}

func (h *SessionHandler) transition(w http.ResponseWriter, op func() error) {
	if err := op(); err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// SaveResponse is the save endpoint response.
type SaveResponse struct {
	Path    string       `json:"path"`
	Session session.View `json:"session"`
}

// Save submits the captured still for persistence.
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	path, err := h.session.SaveCapture(r.Context())
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SaveResponse{Path: path, Session: h.session.Snapshot()})
}

// DisplayRequest is the size of the element the live frame is shown in.
type DisplayRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SetDisplay records the display size used for overlay mapping.
func (h *SessionHandler) SetDisplay(w http.ResponseWriter, r *http.Request) {
	var req DisplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.session.SetDisplaySize(geometry.Size{Width: req.Width, Height: req.Height}); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.session.Snapshot())
}

// Frame serves the current live frame as JPEG.
func (h *SessionHandler) Frame(w http.ResponseWriter, r *http.Request) {
	frame, err := h.session.Frame()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	data, err := imaging.EncodeJPEG(frame, h.quality)
	if err != nil {
		h.logger.Error("could not encode frame", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to encode frame")
		return
	}
	writeJPEG(w, data)
}

// CaptureImage serves the burned-in still.
func (h *SessionHandler) CaptureImage(w http.ResponseWriter, r *http.Request) {
	data, ok := h.session.CapturedJPEG()
	if !ok {
		respondError(w, http.StatusNotFound, "no captured image")
		return
	}
	writeJPEG(w, data)
}

func writeJPEG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
