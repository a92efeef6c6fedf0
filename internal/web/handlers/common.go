package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/facecam/internal/camera"
	"github.com/kozaktomas/facecam/internal/recognizer"
	"github.com/kozaktomas/facecam/internal/session"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps session and collaborator errors to HTTP status codes.
func errorStatus(err error) int {
	var te *session.TransitionError
	var de *camera.DeviceError
	switch {
	case errors.As(err, &te),
		errors.Is(err, session.ErrNotReady),
		errors.Is(err, session.ErrNoCapture),
		errors.Is(err, session.ErrUploadInProgress):
		return http.StatusConflict
	case errors.As(err, &de), errors.Is(err, camera.ErrNoDevice):
		return http.StatusServiceUnavailable
	case recognizer.IsServiceError(err), recognizer.IsNetworkError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondSessionError sends err with the status code matching its kind.
func respondSessionError(w http.ResponseWriter, err error) {
	respondError(w, errorStatus(err), err.Error())
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
