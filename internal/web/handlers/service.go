package handlers

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/kozaktomas/facecam/internal/constants"
)

// Settings returns the training status and confidence threshold.
func (h *SessionHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.session.RefreshSettings(r.Context())
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// ReloadFaces asks the recognition service to reload known people.
func (h *SessionHandler) ReloadFaces(w http.ResponseWriter, r *http.Request) {
	resp, err := h.session.ReloadFaces(r.Context())
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// UploadTest runs recognition on an uploaded image (multipart field "file").
func (h *SessionHandler) UploadTest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	filename := filepath.Base(header.Filename)
	h.logger.Info("test image uploaded", "file", sanitizeForLog(filename), "bytes", len(data))

	resp, err := h.session.UploadTest(r.Context(), filename, data)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
