package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

// CapturesHandler serves the capture journal.
type CapturesHandler struct {
	journal database.CaptureJournal
	logger  *slog.Logger
}

// NewCapturesHandler creates a new captures handler. journal may be nil when
// no database is configured.
func NewCapturesHandler(journal database.CaptureJournal, logger *slog.Logger) *CapturesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapturesHandler{journal: journal, logger: logger}
}

// CaptureResponse is a journal entry in API responses.
type CaptureResponse struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	StoragePath string            `json:"storage_path"`
	Faces       []recognizer.Face `json:"faces"`
	People      []string          `json:"people"`
	CapturedAt  time.Time         `json:"captured_at"`
	SavedAt     time.Time         `json:"saved_at"`
}

func captureResponse(rec database.CaptureRecord) CaptureResponse {
	return CaptureResponse{
		ID:          rec.ID.String(),
		Filename:    rec.Filename,
		StoragePath: rec.StoragePath,
		Faces:       rec.Faces,
		People:      rec.People,
		CapturedAt:  rec.CapturedAt,
		SavedAt:     rec.SavedAt,
	}
}

// List returns the most recent captures, optionally only those showing
// ?person=<full name>.
func (h *CapturesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, http.StatusServiceUnavailable, "capture journal not configured")
		return
	}

	limit := database.DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var records []database.CaptureRecord
	var err error
	if person := r.URL.Query().Get("person"); person != "" {
		records, err = h.journal.ListByPerson(r.Context(), person, limit)
	} else {
		records, err = h.journal.List(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("could not list captures", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list captures")
		return
	}

	out := make([]CaptureResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, captureResponse(rec))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns a single capture.
func (h *CapturesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, http.StatusServiceUnavailable, "capture journal not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid capture ID")
		return
	}

	rec, err := h.journal.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("could not get capture", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get capture")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "capture not found")
		return
	}
	respondJSON(w, http.StatusOK, captureResponse(*rec))
}
