package handlers

import (
	"net/http"

	"github.com/kozaktomas/facecam/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config         *config.Config
	journalEnabled bool
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, journalEnabled bool) *ConfigHandler {
	return &ConfigHandler{
		config:         cfg,
		journalEnabled: journalEnabled,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	RecognitionURL string             `json:"recognition_url"`
	CameraSource   string             `json:"camera_source"`
	FrameWidth     int                `json:"frame_width"`
	FrameHeight    int                `json:"frame_height"`
	DisplayWidth   int                `json:"display_width"`
	DisplayHeight  int                `json:"display_height"`
	PollIntervalMS int64              `json:"poll_interval_ms"`
	ReleaseOnSave  bool               `json:"release_on_save"`
	JournalEnabled bool               `json:"journal_enabled"`
	Style          config.StyleConfig `json:"style"`
}

// Get returns the client-relevant configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	displayWidth, displayHeight := h.config.DisplaySize()
	respondJSON(w, http.StatusOK, ConfigResponse{
		RecognitionURL: h.config.Recognition.URL,
		CameraSource:   h.config.Camera.Source,
		FrameWidth:     h.config.Camera.Width,
		FrameHeight:    h.config.Camera.Height,
		DisplayWidth:   displayWidth,
		DisplayHeight:  displayHeight,
		PollIntervalMS: h.config.Poller.Interval.Milliseconds(),
		ReleaseOnSave:  h.config.Capture.ReleaseOnSave,
		JournalEnabled: h.journalEnabled,
		Style:          h.config.Style,
	})
}
