package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/database/mock"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

func seedJournal(t *testing.T, journal *mock.MockCaptureJournal, n int) []uuid.UUID {
	t.Helper()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, n)
	for i := range n {
		ids[i] = uuid.New()
		err := journal.Record(context.Background(), database.CaptureRecord{
			ID:          ids[i],
			Filename:    "capture.jpg",
			StoragePath: "captures/capture.jpg",
			Faces:       []recognizer.Face{{Name: "Alice"}},
			People:      []string{"Alice"},
			CapturedAt:  base.Add(time.Duration(i) * time.Minute),
			SavedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("failed to seed journal: %v", err)
		}
	}
	return ids
}

func TestCapturesHandler_List(t *testing.T) {
	journal := mock.NewMockCaptureJournal()
	ids := seedJournal(t, journal, 3)
	handler := NewCapturesHandler(journal, quietLogger())

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/captures?limit=2", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var result []CaptureResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 captures, got %d", len(result))
	}
	if result[0].ID != ids[2].String() {
		t.Errorf("expected newest capture first, got %s", result[0].ID)
	}
}

func TestCapturesHandler_ListByPerson(t *testing.T) {
	journal := mock.NewMockCaptureJournal()
	seedJournal(t, journal, 2)
	bob := uuid.New()
	err := journal.Record(context.Background(), database.CaptureRecord{
		ID:      bob,
		People:  []string{"Bob"},
		SavedAt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("failed to seed journal: %v", err)
	}
	handler := NewCapturesHandler(journal, quietLogger())

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/captures?person=Bob", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var result []CaptureResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(result) != 1 || result[0].ID != bob.String() {
		t.Errorf("expected only Bob's capture, got %+v", result)
	}
}

func TestCapturesHandler_ListErrors(t *testing.T) {
	failing := mock.NewMockCaptureJournal()
	failing.ListError = errors.New("connection lost")

	tests := []struct {
		name       string
		journal    database.CaptureJournal
		query      string
		wantStatus int
	}{
		{"no journal", nil, "", http.StatusServiceUnavailable},
		{"invalid limit", mock.NewMockCaptureJournal(), "?limit=abc", http.StatusBadRequest},
		{"zero limit", mock.NewMockCaptureJournal(), "?limit=0", http.StatusBadRequest},
		{"database error", failing, "", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewCapturesHandler(tc.journal, quietLogger())
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/captures"+tc.query, nil))
			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
		})
	}
}

func TestCapturesHandler_Get(t *testing.T) {
	journal := mock.NewMockCaptureJournal()
	ids := seedJournal(t, journal, 1)
	handler := NewCapturesHandler(journal, quietLogger())

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"found", ids[0].String(), http.StatusOK},
		{"missing", uuid.NewString(), http.StatusNotFound},
		{"invalid", "not-a-uuid", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/captures/"+tc.id, nil)
			req = requestWithChiParams(req, map[string]string{"id": tc.id})
			recorder := httptest.NewRecorder()

			handler.Get(recorder, req)

			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
		})
	}
}

func TestConfigHandler_Get(t *testing.T) {
	cfg := &config.Config{
		Recognition: config.RecognitionConfig{URL: "http://faces.test:5000"},
		Camera:      config.CameraConfig{Source: "dir", Width: 640, Height: 480},
		Poller:      config.PollerConfig{Interval: 500 * time.Millisecond},
		Style:       config.DefaultStyle(),
	}
	handler := NewConfigHandler(cfg, true)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var result ConfigResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result.DisplayWidth != 640 || result.DisplayHeight != 480 {
		t.Errorf("expected display to default to 640x480, got %dx%d", result.DisplayWidth, result.DisplayHeight)
	}
	if result.PollIntervalMS != 500 {
		t.Errorf("expected poll interval 500ms, got %d", result.PollIntervalMS)
	}
	if !result.JournalEnabled {
		t.Error("expected journal enabled")
	}
	if result.Style.Box.Stroke == "" {
		t.Error("expected style in response")
	}
}
