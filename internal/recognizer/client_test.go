package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/facecam/internal/imaging"
)

// setupMockServer creates a mock recognition service with the given handlers.
func setupMockServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://faces", "://bad"} {
		if _, err := NewClient(raw, 0); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c, err := NewClient("http://localhost:5000/", 0)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", c.timeout)
	}
	if c.BaseURL() != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got '%s'", c.BaseURL())
	}
}

func TestRecognize(t *testing.T) {
	var gotImage string
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/recognize": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got '%s'", ct)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			gotImage = body["image"]
			writeJSON(w, `{
				"success": true,
				"faces": [{"location": {"left": 10, "top": 20, "right": 110, "bottom": 220}, "name": "Alice"}],
				"detected_people": [{"name": "Alice", "info": {"full_name": "Alice Smith", "rank": "Captain"}}]
			}`)
		},
	})
	c := newTestClient(t, server)

	resp, err := c.Recognize(context.Background(), []byte{0xFF, 0xD8, 0xFF})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	if !strings.HasPrefix(gotImage, "data:image/jpeg;base64,") {
		t.Errorf("expected data URL image, got '%s'", gotImage)
	}
	payload, err := imaging.DecodeDataURL(gotImage)
	if err != nil || len(payload) != 3 {
		t.Errorf("expected 3 byte payload, got %v (%v)", payload, err)
	}

	if len(resp.Faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(resp.Faces))
	}
	face := resp.Faces[0]
	if face.Name != "Alice" || face.Location.Left != 10 || face.Location.Bottom != 220 {
		t.Errorf("unexpected face: %+v", face)
	}
	if len(resp.DetectedPeople) != 1 {
		t.Fatalf("expected 1 person, got %d", len(resp.DetectedPeople))
	}
	info := resp.DetectedPeople[0].Info
	if info.FullName != "Alice Smith" || info.Rank != "Captain" {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.BirthDate != "" || info.Position != "" || info.Unit != "" {
		t.Errorf("expected absent fields to be blank, got %+v", info)
	}
}

func TestRecognize_MissingOptionalFields(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/recognize": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success": true}`)
		},
	})
	c := newTestClient(t, server)

	resp, err := c.Recognize(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(resp.Faces) != 0 || len(resp.DetectedPeople) != 0 {
		t.Errorf("expected empty batches, got %+v", resp)
	}
}

func TestRecognize_ServiceError(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/recognize": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success": false, "error": "Invalid image data"}`)
		},
	})
	c := newTestClient(t, server)

	_, err := c.Recognize(context.Background(), []byte{1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsServiceError(err) {
		t.Fatalf("expected ServiceError, got %T: %v", err, err)
	}
	if err.Error() != "Invalid image data" {
		t.Errorf("expected service message, got '%s'", err.Error())
	}
}

func TestRecognize_ServiceErrorWithoutMessage(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/recognize": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success": false}`)
		},
	})
	c := newTestClient(t, server)

	_, err := c.Recognize(context.Background(), []byte{1})
	if err == nil || err.Error() != unknownServiceError {
		t.Errorf("expected '%s', got %v", unknownServiceError, err)
	}
}

func TestRecognize_HTTPStatusError(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/recognize": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	c := newTestClient(t, server)

	_, err := c.Recognize(context.Background(), []byte{1})
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
	if ne.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", ne.Status)
	}
	if !strings.Contains(ne.Error(), "boom") {
		t.Errorf("expected body in error, got '%s'", ne.Error())
	}
}

func TestRecognize_InvalidJSON(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/recognize": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `<html>`)
		},
	})
	c := newTestClient(t, server)

	_, err := c.Recognize(context.Background(), []byte{1})
	if !IsNetworkError(err) {
		t.Errorf("expected NetworkError for undecodable body, got %v", err)
	}
}

func TestRecognize_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/recognize": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		},
	})
	defer close(release)

	c, err := NewClient(server.URL, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err = c.Recognize(context.Background(), []byte{1})
	if !IsNetworkError(err) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout took too long: %v", time.Since(start))
	}
}

func TestSaveCapture(t *testing.T) {
	var body map[string]string
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/save_capture": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&body)
			writeJSON(w, `{"success": true, "filepath": "capture_20250101_120000.jpg", "full_path": "/srv/captures/capture_20250101_120000.jpg"}`)
		},
	})
	c := newTestClient(t, server)

	resp, err := c.SaveCapture(context.Background(), []byte{1, 2, 3}, "capture_20250101_120000.jpg")
	if err != nil {
		t.Fatalf("SaveCapture failed: %v", err)
	}
	if body["filename"] != "capture_20250101_120000.jpg" {
		t.Errorf("expected filename in request, got '%s'", body["filename"])
	}
	if !strings.HasPrefix(body["image"], "data:image/jpeg;base64,") {
		t.Errorf("expected data URL image, got '%s'", body["image"])
	}
	if resp.FilePath != "capture_20250101_120000.jpg" {
		t.Errorf("unexpected filepath '%s'", resp.FilePath)
	}
}

func TestSaveCapture_FilePathFallback(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/save_capture": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success": true}`)
		},
	})
	c := newTestClient(t, server)

	resp, err := c.SaveCapture(context.Background(), []byte{1}, "a.jpg")
	if err != nil {
		t.Fatalf("SaveCapture failed: %v", err)
	}
	if resp.FilePath != "a.jpg" {
		t.Errorf("expected fallback to filename, got '%s'", resp.FilePath)
	}
}

func TestSaveCapture_DiskFull(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/save_capture": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success": false, "error": "disk full"}`)
		},
	})
	c := newTestClient(t, server)

	_, err := c.SaveCapture(context.Background(), []byte{1}, "a.jpg")
	if err == nil || err.Error() != "disk full" {
		t.Errorf("expected 'disk full', got %v", err)
	}
}

func TestSettings(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/settings": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			writeJSON(w, `{"success": true, "settings": {"is_trained": true, "confidence_threshold": 100}}`)
		},
	})
	c := newTestClient(t, server)

	settings, err := c.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if !settings.IsTrained {
		t.Error("expected trained")
	}
	if settings.ConfidenceThreshold != 100 {
		t.Errorf("expected threshold 100, got %v", settings.ConfidenceThreshold)
	}
}

func TestReloadFaces(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/reload_faces": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			writeJSON(w, `{"success": true, "message": "Reloaded 2 faces", "known_faces": ["alice", "bob"]}`)
		},
	})
	c := newTestClient(t, server)

	resp, err := c.ReloadFaces(context.Background())
	if err != nil {
		t.Fatalf("ReloadFaces failed: %v", err)
	}
	if resp.Message != "Reloaded 2 faces" || len(resp.KnownFaces) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestReloadFaces_Failure(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/reload_faces": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success": false}`)
		},
	})
	c := newTestClient(t, server)

	_, err := c.ReloadFaces(context.Background())
	if err == nil || err.Error() != "Error reloading faces" {
		t.Errorf("expected reload error, got %v", err)
	}
}

func TestUploadTest(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/upload_test": func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			if header.Filename != "group.jpg" || string(data) != "imagebytes" {
				http.Error(w, "unexpected upload", http.StatusBadRequest)
				return
			}
			writeJSON(w, `{
				"success": true,
				"faces": [{"location": {"left": 1, "top": 2, "right": 3, "bottom": 4}, "name": "Unknown"}],
				"detected_people": [],
				"image_base64": "data:image/jpeg;base64,AAAA"
			}`)
		},
	})
	c := newTestClient(t, server)

	resp, err := c.UploadTest(context.Background(), "/tmp/photos/group.jpg", []byte("imagebytes"))
	if err != nil {
		t.Fatalf("UploadTest failed: %v", err)
	}
	if len(resp.Faces) != 1 || resp.Faces[0].Name != "Unknown" {
		t.Errorf("unexpected faces: %+v", resp.Faces)
	}
	if resp.ImageBase64 != "data:image/jpeg;base64,AAAA" {
		t.Errorf("unexpected image: '%s'", resp.ImageBase64)
	}
}

func TestUploadTest_EmptyData(t *testing.T) {
	c, err := NewClient("http://localhost:5000", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.UploadTest(context.Background(), "x.jpg", nil); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestCaptureResponse(t *testing.T) {
	server := setupMockServer(t, map[string]http.HandlerFunc{
		"/settings": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success": true, "settings": {"is_trained": false, "confidence_threshold": 80}}`)
		},
	})
	c := newTestClient(t, server)

	dir := t.TempDir()
	if err := c.SetCaptureDir(dir); err != nil {
		t.Fatalf("SetCaptureDir failed: %v", err)
	}
	if _, err := c.Settings(context.Background()); err != nil {
		t.Fatalf("Settings failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 captured response, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "settings_") {
		t.Errorf("unexpected capture filename '%s'", entries[0].Name())
	}

	if err := c.SetCaptureDir(""); err != nil {
		t.Fatal(err)
	}
	if c.captureDir != "" {
		t.Error("expected capturing to be disabled")
	}
}
