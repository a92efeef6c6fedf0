package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facecam/internal/camera"
	cameramock "github.com/kozaktomas/facecam/internal/camera/mock"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/recognizer"
	"github.com/kozaktomas/facecam/internal/session"
)

const aliceRecognizeJSON = `{
	"success": true,
	"faces": [{"location": {"left": 10, "top": 20, "right": 110, "bottom": 220}, "name": "Alice",
		"person_info": {"full_name": "Alice"}}],
	"detected_people": [{"name": "Alice", "info": {"full_name": "Alice"}}]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

// setupMockRecognitionServer creates a mock recognition service. Recognize
// answers with Alice unless overridden.
func setupMockRecognitionServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	if _, ok := handlers["/recognize"]; !ok {
		mux.HandleFunc("/recognize", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, aliceRecognizeJSON)
		})
	}
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// testEnv is a session wired to a mock device and a mock recognition service.
type testEnv struct {
	device  *cameramock.MockDevice
	camera  *camera.Camera
	session *session.Session
	handler *SessionHandler
}

func newTestEnv(t *testing.T, handlers map[string]http.HandlerFunc) *testEnv {
	t.Helper()

	server := setupMockRecognitionServer(t, handlers)
	client, err := recognizer.NewClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("failed to create recognizer client: %v", err)
	}

	device := cameramock.NewMockDeviceWithFrame(640, 480)
	cam := camera.New(device, camera.Options{FPS: 200, Logger: quietLogger()})
	sess, err := session.New(cam, client, session.Options{
		PollInterval: 10 * time.Millisecond,
		Display:      geometry.Size{Width: 320, Height: 240},
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })

	return &testEnv{
		device:  device,
		camera:  cam,
		session: sess,
		handler: NewSessionHandler(sess, 80, quietLogger()),
	}
}

// startLive starts the camera and waits for the first detection batch.
func (e *testEnv) startLive(t *testing.T) {
	t.Helper()
	if err := e.session.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera failed: %v", err)
	}
	waitFor(t, "detection batch", func() bool { return len(e.session.Snapshot().Overlay) > 0 })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
