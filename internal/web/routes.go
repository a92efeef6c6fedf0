package web

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/facecam/internal/web/handlers"
	"github.com/kozaktomas/facecam/internal/web/static"
)

func (s *Server) setupRoutes() {
	sessionHandler := handlers.NewSessionHandler(s.session, s.config.Poller.JPEGQuality, s.logger.With("component", "web"))
	capturesHandler := handlers.NewCapturesHandler(s.journal, s.logger.With("component", "web"))
	configHandler := handlers.NewConfigHandler(s.config, s.journal != nil)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Event stream stays open for the life of the client.
		r.Get("/session/events", sessionHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(time.Minute))

			// Session
			r.Get("/session", sessionHandler.Get)
			r.Post("/session/start", sessionHandler.Start)
			r.Post("/session/stop", sessionHandler.Stop)
			r.Post("/session/capture", sessionHandler.Capture)
			r.Post("/session/confirm", sessionHandler.Confirm)
			r.Post("/session/cancel", sessionHandler.Cancel)
			r.Post("/session/save", sessionHandler.Save)
			r.Put("/session/display", sessionHandler.SetDisplay)
			r.Get("/session/frame.jpg", sessionHandler.Frame)
			r.Get("/session/capture.jpg", sessionHandler.CaptureImage)

			// Recognition service
			r.Get("/settings", sessionHandler.Settings)
			r.Post("/faces/reload", sessionHandler.ReloadFaces)
			r.Post("/upload-test", sessionHandler.UploadTest)

			// Capture journal
			r.Get("/captures", capturesHandler.List)
			r.Get("/captures/{id}", capturesHandler.Get)

			// Config
			r.Get("/config", configHandler.Get)
		})
	})

	// Serve the console page
	s.router.Get("/*", s.serveConsole)
}

// serveConsole serves the embedded console assets.
func (s *Server) serveConsole(w http.ResponseWriter, r *http.Request) {
	if static.HasConsole() {
		fs := static.GetFileSystem()
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}

		f, err := fs.Open(path)
		if err == nil {
			defer f.Close()

			stat, err := f.Stat()
			if err == nil && !stat.IsDir() {
				contentType := "application/octet-stream"
				switch {
				case strings.HasSuffix(path, ".html"):
					contentType = "text/html; charset=utf-8"
				case strings.HasSuffix(path, ".css"):
					contentType = "text/css; charset=utf-8"
				case strings.HasSuffix(path, ".js"):
					contentType = "application/javascript; charset=utf-8"
				}

				w.Header().Set("Content-Type", contentType)
				w.WriteHeader(http.StatusOK)
				io.Copy(w, f)
				return
			}
		}
	}

	respondNotFound(w)
}

func respondNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("not found\n"))
}
