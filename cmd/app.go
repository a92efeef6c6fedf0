package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/facecam/internal/camera"
	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/database/postgres"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/recognizer"
	"github.com/kozaktomas/facecam/internal/session"
)

// loadConfig reads and validates the environment configuration and builds
// the logger every component shares.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, cfg.Log.NewLogger(), nil
}

// newRecognizer creates the recognition service client, recording raw
// responses when --capture is set.
func newRecognizer(cfg *config.Config) (*recognizer.Client, error) {
	client, err := recognizer.NewClient(cfg.Recognition.URL, cfg.Recognition.Timeout)
	if err != nil {
		return nil, fmt.Errorf("could not create recognition client: %w", err)
	}
	if captureDir != "" {
		if err := client.SetCaptureDir(captureDir); err != nil {
			return nil, fmt.Errorf("could not set capture directory: %w", err)
		}
		fmt.Printf("Capturing service responses to %s\n", captureDir)
	}
	return client, nil
}

// newCamera opens nothing yet; the device is started by the session.
func newCamera(cfg *config.Config, logger *slog.Logger) (*camera.Camera, error) {
	device, err := camera.NewDevice(cfg.Camera.Source, cfg.Camera.Dir)
	if err != nil {
		return nil, err
	}
	return camera.New(device, camera.Options{
		Ideal:  geometry.Size{Width: float64(cfg.Camera.Width), Height: float64(cfg.Camera.Height)},
		FPS:    cfg.Camera.FPS,
		Logger: logger,
	}), nil
}

// openPool connects to PostgreSQL and applies pending migrations.
func openPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*postgres.Pool, error) {
	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, nil
}

// openJournal connects the capture journal when DATABASE_URL is set. It
// returns a nil journal and a no-op close otherwise.
func openJournal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.CaptureJournal, func(), error) {
	if cfg.Database.URL == "" {
		return nil, func() {}, nil
	}
	pool, err := openPool(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewCaptureRepository(pool), func() { _ = pool.Close() }, nil
}

// newSession wires camera, recognition client and journal into a session.
func newSession(cfg *config.Config, logger *slog.Logger, journal database.CaptureJournal) (*session.Session, error) {
	client, err := newRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	cam, err := newCamera(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := session.OptionsFromConfig(cfg)
	opts.Journal = journal
	opts.Logger = logger
	sess, err := session.New(cam, client, opts)
	if err != nil {
		return nil, fmt.Errorf("could not create session: %w", err)
	}
	return sess, nil
}
