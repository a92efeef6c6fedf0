package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed style.yaml
var styleYAML []byte

type Config struct {
	Recognition RecognitionConfig
	Camera      CameraConfig
	Poller      PollerConfig
	Capture     CaptureConfig
	Display     DisplayConfig
	Database    DatabaseConfig
	Web         WebConfig
	Log         LogConfig
	Style       StyleConfig
}

type RecognitionConfig struct {
	URL     string        // recognition service base URL, defaults to http://localhost:5000
	Timeout time.Duration // per-request timeout for recognize/save/upload calls
}

type CameraConfig struct {
	Source string // "dir" or "screen"
	Dir    string // image directory replayed by the dir source
	Width  int    // ideal frame width requested from the device
	Height int    // ideal frame height requested from the device
	FPS    int    // frame grab rate
}

type PollerConfig struct {
	Interval    time.Duration // time between recognition ticks
	JPEGQuality int           // quality of frames submitted for recognition
}

type CaptureConfig struct {
	JPEGQuality   int  // quality of the burned-in still
	ReleaseOnSave bool // drop the captured still after a successful save
}

// DisplayConfig is the size of the element the live frame is shown in.
// Zero values fall back to the camera's ideal size (1:1 mapping).
type DisplayConfig struct {
	Width  int
	Height int
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL for the capture journal (optional)
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS origins beyond localhost
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

type StyleConfig struct {
	Box   BoxStyle   `yaml:"box" json:"box"`
	Label LabelStyle `yaml:"label" json:"label"`
}

type BoxStyle struct {
	Stroke      string `yaml:"stroke" json:"stroke"`
	StrokeWidth int    `yaml:"stroke_width" json:"stroke_width"`
	Fill        string `yaml:"fill" json:"fill"`
	FillAlpha   uint8  `yaml:"fill_alpha" json:"fill_alpha"`
}

type LabelStyle struct {
	Background string `yaml:"background" json:"background"`
	Text       string `yaml:"text" json:"text"`
	Height     int    `yaml:"height" json:"height"`
	Padding    int    `yaml:"padding" json:"padding"`
	Baseline   int    `yaml:"baseline" json:"baseline"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive duration ("1s", "500ms").
// A bare integer is taken as milliseconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return defaultVal
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// DefaultStyle returns the embedded overlay style.
func DefaultStyle() StyleConfig {
	var style StyleConfig
	if err := yaml.Unmarshal(styleYAML, &style); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded style.yaml: " + err.Error())
	}
	return style
}

func Load() *Config {
	return &Config{
		Recognition: RecognitionConfig{
			URL:     envString("RECOGNITION_URL", "http://localhost:5000"),
			Timeout: envDuration("RECOGNITION_TIMEOUT", 10*time.Second),
		},
		Camera: CameraConfig{
			Source: envString("CAMERA_SOURCE", "dir"),
			Dir:    envString("CAMERA_DIR", "frames"),
			Width:  envInt("CAMERA_WIDTH", 640),
			Height: envInt("CAMERA_HEIGHT", 480),
			FPS:    envInt("CAMERA_FPS", 15),
		},
		Poller: PollerConfig{
			Interval:    envDuration("POLL_INTERVAL", time.Second),
			JPEGQuality: envInt("POLL_JPEG_QUALITY", 80),
		},
		Capture: CaptureConfig{
			JPEGQuality:   envInt("CAPTURE_JPEG_QUALITY", 90),
			ReleaseOnSave: envBool("CAPTURE_RELEASE_ON_SAVE"),
		},
		Display: DisplayConfig{
			Width:  envInt("DISPLAY_WIDTH", 0),
			Height: envInt("DISPLAY_HEIGHT", 0),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
		Style: DefaultStyle(),
	}
}

// DisplaySize returns the configured display size, defaulting to the camera's
// ideal size when unset.
func (c *Config) DisplaySize() (width, height int) {
	if c.Display.Width > 0 && c.Display.Height > 0 {
		return c.Display.Width, c.Display.Height
	}
	return c.Camera.Width, c.Camera.Height
}

// SlogLevel parses the configured log level, defaulting to info.
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a structured logger writing to stderr in the configured format.
func (c *LogConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Validate checks the settings the session cannot run without.
func (c *Config) Validate() error {
	if c.Recognition.URL == "" {
		return fmt.Errorf("RECOGNITION_URL is required")
	}
	if c.Camera.Source != "dir" && c.Camera.Source != "screen" {
		return fmt.Errorf("unknown CAMERA_SOURCE %q (want dir or screen)", c.Camera.Source)
	}
	if c.Poller.JPEGQuality < 1 || c.Poller.JPEGQuality > 100 {
		return fmt.Errorf("POLL_JPEG_QUALITY must be between 1 and 100, got %d", c.Poller.JPEGQuality)
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("CAPTURE_JPEG_QUALITY must be between 1 and 100, got %d", c.Capture.JPEGQuality)
	}
	return nil
}
