// Package recognizer is the client for the remote face-recognition service:
// frame recognition, capture persistence, training status, face reload and
// single-image test uploads.
package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/imaging"
)

// Endpoint paths of the recognition service.
const (
	EndpointRecognize   = "recognize"
	EndpointSaveCapture = "save_capture"
	EndpointSettings    = "settings"
	EndpointReloadFaces = "reload_faces"
	EndpointUploadTest  = "upload_test"
)

// Client talks to the recognition service over HTTP
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	captureDir string
}

// NewClient creates a client for the service at rawURL. A zero timeout uses
// the default of 10 seconds.
func NewClient(rawURL string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid recognition service URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid recognition service URL %q: scheme must be http or https", rawURL)
	}
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{},
		timeout:    timeout,
	}, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) resolveURL(endpoint string) string {
	return c.baseURL.JoinPath(endpoint).String()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// SetCaptureDir enables API response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// captureResponse saves the API response body to a file if capturing is enabled.
func (c *Client) captureResponse(endpoint string, body []byte) {
	if c.captureDir == "" {
		return
	}

	filename := strings.Trim(strings.ReplaceAll(endpoint, "/", "_"), "_")
	timestamp := time.Now().Format("20060102_150405.000")
	path := filepath.Join(c.captureDir, fmt.Sprintf("%s_%s.json", filename, timestamp))

	// Pretty-print JSON if possible
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		body = prettyJSON.Bytes()
	}

	// WriteFile error is non-critical for capturing - report and continue
	if err := os.WriteFile(path, body, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to capture response to %s: %v\n", path, err)
	}
}

// Recognize submits a JPEG frame and returns the detected faces and people.
func (c *Client) Recognize(ctx context.Context, jpegData []byte) (*RecognizeResponse, error) {
	resp, err := doPostJSON[RecognizeResponse](ctx, c, EndpointRecognize, recognizeRequest{Image: imaging.DataURL(jpegData)})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, serviceError(EndpointRecognize, resp.Error)
	}
	return resp, nil
}

// SaveCapture asks the service to persist a captured still under filename.
// It returns the storage path reported by the service.
func (c *Client) SaveCapture(ctx context.Context, jpegData []byte, filename string) (*SaveResponse, error) {
	resp, err := doPostJSON[SaveResponse](ctx, c, EndpointSaveCapture, saveRequest{
		Image:    imaging.DataURL(jpegData),
		Filename: filename,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, serviceError(EndpointSaveCapture, resp.Error)
	}
	if resp.FilePath == "" {
		resp.FilePath = filename
	}
	return resp, nil
}

// Settings returns the training status and confidence threshold.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	resp, err := doGetJSON[SettingsResponse](ctx, c, EndpointSettings)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, serviceError(EndpointSettings, resp.Error)
	}
	return &resp.Settings, nil
}

// ReloadFaces asks the service to reload people info and retrain.
func (c *Client) ReloadFaces(ctx context.Context) (*ReloadResponse, error) {
	resp, err := doPostJSON[ReloadResponse](ctx, c, EndpointReloadFaces, nil)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "Error reloading faces"
		}
		return nil, serviceError(EndpointReloadFaces, msg)
	}
	return resp, nil
}

// UploadTest runs recognition on an image file uploaded as multipart form data.
func (c *Client) UploadTest(ctx context.Context, filename string, data []byte) (*UploadResponse, error) {
	if len(data) == 0 {
		return nil, errors.New("no image data to upload")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("could not create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("could not copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %w", err)
	}

	resp, err := doRequestJSON[UploadResponse](ctx, c, http.MethodPost, EndpointUploadTest, &body,
		withContentType(writer.FormDataContentType()))
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, serviceError(EndpointUploadTest, resp.Error)
	}
	return resp, nil
}
