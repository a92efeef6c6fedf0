// Package camera owns the capture device lifecycle and keeps the latest
// frame. Start returns immediately; frames arrive on a background goroutine
// and the frame size stays unknown until the first one lands.
package camera

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/imaging"
)

// Options configures a Camera.
type Options struct {
	Ideal  geometry.Size // size requested from the device
	FPS    int           // grab rate, defaults to 15
	Logger *slog.Logger

	// OnFailure is called from the grab loop after the device was released
	// because of repeated grab errors. It is not called after Stop.
	OnFailure func(error)
}

// Stats is a snapshot of capture counters.
type Stats struct {
	Active      bool      `json:"active"`
	Frames      uint64    `json:"frames"`
	Errors      uint64    `json:"errors"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	LastFrameAt time.Time `json:"last_frame_at,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

// Camera wraps a Device with an asynchronous grab loop.
type Camera struct {
	device   Device
	ideal    geometry.Size
	interval time.Duration
	logger   *slog.Logger

	mu          sync.RWMutex
	cancel      context.CancelFunc
	done        chan struct{}
	frame       *image.RGBA
	frames      uint64
	errors      uint64
	lastFrameAt time.Time
	lastErr     error
	onFailure   func(error)
}

// New creates a camera over device. The device is not opened until Start.
func New(device Device, opts Options) *Camera {
	fps := opts.FPS
	if fps <= 0 {
		fps = constants.DefaultCameraFPS
	}
	ideal := opts.Ideal
	if !ideal.Valid() {
		ideal = geometry.Size{Width: constants.IdealFrameWidth, Height: constants.IdealFrameHeight}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{
		device:   device,
		ideal:    ideal,
		interval:  time.Second / time.Duration(fps),
		logger:    logger,
		onFailure: opts.OnFailure,
	}
}

// SetOnFailure replaces the failure callback.
func (c *Camera) SetOnFailure(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFailure = fn
}

// Start opens the device and launches the grab loop. It returns as soon as
// the device is open. Starting an active camera is a no-op.
func (c *Camera) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil
	}

	if err := c.device.Open(c.ideal); err != nil {
		c.lastErr = err
		return &DeviceError{Device: c.device.Name(), Op: "open", Err: err}
	}

	// The loop outlives the caller's context (e.g. an HTTP request); only
	// Stop or a device failure ends it.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.frame = nil
	c.lastErr = nil

	go c.run(loopCtx, done)

	c.logger.Info("camera started",
		"device", c.device.Name(),
		"ideal", c.ideal.String(),
		"interval", c.interval,
	)
	return nil
}

// Stop ends the grab loop and releases the device. Safe to call repeatedly
// and on a camera that was never started.
func (c *Camera) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.frame = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	c.mu.Lock()
	c.frame = nil
	c.mu.Unlock()

	if err := c.device.Close(); err != nil {
		return &DeviceError{Device: c.device.Name(), Op: "close", Err: err}
	}
	c.logger.Info("camera stopped", "device", c.device.Name())
	return nil
}

func (c *Camera) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	consecutive := 0
	for {
		img, err := c.device.Grab()
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			consecutive++
			c.mu.Lock()
			c.errors++
			c.lastErr = err
			c.mu.Unlock()
			c.logger.Warn("frame grab failed", "device", c.device.Name(), "error", err, "consecutive", consecutive)

			if consecutive >= constants.MaxConsecutiveGrabErrors {
				c.fail(done, err)
				return
			}
		} else if img != nil {
			consecutive = 0
			c.store(img)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Camera) store(img image.Image) {
	frame := imaging.ToRGBA(img)

	c.mu.Lock()
	defer c.mu.Unlock()

	first := c.frame == nil
	c.frame = frame
	c.frames++
	c.lastFrameAt = time.Now()
	if first {
		c.logger.Debug("first frame received", "size", geometry.SizeOf(frame.Bounds()).String())
	}
}

// fail releases the device after an unrecoverable grab error, unless Stop
// got there first.
func (c *Camera) fail(done chan struct{}, err error) {
	c.mu.Lock()
	if c.done != done {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel, c.done = nil, nil
	c.frame = nil
	onFailure := c.onFailure
	c.mu.Unlock()

	c.logger.Error("camera released after repeated grab failures", "device", c.device.Name(), "error", err)
	if cerr := c.device.Close(); cerr != nil {
		c.logger.Warn("failed to close device", "device", c.device.Name(), "error", cerr)
	}
	if onFailure != nil {
		onFailure(&DeviceError{Device: c.device.Name(), Op: "grab", Err: err})
	}
}

// CurrentFrame returns a copy of the latest frame at native resolution.
func (c *Camera) CurrentFrame() (*image.RGBA, error) {
	c.mu.RLock()
	frame := c.frame
	c.mu.RUnlock()

	if frame == nil {
		return nil, ErrNotReady
	}
	return imaging.ToRGBA(frame), nil
}

// Size returns the current frame size, zero until the first frame arrives.
func (c *Camera) Size() geometry.Size {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frame == nil {
		return geometry.Size{}
	}
	return geometry.SizeOf(c.frame.Bounds())
}

// Ready reports whether a frame with known dimensions is available.
func (c *Camera) Ready() bool {
	return c.Size().Valid()
}

// Active reports whether the device is held.
func (c *Camera) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cancel != nil
}

// Err returns the last device error, if any.
func (c *Camera) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Stats returns capture counters.
func (c *Camera) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Active:      c.cancel != nil,
		Frames:      c.frames,
		Errors:      c.errors,
		LastFrameAt: c.lastFrameAt,
	}
	if c.frame != nil {
		s.Width = c.frame.Bounds().Dx()
		s.Height = c.frame.Bounds().Dy()
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
