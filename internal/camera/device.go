package camera

import (
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/facecam/internal/geometry"
)

// Device is a source of raw frames. A Device is owned by exactly one Camera,
// which serialises Open, Grab and Close.
type Device interface {
	// Open acquires the device. ideal is a size hint; devices may deliver
	// frames of another size.
	Open(ideal geometry.Size) error
	// Grab returns the next frame. A nil image with a nil error means the
	// device is still warming up.
	Grab() (image.Image, error)
	// Close releases the device. Closing a closed device is a no-op.
	Close() error
	// Name identifies the device in logs and errors.
	Name() string
}

var (
	// ErrNotReady is returned when a frame is requested before the first
	// frame has arrived (frame dimensions still unknown).
	ErrNotReady = errors.New("camera not ready: frame dimensions unknown")

	// ErrNoDevice is returned by Open when nothing can be captured from.
	ErrNoDevice = errors.New("no capture device available")
)

// DeviceError reports that a capture device could not be acquired or failed
// unrecoverably. Starting again is allowed.
type DeviceError struct {
	Device string
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s: %s: %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// NewDevice returns the device for the configured source kind.
func NewDevice(source, dir string) (Device, error) {
	switch source {
	case "dir":
		return NewDirDevice(dir), nil
	case "screen":
		return NewScreenDevice(), nil
	default:
		return nil, fmt.Errorf("unknown camera source %q", source)
	}
}
