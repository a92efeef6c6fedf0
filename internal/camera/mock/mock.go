// Package mock provides an in-memory capture device for testing.
package mock

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/kozaktomas/facecam/internal/geometry"
)

// MockDevice is an in-memory implementation of camera.Device. Until a frame
// is set it behaves like a device that is still warming up.
type MockDevice struct {
	mu     sync.Mutex
	frame  image.Image
	open   bool
	opens  int
	closes int
	grabs  int

	// Error injection
	OpenError error
	GrabError error
}

// NewMockDevice creates a device with no frame.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// NewMockDeviceWithFrame creates a device delivering a solid frame of the given size.
func NewMockDeviceWithFrame(width, height int) *MockDevice {
	d := NewMockDevice()
	d.SetFrame(SolidFrame(width, height, color.RGBA{R: 40, G: 40, B: 40, A: 255}))
	return d
}

// SolidFrame returns a frame filled with a single color.
func SolidFrame(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// SetFrame sets the frame returned by subsequent grabs. nil means warming up.
func (d *MockDevice) SetFrame(img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = img
}

// SetGrabError sets the error returned by subsequent grabs.
func (d *MockDevice) SetGrabError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.GrabError = err
}

func (d *MockDevice) Name() string { return "mock" }

func (d *MockDevice) Open(_ geometry.Size) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenError != nil {
		return d.OpenError
	}
	d.open = true
	d.opens++
	return nil
}

func (d *MockDevice) Grab() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil, errors.New("device is closed")
	}
	d.grabs++
	if d.GrabError != nil {
		return nil, d.GrabError
	}
	return d.frame, nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		d.closes++
	}
	d.open = false
	return nil
}

// IsOpen reports whether the device is currently held.
func (d *MockDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Opens returns how many times the device was opened.
func (d *MockDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Closes returns how many times an open device was closed.
func (d *MockDevice) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// Grabs returns how many grabs were attempted on the open device.
func (d *MockDevice) Grabs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grabs
}
